package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/registrar-api/internal/models"
)

func slotRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "section_id", "instructor_id", "room_id", "day_of_week", "start_minutes", "end_minutes", "created_at"})
}

func TestScheduleRepositoryListByInstructorDayTx(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewScheduleRepository(db)
	tx := beginTx(t, db, mock)

	rows := slotRows().
		AddRow("slot-1", "sec-1", "inst-1", nil, models.DayMonday, 600, 720, time.Now()).
		AddRow("slot-2", "sec-2", "inst-1", "r1", models.DayMonday, 720, 780, time.Now())
	mock.ExpectQuery("SELECT (.+) FROM schedule_slots WHERE instructor_id = \\$1 AND day_of_week = \\$2 ORDER BY start_minutes, id").
		WithArgs("inst-1", models.DayMonday).
		WillReturnRows(rows)

	slots, err := repo.ListByInstructorDayTx(context.Background(), tx, "inst-1", models.DayMonday)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.Nil(t, slots[0].RoomID)
	require.NotNil(t, slots[1].RoomID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateTx(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewScheduleRepository(db)
	tx := beginTx(t, db, mock)

	mock.ExpectExec("INSERT INTO schedule_slots").WillReturnResult(sqlmock.NewResult(1, 1))

	slot := &models.ScheduleSlot{SectionID: "sec-1", InstructorID: "inst-1", DayOfWeek: models.DayMonday, StartMinutes: 600, EndMinutes: 720}
	require.NoError(t, repo.CreateTx(context.Background(), tx, slot))
	require.NotEmpty(t, slot.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListRoomAssignedOrdered(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewScheduleRepository(db)

	rows := slotRows().
		AddRow("slot-1", "sec-1", "inst-1", "r1", models.DayMonday, 600, 720, time.Now())
	mock.ExpectQuery("SELECT (.+) FROM schedule_slots WHERE room_id IS NOT NULL ORDER BY room_id, day_of_week, start_minutes, id").
		WillReturnRows(rows)

	slots, err := repo.ListRoomAssignedOrdered(context.Background())
	require.NoError(t, err)
	require.Len(t, slots, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
