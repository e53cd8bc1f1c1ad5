package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusworks/registrar-api/internal/models"
	appErrors "github.com/campusworks/registrar-api/pkg/errors"
)

type mockScheduleStore struct {
	slots     []models.ScheduleSlot
	roomSlots []models.ScheduleSlot
}

func (m *mockScheduleStore) ListByInstructorDayTx(ctx context.Context, tx *sqlx.Tx, instructorID string, day models.DayOfWeek) ([]models.ScheduleSlot, error) {
	var out []models.ScheduleSlot
	for _, s := range m.slots {
		if s.InstructorID == instructorID && s.DayOfWeek == day {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockScheduleStore) CreateTx(ctx context.Context, tx *sqlx.Tx, slot *models.ScheduleSlot) error {
	if slot.ID == "" {
		slot.ID = fmt.Sprintf("slot-%d", len(m.slots)+1)
	}
	m.slots = append(m.slots, *slot)
	return nil
}

func (m *mockScheduleStore) ListByInstructor(ctx context.Context, instructorID string) ([]models.ScheduleSlot, error) {
	return m.slots, nil
}

func (m *mockScheduleStore) ListRoomAssignedOrdered(ctx context.Context) ([]models.ScheduleSlot, error) {
	return m.roomSlots, nil
}

type mockCatalogReader struct {
	missingInstructor bool
}

func (m *mockCatalogReader) FindSection(ctx context.Context, id string) (*models.Section, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &models.Section{ID: id, Capacity: 30}, nil
}

func (m *mockCatalogReader) FindRoom(ctx context.Context, id string) (*models.Room, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &models.Room{ID: id}, nil
}

func (m *mockCatalogReader) FindInstructor(ctx context.Context, id string) (*models.Instructor, error) {
	if m.missingInstructor {
		return nil, sql.ErrNoRows
	}
	return &models.Instructor{ID: id, FullName: "A. Turing"}, nil
}

func (m *mockCatalogReader) LockInstructor(ctx context.Context, tx *sqlx.Tx, id string) error {
	if m.missingInstructor {
		return sql.ErrNoRows
	}
	return nil
}

func strPtr(s string) *string { return &s }

func existingMondaySlot() models.ScheduleSlot {
	return models.ScheduleSlot{
		ID:           "slot-existing",
		SectionID:    "sec-1",
		InstructorID: "inst-1",
		DayOfWeek:    models.DayMonday,
		StartMinutes: 10 * 60,
		EndMinutes:   12 * 60,
	}
}

func TestScheduleServiceAssignAdjacentSlots(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	repo := &mockScheduleStore{slots: []models.ScheduleSlot{existingMondaySlot()}}
	svc := NewScheduleService(tx, repo, &mockCatalogReader{}, validator.New(), zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectCommit()

	// 12:00 start touches the 12:00 end of the existing slot; half-open
	// intervals make that legal.
	slot, err := svc.AssignInstructor(context.Background(), AssignInstructorRequest{
		InstructorID: "inst-1",
		SectionID:    "sec-2",
		DayOfWeek:    "MONDAY",
		Start:        "12:00",
		End:          "13:00",
	})
	require.NoError(t, err)
	assert.Equal(t, 12*60, slot.StartMinutes)
	assert.Len(t, repo.slots, 2)
}

func TestScheduleServiceAssignOverlapRejected(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	repo := &mockScheduleStore{slots: []models.ScheduleSlot{existingMondaySlot()}}
	svc := NewScheduleService(tx, repo, &mockCatalogReader{}, validator.New(), zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.AssignInstructor(context.Background(), AssignInstructorRequest{
		InstructorID: "inst-1",
		SectionID:    "sec-2",
		DayOfWeek:    "MONDAY",
		Start:        "11:00",
		End:          "13:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrScheduleConflict.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.slots, 1)
}

func TestScheduleServiceAssignOtherDayAllowed(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	repo := &mockScheduleStore{slots: []models.ScheduleSlot{existingMondaySlot()}}
	svc := NewScheduleService(tx, repo, &mockCatalogReader{}, validator.New(), zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := svc.AssignInstructor(context.Background(), AssignInstructorRequest{
		InstructorID: "inst-1",
		SectionID:    "sec-2",
		DayOfWeek:    "tuesday",
		Start:        "10:00",
		End:          "12:00",
	})
	require.NoError(t, err)
}

func TestScheduleServiceAssignInvalidInterval(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	svc := NewScheduleService(tx, &mockScheduleStore{}, &mockCatalogReader{}, validator.New(), zap.NewNop())

	for _, tc := range []struct{ start, end string }{
		{"12:00", "12:00"},
		{"13:00", "12:00"},
		{"25:00", "26:00"},
		{"1200", "1300"},
	} {
		_, err := svc.AssignInstructor(context.Background(), AssignInstructorRequest{
			InstructorID: "inst-1",
			SectionID:    "sec-1",
			DayOfWeek:    "MONDAY",
			Start:        tc.start,
			End:          tc.end,
		})
		require.Error(t, err, "start=%s end=%s", tc.start, tc.end)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestScheduleServiceAssignUnknownInstructor(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	svc := NewScheduleService(tx, &mockScheduleStore{}, &mockCatalogReader{missingInstructor: true}, validator.New(), zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.AssignInstructor(context.Background(), AssignInstructorRequest{
		InstructorID: "ghost",
		SectionID:    "sec-1",
		DayOfWeek:    "MONDAY",
		Start:        "10:00",
		End:          "11:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceListByInstructorUnknown(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	svc := NewScheduleService(tx, &mockScheduleStore{}, &mockCatalogReader{missingInstructor: true}, validator.New(), zap.NewNop())

	_, _, err := svc.ListByInstructor(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDetectRoomConflicts(t *testing.T) {
	roomSlot := func(id, room string, day models.DayOfWeek, start, end int) models.ScheduleSlot {
		return models.ScheduleSlot{ID: id, RoomID: strPtr(room), DayOfWeek: day, StartMinutes: start, EndMinutes: end}
	}

	// Deliberately unsorted input; detection must not depend on insertion order.
	slots := []models.ScheduleSlot{
		roomSlot("c", "r1", models.DayMonday, 11*60, 13*60),
		roomSlot("a", "r1", models.DayMonday, 10*60, 12*60),
		roomSlot("b", "r1", models.DayMonday, 12*60, 13*60),
		roomSlot("d", "r2", models.DayMonday, 10*60, 12*60),
		roomSlot("e", "r1", models.DayTuesday, 10*60, 12*60),
	}

	conflicts := detectRoomConflicts(slots)
	require.Len(t, conflicts, 2)

	assert.Equal(t, "a", conflicts[0].FirstSlotID)
	assert.Equal(t, "c", conflicts[0].SecondSlotID)
	assert.Equal(t, 60, conflicts[0].OverlapMinutes)

	assert.Equal(t, "c", conflicts[1].FirstSlotID)
	assert.Equal(t, "b", conflicts[1].SecondSlotID)
	assert.Equal(t, 60, conflicts[1].OverlapMinutes)

	// Same multiset in a different order yields the same report.
	again := detectRoomConflicts([]models.ScheduleSlot{slots[4], slots[2], slots[0], slots[3], slots[1]})
	assert.Equal(t, conflicts, again)
}

func TestDetectRoomConflictsTouchingSlots(t *testing.T) {
	slots := []models.ScheduleSlot{
		{ID: "a", RoomID: strPtr("r1"), DayOfWeek: models.DayMonday, StartMinutes: 10 * 60, EndMinutes: 12 * 60},
		{ID: "b", RoomID: strPtr("r1"), DayOfWeek: models.DayMonday, StartMinutes: 12 * 60, EndMinutes: 13 * 60},
	}
	assert.Empty(t, detectRoomConflicts(slots))
}
