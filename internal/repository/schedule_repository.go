package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusworks/registrar-api/internal/models"
)

// ScheduleRepository handles persistence of schedule slots.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const slotColumns = `id, section_id, instructor_id, room_id, day_of_week, start_minutes, end_minutes, created_at`

// ListByInstructorDayTx loads an instructor's slots for one day inside the
// transaction that also performs the insert. The caller holds the
// instructor row lock, so this view cannot go stale before commit.
func (r *ScheduleRepository) ListByInstructorDayTx(ctx context.Context, tx *sqlx.Tx, instructorID string, day models.DayOfWeek) ([]models.ScheduleSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedule_slots WHERE instructor_id = $1 AND day_of_week = $2 ORDER BY start_minutes, id`, slotColumns)
	var slots []models.ScheduleSlot
	if err := tx.SelectContext(ctx, &slots, query, instructorID, day); err != nil {
		return nil, fmt.Errorf("list instructor day slots: %w", err)
	}
	return slots, nil
}

// CreateTx persists a new schedule slot within the supplied transaction.
func (r *ScheduleRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, slot *models.ScheduleSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO schedule_slots (id, section_id, instructor_id, room_id, day_of_week, start_minutes, end_minutes, created_at)
        VALUES (:id, :section_id, :instructor_id, :room_id, :day_of_week, :start_minutes, :end_minutes, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create schedule slot: %w", err)
	}
	return nil
}

// ListByInstructor returns all slots assigned to an instructor.
func (r *ScheduleRepository) ListByInstructor(ctx context.Context, instructorID string) ([]models.ScheduleSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedule_slots WHERE instructor_id = $1 ORDER BY day_of_week, start_minutes, id`, slotColumns)
	var slots []models.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, instructorID); err != nil {
		return nil, fmt.Errorf("list instructor slots: %w", err)
	}
	return slots, nil
}

// ListRoomAssignedOrdered feeds the room double-booking scan: every slot
// with a room, ordered by (room, day, start, id). The id tie-break keeps
// repeated scans deterministic when two slots share a start time.
func (r *ScheduleRepository) ListRoomAssignedOrdered(ctx context.Context) ([]models.ScheduleSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedule_slots WHERE room_id IS NOT NULL ORDER BY room_id, day_of_week, start_minutes, id`, slotColumns)
	var slots []models.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list room slots: %w", err)
	}
	return slots, nil
}
