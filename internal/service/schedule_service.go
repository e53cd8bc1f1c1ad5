package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campusworks/registrar-api/internal/models"
	appErrors "github.com/campusworks/registrar-api/pkg/errors"
)

type scheduleStore interface {
	ListByInstructorDayTx(ctx context.Context, tx *sqlx.Tx, instructorID string, day models.DayOfWeek) ([]models.ScheduleSlot, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, slot *models.ScheduleSlot) error
	ListByInstructor(ctx context.Context, instructorID string) ([]models.ScheduleSlot, error)
	ListRoomAssignedOrdered(ctx context.Context) ([]models.ScheduleSlot, error)
}

type catalogReader interface {
	FindSection(ctx context.Context, id string) (*models.Section, error)
	FindRoom(ctx context.Context, id string) (*models.Room, error)
	FindInstructor(ctx context.Context, id string) (*models.Instructor, error)
	LockInstructor(ctx context.Context, tx *sqlx.Tx, id string) error
}

// AssignInstructorRequest describes a slot assignment attempt.
// Start and End are "HH:MM" clock values; the interval is half-open.
type AssignInstructorRequest struct {
	InstructorID string  `json:"instructor_id" validate:"required"`
	SectionID    string  `json:"section_id" validate:"required"`
	DayOfWeek    string  `json:"day_of_week" validate:"required"`
	Start        string  `json:"start" validate:"required"`
	End          string  `json:"end" validate:"required"`
	RoomID       *string `json:"room_id"`
}

// ScheduleService detects time conflicts for instructor assignments and
// room usage. Assignment runs as one transaction under the instructor row
// lock so two concurrent requests cannot both pass the overlap check.
type ScheduleService struct {
	tx        txProvider
	repo      scheduleStore
	catalog   catalogReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(tx txProvider, repo scheduleStore, catalog catalogReader, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{tx: tx, repo: repo, catalog: catalog, validator: validate, logger: logger}
}

// AssignInstructor creates a schedule slot after verifying the interval is
// well formed and does not overlap any of the instructor's same-day slots.
func (s *ScheduleService) AssignInstructor(ctx context.Context, req AssignInstructorRequest) (*models.ScheduleSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	day := models.DayOfWeek(strings.ToUpper(req.DayOfWeek))
	if !day.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day of week %q", req.DayOfWeek))
	}
	start, err := models.ParseClock(req.Start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time")
	}
	end, err := models.ParseClock(req.End)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end time")
	}
	if end <= start {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}

	if _, err := s.catalog.FindSection(ctx, req.SectionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, mapStoreError(err, "failed to load section")
	}
	if req.RoomID != nil {
		if _, err := s.catalog.FindRoom(ctx, *req.RoomID); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
			}
			return nil, mapStoreError(err, "failed to load room")
		}
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, mapStoreError(err, "failed to begin schedule transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := s.catalog.LockInstructor(ctx, tx, req.InstructorID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, mapStoreError(err, "failed to lock instructor")
	}

	existing, err := s.repo.ListByInstructorDayTx(ctx, tx, req.InstructorID, day)
	if err != nil {
		return nil, mapStoreError(err, "failed to load instructor slots")
	}

	requested := models.ScheduleSlot{DayOfWeek: day, StartMinutes: start, EndMinutes: end}
	for _, slot := range existing {
		if requested.Overlaps(slot) {
			msg := fmt.Sprintf("overlaps slot %s (%s %s-%s)",
				slot.ID, slot.DayOfWeek,
				models.FormatClock(slot.StartMinutes), models.FormatClock(slot.EndMinutes))
			return nil, appErrors.Clone(appErrors.ErrScheduleConflict, msg)
		}
	}

	slot := &models.ScheduleSlot{
		SectionID:    req.SectionID,
		InstructorID: req.InstructorID,
		RoomID:       req.RoomID,
		DayOfWeek:    day,
		StartMinutes: start,
		EndMinutes:   end,
	}
	if err := s.repo.CreateTx(ctx, tx, slot); err != nil {
		return nil, mapStoreError(err, "failed to create schedule slot")
	}
	if err := tx.Commit(); err != nil {
		return nil, mapStoreError(err, "failed to commit schedule slot")
	}

	s.logger.Info("schedule slot assigned",
		zap.String("slot_id", slot.ID),
		zap.String("instructor_id", req.InstructorID),
		zap.String("day", string(day)),
	)
	return slot, nil
}

// ListByInstructor returns an instructor's slots. Unknown instructors are
// reported as not found rather than an empty schedule.
func (s *ScheduleService) ListByInstructor(ctx context.Context, instructorID string) (*models.Instructor, []models.ScheduleSlot, error) {
	instructor, err := s.catalog.FindInstructor(ctx, instructorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, nil, mapStoreError(err, "failed to load instructor")
	}
	slots, err := s.repo.ListByInstructor(ctx, instructorID)
	if err != nil {
		return nil, nil, mapStoreError(err, "failed to list instructor slots")
	}
	return instructor, slots, nil
}

// RoomDoubleBookings scans every room's slots for temporal overlap.
// Slots are visited in (room, day, start, id) order and each start is
// compared against the immediately preceding slot's end in its partition.
// The ordering is what makes the single linear pass equivalent to pairwise
// checking; id breaks start-time ties so repeated runs agree.
func (s *ScheduleService) RoomDoubleBookings(ctx context.Context) ([]models.RoomConflict, error) {
	slots, err := s.repo.ListRoomAssignedOrdered(ctx)
	if err != nil {
		return nil, mapStoreError(err, "failed to load room slots")
	}
	return detectRoomConflicts(slots), nil
}

func detectRoomConflicts(slots []models.ScheduleSlot) []models.RoomConflict {
	sort.SliceStable(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if ra, rb := roomKey(a), roomKey(b); ra != rb {
			return ra < rb
		}
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		if a.StartMinutes != b.StartMinutes {
			return a.StartMinutes < b.StartMinutes
		}
		return a.ID < b.ID
	})

	var conflicts []models.RoomConflict
	for i := 1; i < len(slots); i++ {
		prev, cur := slots[i-1], slots[i]
		if cur.RoomID == nil || prev.RoomID == nil {
			continue
		}
		if *cur.RoomID != *prev.RoomID || cur.DayOfWeek != prev.DayOfWeek {
			continue
		}
		if cur.StartMinutes < prev.EndMinutes {
			overlap := prev.EndMinutes - cur.StartMinutes
			if span := cur.EndMinutes - cur.StartMinutes; span < overlap {
				overlap = span
			}
			conflicts = append(conflicts, models.RoomConflict{
				RoomID:         *cur.RoomID,
				DayOfWeek:      cur.DayOfWeek,
				FirstSlotID:    prev.ID,
				SecondSlotID:   cur.ID,
				OverlapMinutes: overlap,
			})
		}
	}
	return conflicts
}

func roomKey(s models.ScheduleSlot) string {
	if s.RoomID == nil {
		return ""
	}
	return *s.RoomID
}
