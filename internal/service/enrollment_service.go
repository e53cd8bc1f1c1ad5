package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campusworks/registrar-api/internal/models"
	appErrors "github.com/campusworks/registrar-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type enrollmentStore interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	CountBySectionTx(ctx context.Context, tx *sqlx.Tx, sectionID string) (int, error)
	ExistsTx(ctx context.Context, tx *sqlx.Tx, studentID, sectionID string) (bool, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) error
}

type sectionCatalog interface {
	LockSection(ctx context.Context, tx *sqlx.Tx, id string) (*models.Section, error)
	FindSection(ctx context.Context, id string) (*models.Section, error)
	FindCourse(ctx context.Context, id string) (*models.Course, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// EnrollRequest describes an enrollment attempt.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	SectionID string `json:"section_id" validate:"required"`
}

// EnrollmentService enforces section capacity and enrollment uniqueness.
// Each Enroll call is one transaction: the section row lock makes the
// capacity read and the insert indivisible against concurrent callers.
type EnrollmentService struct {
	tx        txProvider
	repo      enrollmentStore
	sections  sectionCatalog
	students  studentReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(tx txProvider, repo enrollmentStore, sections sectionCatalog, students studentReader, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{tx: tx, repo: repo, sections: sections, students: students, validator: validate, logger: logger}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, mapStoreError(err, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enrollments, pagination, nil
}

// SectionRoster bundles a section, its course and the enrolled students.
type SectionRoster struct {
	Section     *models.Section           `json:"section"`
	Course      *models.Course            `json:"course"`
	Enrollments []models.EnrollmentDetail `json:"enrollments"`
}

// Roster returns a section's enrollments together with the section and
// course they belong to.
func (s *EnrollmentService) Roster(ctx context.Context, sectionID string) (*SectionRoster, *models.Pagination, error) {
	section, err := s.sections.FindSection(ctx, sectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, nil, mapStoreError(err, "failed to load section")
	}
	course, err := s.sections.FindCourse(ctx, section.CourseID)
	if err != nil {
		return nil, nil, mapStoreError(err, "failed to load course")
	}

	enrollments, pagination, err := s.List(ctx, models.EnrollmentFilter{SectionID: sectionID, Page: 1, PageSize: 200})
	if err != nil {
		return nil, nil, err
	}
	return &SectionRoster{Section: section, Course: course, Enrollments: enrollments}, pagination, nil
}

// Enroll registers a student into a section, enforcing capacity and the
// (student, section) uniqueness invariant. Rejection leaves no side effect.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, mapStoreError(err, "failed to load student")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, mapStoreError(err, "failed to begin enrollment transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	section, err := s.sections.LockSection(ctx, tx, req.SectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, mapStoreError(err, "failed to lock section")
	}

	exists, err := s.repo.ExistsTx(ctx, tx, req.StudentID, req.SectionID)
	if err != nil {
		return nil, mapStoreError(err, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, "")
	}

	enrolled, err := s.repo.CountBySectionTx(ctx, tx, req.SectionID)
	if err != nil {
		return nil, mapStoreError(err, "failed to count enrollments")
	}
	if enrolled >= section.Capacity {
		return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "")
	}

	enrollment := &models.Enrollment{StudentID: req.StudentID, SectionID: req.SectionID}
	if err := s.repo.CreateTx(ctx, tx, enrollment); err != nil {
		return nil, mapStoreError(err, "failed to create enrollment")
	}

	if err := tx.Commit(); err != nil {
		return nil, mapStoreError(err, "failed to commit enrollment")
	}

	s.logger.Info("enrollment created",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", req.StudentID),
		zap.String("section_id", req.SectionID),
		zap.Int("enrolled", enrolled+1),
		zap.Int("capacity", section.Capacity),
	)

	detail, err := s.repo.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, mapStoreError(err, "failed to load enrollment detail")
	}
	return detail, nil
}
