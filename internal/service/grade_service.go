package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campusworks/registrar-api/internal/models"
	appErrors "github.com/campusworks/registrar-api/pkg/errors"
	"github.com/campusworks/registrar-api/pkg/export"
)

type gradeStore interface {
	ExistsTx(ctx context.Context, tx *sqlx.Tx, assessmentID, studentID string) (bool, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, grade *models.Grade) error
	ListByStudent(ctx context.Context, studentID string) ([]models.Grade, error)
	TranscriptByStudent(ctx context.Context, studentID string) ([]models.TranscriptRow, error)
}

type assessmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Assessment, error)
	ListBySection(ctx context.Context, sectionID string) ([]models.Assessment, error)
	Create(ctx context.Context, assessment *models.Assessment) error
}

type studentLocker interface {
	LockStudent(ctx context.Context, tx *sqlx.Tx, id string) (*models.Student, error)
}

type statusEvaluator interface {
	ReevaluateTx(ctx context.Context, tx *sqlx.Tx, student *models.Student) (models.StudentStatus, error)
}

// RecordGradeRequest describes a grade posting.
type RecordGradeRequest struct {
	AssessmentID string  `json:"assessment_id" validate:"required"`
	StudentID    string  `json:"student_id" validate:"required"`
	Score        float64 `json:"score" validate:"gte=0,lte=100"`
}

// RecordGradeResult carries the stored grade and the student status after
// the synchronous re-evaluation.
type RecordGradeResult struct {
	Grade         models.Grade         `json:"grade"`
	StudentStatus models.StudentStatus `json:"student_status"`
}

// CreateAssessmentRequest describes a new graded activity for a section.
type CreateAssessmentRequest struct {
	SectionID string    `json:"section_id" validate:"required"`
	Kind      string    `json:"kind" validate:"required,oneof=QUIZ EXAM ASSIGNMENT"`
	Title     string    `json:"title" validate:"required"`
	Weight    float64   `json:"weight" validate:"gte=0,lte=100"`
	DueDate   time.Time `json:"due_date" validate:"required"`
}

// GradeService posts grades and drives the status transition engine.
// The grade insert and the re-evaluation share one transaction, so a
// graduation triggered by a grade is visible to any read that observes
// the grade itself.
type GradeService struct {
	tx          txProvider
	grades      gradeStore
	assessments assessmentReader
	students    studentLocker
	statuses    statusEvaluator
	cache       *CacheService
	exports     bool
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(tx txProvider, grades gradeStore, assessments assessmentReader, students studentLocker, statuses statusEvaluator, cache *CacheService, exportsEnabled bool, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{tx: tx, grades: grades, assessments: assessments, students: students, statuses: statuses, cache: cache, exports: exportsEnabled, validator: validate, logger: logger}
}

// Record posts a grade for one student on one assessment.
func (s *GradeService) Record(ctx context.Context, req RecordGradeRequest) (*RecordGradeResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	if _, err := s.assessments.FindByID(ctx, req.AssessmentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, mapStoreError(err, "failed to load assessment")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, mapStoreError(err, "failed to begin grade transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	// Student row lock first: both the grade insert and a possible status
	// update touch this student, and a fixed lock order avoids deadlock.
	student, err := s.students.LockStudent(ctx, tx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, mapStoreError(err, "failed to lock student")
	}

	exists, err := s.grades.ExistsTx(ctx, tx, req.AssessmentID, req.StudentID)
	if err != nil {
		return nil, mapStoreError(err, "failed to check grade")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateGrade, "")
	}

	grade := &models.Grade{AssessmentID: req.AssessmentID, StudentID: req.StudentID, Score: req.Score}
	if err := s.grades.CreateTx(ctx, tx, grade); err != nil {
		return nil, mapStoreError(err, "failed to create grade")
	}

	status, err := s.statuses.ReevaluateTx(ctx, tx, student)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, mapStoreError(err, "failed to commit grade")
	}

	// The new grade stales any cached GPA for this student.
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, gpaCacheKey("student", req.StudentID, "*")); err != nil {
			s.logger.Warn("invalidate gpa cache", zap.String("student_id", req.StudentID), zap.Error(err))
		}
	}

	s.logger.Info("grade recorded",
		zap.String("grade_id", grade.ID),
		zap.String("assessment_id", req.AssessmentID),
		zap.String("student_id", req.StudentID),
		zap.Float64("score", req.Score),
		zap.String("student_status", string(status)),
	)
	return &RecordGradeResult{Grade: *grade, StudentStatus: status}, nil
}

// ListByStudent returns a student's grades.
func (s *GradeService) ListByStudent(ctx context.Context, studentID string) ([]models.Grade, error) {
	grades, err := s.grades.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, mapStoreError(err, "failed to list grades")
	}
	return grades, nil
}

// CreateAssessment registers a graded activity for a section.
func (s *GradeService) CreateAssessment(ctx context.Context, req CreateAssessmentRequest) (*models.Assessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}
	assessment := &models.Assessment{
		SectionID: req.SectionID,
		Kind:      models.AssessmentKind(req.Kind),
		Title:     req.Title,
		Weight:    req.Weight,
		DueDate:   req.DueDate,
	}
	if err := s.assessments.Create(ctx, assessment); err != nil {
		return nil, mapStoreError(err, "failed to create assessment")
	}
	return assessment, nil
}

// ExportTranscript renders a student's graded work as CSV or PDF.
func (s *GradeService) ExportTranscript(ctx context.Context, studentID, format string) ([]byte, string, error) {
	if !s.exports {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "exports disabled")
	}
	rows, err := s.grades.TranscriptByStudent(ctx, studentID)
	if err != nil {
		return nil, "", mapStoreError(err, "failed to load transcript")
	}

	table := export.Table{
		Title:   fmt.Sprintf("Transcript for student %s", studentID),
		Headers: []string{"Course", "Assessment", "Kind", "Weight", "Score", "Recorded"},
	}
	for _, row := range rows {
		table.Rows = append(table.Rows, []string{
			row.CourseCode,
			row.Title,
			string(row.Kind),
			strconv.FormatFloat(row.Weight, 'f', 1, 64),
			strconv.FormatFloat(row.Score, 'f', 1, 64),
			row.RecordedAt.Format("2006-01-02"),
		})
	}

	switch format {
	case "pdf":
		data, err := export.NewPDFExporter().Render(table)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return data, fmt.Sprintf("transcript-%s.pdf", studentID), nil
	default:
		data, err := export.NewCSVExporter().Render(table)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return data, fmt.Sprintf("transcript-%s.csv", studentID), nil
	}
}

// ListSectionAssessments returns a section's assessments.
func (s *GradeService) ListSectionAssessments(ctx context.Context, sectionID string) ([]models.Assessment, error) {
	assessments, err := s.assessments.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, mapStoreError(err, "failed to list assessments")
	}
	return assessments, nil
}
