package service

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campusworks/registrar-api/internal/models"
	appErrors "github.com/campusworks/registrar-api/pkg/errors"
)

type programReader interface {
	FindProgram(ctx context.Context, id string) (*models.Program, error)
}

type studentStatusWriter interface {
	UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id string, status models.StudentStatus) error
}

type creditSummer interface {
	PassingCreditSumTx(ctx context.Context, tx *sqlx.Tx, studentID string, passingScore float64) (int, error)
}

// StatusService re-evaluates a student's standing after grade postings.
// It runs inside the caller's transaction so status is never observably
// stale to a read that follows the grade commit.
type StatusService struct {
	programs     programReader
	students     studentStatusWriter
	credits      creditSummer
	passingScore float64
	logger       *zap.Logger
}

// NewStatusService constructs StatusService.
func NewStatusService(programs programReader, students studentStatusWriter, credits creditSummer, passingScore float64, logger *zap.Logger) *StatusService {
	if passingScore <= 0 {
		passingScore = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusService{programs: programs, students: students, credits: credits, passingScore: passingScore, logger: logger}
}

// ReevaluateTx recomputes the student's completed credits and transitions
// them to graduated when the program threshold is met. Credits count for
// every enrolled section holding at least one passing grade on any of its
// assessments. Graduated is terminal; the student is never moved out of it.
func (s *StatusService) ReevaluateTx(ctx context.Context, tx *sqlx.Tx, student *models.Student) (models.StudentStatus, error) {
	if student.Status == models.StudentStatusGraduated {
		return student.Status, nil
	}

	credits, err := s.credits.PassingCreditSumTx(ctx, tx, student.ID, s.passingScore)
	if err != nil {
		return student.Status, mapStoreError(err, "failed to sum passing credits")
	}

	program, err := s.programs.FindProgram(ctx, student.ProgramID)
	if err != nil {
		if err == sql.ErrNoRows {
			return student.Status, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return student.Status, mapStoreError(err, "failed to load program")
	}

	if credits < program.RequiredCredits {
		return student.Status, nil
	}

	if err := s.students.UpdateStatusTx(ctx, tx, student.ID, models.StudentStatusGraduated); err != nil {
		return student.Status, mapStoreError(err, "failed to update student status")
	}

	s.logger.Info("student graduated",
		zap.String("student_id", student.ID),
		zap.Int("credits", credits),
		zap.Int("required", program.RequiredCredits),
	)
	return models.StudentStatusGraduated, nil
}
