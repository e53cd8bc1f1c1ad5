package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusworks/registrar-api/internal/models"
)

// GradeRepository handles persistence of grades and the aggregate queries
// derived from them.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// ExistsTx checks whether a grade already exists for the pair.
func (r *GradeRepository) ExistsTx(ctx context.Context, tx *sqlx.Tx, assessmentID, studentID string) (bool, error) {
	const query = `SELECT 1 FROM grades WHERE assessment_id = $1 AND student_id = $2 LIMIT 1`
	var exists int
	if err := tx.GetContext(ctx, &exists, query, assessmentID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check grade: %w", err)
	}
	return true, nil
}

// CreateTx persists a new grade within the supplied transaction.
func (r *GradeRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	if grade.RecordedAt.IsZero() {
		grade.RecordedAt = time.Now().UTC()
	}
	const query = `INSERT INTO grades (id, assessment_id, student_id, score, recorded_at)
        VALUES (:id, :assessment_id, :student_id, :score, :recorded_at)`
	if _, err := tx.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// ListByStudent returns a student's grades, newest first.
func (r *GradeRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Grade, error) {
	const query = `SELECT id, assessment_id, student_id, score, recorded_at FROM grades WHERE student_id = $1 ORDER BY recorded_at DESC, id`
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, studentID); err != nil {
		return nil, fmt.Errorf("list student grades: %w", err)
	}
	return grades, nil
}

// TranscriptByStudent returns a student's graded work joined with its
// assessment and course, oldest first.
func (r *GradeRepository) TranscriptByStudent(ctx context.Context, studentID string) ([]models.TranscriptRow, error) {
	const query = `SELECT c.code AS course_code, a.title, a.kind, a.weight, g.score, g.recorded_at
        FROM grades g
        JOIN assessments a ON a.id = g.assessment_id
        JOIN sections se ON se.id = a.section_id
        JOIN courses c ON c.id = se.course_id
        WHERE g.student_id = $1
        ORDER BY g.recorded_at, g.id`
	var rows []models.TranscriptRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	return rows, nil
}

// PassingCreditSumTx sums credits of courses whose sections the student is
// enrolled in and where at least one of the section's assessments carries a
// passing grade for the student. Credits count per enrolled section, not
// per passed assessment.
func (r *GradeRepository) PassingCreditSumTx(ctx context.Context, tx *sqlx.Tx, studentID string, passingScore float64) (int, error) {
	const query = `SELECT COALESCE(SUM(c.credits), 0)
        FROM enrollments e
        JOIN sections se ON se.id = e.section_id
        JOIN courses c ON c.id = se.course_id
        WHERE e.student_id = $1
        AND EXISTS (
            SELECT 1 FROM grades g
            JOIN assessments a ON a.id = g.assessment_id
            WHERE a.section_id = se.id AND g.student_id = $1 AND g.score >= $2
        )`
	var credits int
	if err := tx.GetContext(ctx, &credits, query, studentID, passingScore); err != nil {
		return 0, fmt.Errorf("sum passing credits: %w", err)
	}
	return credits, nil
}
