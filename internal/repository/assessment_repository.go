package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusworks/registrar-api/internal/models"
)

// AssessmentRepository handles persistence of assessments.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository constructs the repository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// FindByID returns an assessment by ID.
func (r *AssessmentRepository) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	const query = `SELECT id, section_id, kind, title, weight, due_date FROM assessments WHERE id = $1`
	var assessment models.Assessment
	if err := r.db.GetContext(ctx, &assessment, query, id); err != nil {
		return nil, err
	}
	return &assessment, nil
}

// ListBySection returns a section's assessments ordered by due date.
func (r *AssessmentRepository) ListBySection(ctx context.Context, sectionID string) ([]models.Assessment, error) {
	const query = `SELECT id, section_id, kind, title, weight, due_date FROM assessments WHERE section_id = $1 ORDER BY due_date, id`
	var assessments []models.Assessment
	if err := r.db.SelectContext(ctx, &assessments, query, sectionID); err != nil {
		return nil, fmt.Errorf("list section assessments: %w", err)
	}
	return assessments, nil
}

// Create persists a new assessment.
func (r *AssessmentRepository) Create(ctx context.Context, assessment *models.Assessment) error {
	if assessment.ID == "" {
		assessment.ID = uuid.NewString()
	}
	const query = `INSERT INTO assessments (id, section_id, kind, title, weight, due_date)
        VALUES (:id, :section_id, :kind, :title, :weight, :due_date)`
	if _, err := r.db.NamedExecContext(ctx, query, assessment); err != nil {
		return fmt.Errorf("create assessment: %w", err)
	}
	return nil
}
