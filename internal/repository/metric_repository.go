package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/campusworks/registrar-api/internal/models"
)

// MetricRepository exposes read-only aggregation queries for the GPA and
// ranking surfaces. These run outside write transactions and tolerate
// slightly stale input.
type MetricRepository struct {
	db *sqlx.DB
}

// NewMetricRepository instantiates the repository.
func NewMetricRepository(db *sqlx.DB) *MetricRepository {
	return &MetricRepository{db: db}
}

// StudentWeightedRows returns (score, weight) pairs for one student,
// optionally filtered to assessments of one term's sections.
func (r *MetricRepository) StudentWeightedRows(ctx context.Context, studentID, termID string) ([]models.WeightedGrade, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT g.score, a.weight
        FROM grades g
        JOIN assessments a ON a.id = g.assessment_id`)
	args := []interface{}{studentID}
	if termID != "" {
		builder.WriteString(" JOIN sections se ON se.id = a.section_id")
	}
	builder.WriteString(" WHERE g.student_id = $1")
	if termID != "" {
		args = append(args, termID)
		builder.WriteString(fmt.Sprintf(" AND se.term_id = $%d", len(args)))
	}

	var rows []models.WeightedGrade
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query weighted grades: %w", err)
	}
	return rows, nil
}

// CohortGPAs computes the weighted GPA per student for a program cohort,
// optionally scoped to one term. Rows arrive ordered by GPA descending
// with the student id as tie-break so ranking stays deterministic.
func (r *MetricRepository) CohortGPAs(ctx context.Context, programID, termID string) ([]models.StudentGPA, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT g.student_id, st.program_id,
        SUM(g.score * a.weight) / SUM(a.weight) AS gpa
        FROM grades g
        JOIN assessments a ON a.id = g.assessment_id
        JOIN sections se ON se.id = a.section_id
        JOIN students st ON st.id = g.student_id
        WHERE st.program_id = $1`)
	args := []interface{}{programID}
	if termID != "" {
		args = append(args, termID)
		builder.WriteString(fmt.Sprintf(" AND se.term_id = $%d", len(args)))
	}
	builder.WriteString(` GROUP BY g.student_id, st.program_id
        HAVING SUM(a.weight) > 0
        ORDER BY gpa DESC, g.student_id`)

	var rows []models.StudentGPA
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query cohort gpas: %w", err)
	}
	return rows, nil
}

// TermGPAs computes per-student weighted GPAs for every program in one
// term, grouped so the service can compare each student against their own
// (program, term) cohort mean.
func (r *MetricRepository) TermGPAs(ctx context.Context, termID string) ([]models.StudentGPA, error) {
	const query = `SELECT g.student_id, st.program_id,
        SUM(g.score * a.weight) / SUM(a.weight) AS gpa
        FROM grades g
        JOIN assessments a ON a.id = g.assessment_id
        JOIN sections se ON se.id = a.section_id
        JOIN students st ON st.id = g.student_id
        WHERE se.term_id = $1
        GROUP BY g.student_id, st.program_id
        HAVING SUM(a.weight) > 0
        ORDER BY st.program_id, gpa DESC, g.student_id`
	var rows []models.StudentGPA
	if err := r.db.SelectContext(ctx, &rows, query, termID); err != nil {
		return nil, fmt.Errorf("query term gpas: %w", err)
	}
	return rows, nil
}
