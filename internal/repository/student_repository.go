package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campusworks/registrar-api/internal/models"
)

// StudentRepository manages persistence for student and program records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, program_id, full_name, status, created_at, updated_at FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindProgram returns a program by ID.
func (r *StudentRepository) FindProgram(ctx context.Context, id string) (*models.Program, error) {
	const query = `SELECT id, name, required_credits FROM programs WHERE id = $1`
	var program models.Program
	if err := r.db.GetContext(ctx, &program, query, id); err != nil {
		return nil, err
	}
	return &program, nil
}

// LockStudent loads a student while holding a row lock within the
// transaction. Status transitions are evaluated under this lock.
func (r *StudentRepository) LockStudent(ctx context.Context, tx *sqlx.Tx, id string) (*models.Student, error) {
	const query = `SELECT id, program_id, full_name, status, created_at, updated_at FROM students WHERE id = $1 FOR UPDATE`
	var student models.Student
	if err := tx.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// UpdateStatusTx sets the student status within the supplied transaction.
func (r *StudentRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id string, status models.StudentStatus) error {
	const query = `UPDATE students SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student status: %w", err)
	}
	return nil
}
