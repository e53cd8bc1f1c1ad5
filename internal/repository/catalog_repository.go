package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/campusworks/registrar-api/internal/models"
)

// CatalogRepository serves reference entities the engine validates against:
// courses, terms, rooms, instructors and sections.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindCourse returns a course by ID.
func (r *CatalogRepository) FindCourse(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, code, title, credits FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindTerm returns a term by ID.
func (r *CatalogRepository) FindTerm(ctx context.Context, id string) (*models.Term, error) {
	const query = `SELECT id, name FROM terms WHERE id = $1`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, id); err != nil {
		return nil, err
	}
	return &term, nil
}

// FindRoom returns a room by ID.
func (r *CatalogRepository) FindRoom(ctx context.Context, id string) (*models.Room, error) {
	const query = `SELECT id, name, capacity FROM rooms WHERE id = $1`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// FindInstructor returns an instructor by ID.
func (r *CatalogRepository) FindInstructor(ctx context.Context, id string) (*models.Instructor, error) {
	const query = `SELECT id, full_name FROM instructors WHERE id = $1`
	var instructor models.Instructor
	if err := r.db.GetContext(ctx, &instructor, query, id); err != nil {
		return nil, err
	}
	return &instructor, nil
}

// FindSection returns a section by ID.
func (r *CatalogRepository) FindSection(ctx context.Context, id string) (*models.Section, error) {
	const query = `SELECT id, course_id, term_id, capacity FROM sections WHERE id = $1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// LockSection loads a section while holding a row lock for the duration of
// the transaction. Serialises concurrent enrollment against one section.
func (r *CatalogRepository) LockSection(ctx context.Context, tx *sqlx.Tx, id string) (*models.Section, error) {
	const query = `SELECT id, course_id, term_id, capacity FROM sections WHERE id = $1 FOR UPDATE`
	var section models.Section
	if err := tx.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// LockInstructor acquires a row lock on the instructor for the duration of
// the transaction. Serialises concurrent slot assignment per instructor.
func (r *CatalogRepository) LockInstructor(ctx context.Context, tx *sqlx.Tx, id string) error {
	const query = `SELECT id FROM instructors WHERE id = $1 FOR UPDATE`
	var locked string
	if err := tx.GetContext(ctx, &locked, query, id); err != nil {
		return err
	}
	return nil
}
