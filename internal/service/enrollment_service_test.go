package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusworks/registrar-api/internal/models"
	appErrors "github.com/campusworks/registrar-api/pkg/errors"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type mockEnrollmentStore struct {
	enrollments []models.Enrollment
	existing    map[string]bool
}

func (m *mockEnrollmentStore) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	details := make([]models.EnrollmentDetail, 0, len(m.enrollments))
	for _, e := range m.enrollments {
		details = append(details, models.EnrollmentDetail{Enrollment: e})
	}
	return details, len(details), nil
}

func (m *mockEnrollmentStore) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	for _, e := range m.enrollments {
		if e.ID == id {
			return &models.EnrollmentDetail{Enrollment: e}, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentStore) CountBySectionTx(ctx context.Context, tx *sqlx.Tx, sectionID string) (int, error) {
	count := 0
	for _, e := range m.enrollments {
		if e.SectionID == sectionID {
			count++
		}
	}
	return count, nil
}

func (m *mockEnrollmentStore) ExistsTx(ctx context.Context, tx *sqlx.Tx, studentID, sectionID string) (bool, error) {
	for _, e := range m.enrollments {
		if e.StudentID == studentID && e.SectionID == sectionID {
			return true, nil
		}
	}
	return m.existing[studentID+"/"+sectionID], nil
}

func (m *mockEnrollmentStore) CreateTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = fmt.Sprintf("enr-%d", len(m.enrollments)+1)
	}
	m.enrollments = append(m.enrollments, *enrollment)
	return nil
}

type mockSectionCatalog struct {
	section *models.Section
	course  *models.Course
}

func (m *mockSectionCatalog) LockSection(ctx context.Context, tx *sqlx.Tx, id string) (*models.Section, error) {
	if m.section == nil || m.section.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.section, nil
}

func (m *mockSectionCatalog) FindSection(ctx context.Context, id string) (*models.Section, error) {
	if m.section == nil || m.section.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.section, nil
}

func (m *mockSectionCatalog) FindCourse(ctx context.Context, id string) (*models.Course, error) {
	if m.course == nil || m.course.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.course, nil
}

type mockStudentReader struct {
	students map[string]*models.Student
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func activeStudents(ids ...string) *mockStudentReader {
	students := make(map[string]*models.Student, len(ids))
	for _, id := range ids {
		students[id] = &models.Student{ID: id, ProgramID: "p1", Status: models.StudentStatusActive}
	}
	return &mockStudentReader{students: students}
}

func TestEnrollmentServiceEnrollFillsToCapacity(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	repo := &mockEnrollmentStore{}
	sections := &mockSectionCatalog{section: &models.Section{ID: "sec-1", Capacity: 2}}
	svc := NewEnrollmentService(tx, repo, sections, activeStudents("s1", "s2", "s3"), validator.New(), zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	first, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "s1", SectionID: "sec-1"})
	require.NoError(t, err)
	assert.Equal(t, "s1", first.StudentID)

	second, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "s2", SectionID: "sec-1"})
	require.NoError(t, err)
	assert.Equal(t, "s2", second.StudentID)

	_, err = svc.Enroll(context.Background(), EnrollRequest{StudentID: "s3", SectionID: "sec-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.enrollments, 2)
	assert.False(t, appErrors.Retryable(err))
}

func TestEnrollmentServiceEnrollDuplicate(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	repo := &mockEnrollmentStore{existing: map[string]bool{"s1/sec-1": true}}
	sections := &mockSectionCatalog{section: &models.Section{ID: "sec-1", Capacity: 30}}
	svc := NewEnrollmentService(tx, repo, sections, activeStudents("s1"), validator.New(), zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "s1", SectionID: "sec-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateEnrollment.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.enrollments)
}

func TestEnrollmentServiceEnrollUnknownStudent(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	sections := &mockSectionCatalog{section: &models.Section{ID: "sec-1", Capacity: 30}}
	svc := NewEnrollmentService(tx, &mockEnrollmentStore{}, sections, activeStudents(), validator.New(), zap.NewNop())

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "ghost", SectionID: "sec-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollUnknownSection(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	svc := NewEnrollmentService(tx, &mockEnrollmentStore{}, &mockSectionCatalog{}, activeStudents("s1"), validator.New(), zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "s1", SectionID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceRoster(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	repo := &mockEnrollmentStore{enrollments: []models.Enrollment{{ID: "e1", StudentID: "s1", SectionID: "sec-1"}}}
	sections := &mockSectionCatalog{
		section: &models.Section{ID: "sec-1", CourseID: "c1", Capacity: 30},
		course:  &models.Course{ID: "c1", Code: "MATH101", Credits: 4},
	}
	svc := NewEnrollmentService(tx, repo, sections, activeStudents("s1"), validator.New(), zap.NewNop())

	roster, pagination, err := svc.Roster(context.Background(), "sec-1")
	require.NoError(t, err)
	assert.Equal(t, "MATH101", roster.Course.Code)
	assert.Len(t, roster.Enrollments, 1)
	require.NotNil(t, pagination)

	_, _, err = svc.Roster(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceListPagination(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	repo := &mockEnrollmentStore{enrollments: []models.Enrollment{{ID: "e1", StudentID: "s1", SectionID: "sec-1"}}}
	svc := NewEnrollmentService(tx, repo, &mockSectionCatalog{}, activeStudents("s1"), validator.New(), zap.NewNop())

	details, pagination, err := svc.List(context.Background(), models.EnrollmentFilter{})
	require.NoError(t, err)
	assert.Len(t, details, 1)
	require.NotNil(t, pagination)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
}
