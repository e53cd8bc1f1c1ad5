package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusworks/registrar-api/internal/models"
	appErrors "github.com/campusworks/registrar-api/pkg/errors"
)

type mockGradeStore struct {
	grades     []models.Grade
	transcript []models.TranscriptRow
	existing   bool
}

func (m *mockGradeStore) ExistsTx(ctx context.Context, tx *sqlx.Tx, assessmentID, studentID string) (bool, error) {
	return m.existing, nil
}

func (m *mockGradeStore) CreateTx(ctx context.Context, tx *sqlx.Tx, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = "grade-1"
	}
	grade.RecordedAt = time.Now().UTC()
	m.grades = append(m.grades, *grade)
	return nil
}

func (m *mockGradeStore) ListByStudent(ctx context.Context, studentID string) ([]models.Grade, error) {
	return m.grades, nil
}

func (m *mockGradeStore) TranscriptByStudent(ctx context.Context, studentID string) ([]models.TranscriptRow, error) {
	return m.transcript, nil
}

type mockAssessmentReader struct {
	assessments map[string]*models.Assessment
}

func (m *mockAssessmentReader) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	if a, ok := m.assessments[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssessmentReader) ListBySection(ctx context.Context, sectionID string) ([]models.Assessment, error) {
	var out []models.Assessment
	for _, a := range m.assessments {
		if a.SectionID == sectionID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAssessmentReader) Create(ctx context.Context, assessment *models.Assessment) error {
	if m.assessments == nil {
		m.assessments = make(map[string]*models.Assessment)
	}
	if assessment.ID == "" {
		assessment.ID = "assess-new"
	}
	m.assessments[assessment.ID] = assessment
	return nil
}

type mockStudentLocker struct {
	student *models.Student
}

func (m *mockStudentLocker) LockStudent(ctx context.Context, tx *sqlx.Tx, id string) (*models.Student, error) {
	if m.student == nil || m.student.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.student, nil
}

type mockProgramReader struct {
	program *models.Program
}

func (m *mockProgramReader) FindProgram(ctx context.Context, id string) (*models.Program, error) {
	if m.program == nil || m.program.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.program, nil
}

type mockStatusWriter struct {
	updates map[string]models.StudentStatus
}

func (m *mockStatusWriter) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id string, status models.StudentStatus) error {
	if m.updates == nil {
		m.updates = make(map[string]models.StudentStatus)
	}
	m.updates[id] = status
	return nil
}

type mockCreditSummer struct {
	credits int
	calls   int
}

func (m *mockCreditSummer) PassingCreditSumTx(ctx context.Context, tx *sqlx.Tx, studentID string, passingScore float64) (int, error) {
	m.calls++
	return m.credits, nil
}

func TestGradeServiceRecordTriggersGraduation(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	grades := &mockGradeStore{}
	assessments := &mockAssessmentReader{assessments: map[string]*models.Assessment{"a1": {ID: "a1", SectionID: "sec-1", Weight: 100}}}
	students := &mockStudentLocker{student: &models.Student{ID: "s1", ProgramID: "p1", Status: models.StudentStatusActive}}
	writer := &mockStatusWriter{}
	credits := &mockCreditSummer{credits: 120}
	statuses := NewStatusService(&mockProgramReader{program: &models.Program{ID: "p1", RequiredCredits: 120}}, writer, credits, 50, zap.NewNop())
	svc := NewGradeService(tx, grades, assessments, students, statuses, nil, false, validator.New(), zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.Record(context.Background(), RecordGradeRequest{AssessmentID: "a1", StudentID: "s1", Score: 88})
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusGraduated, result.StudentStatus)
	assert.Equal(t, models.StudentStatusGraduated, writer.updates["s1"])
	require.Len(t, grades.grades, 1)
	assert.Equal(t, 88.0, grades.grades[0].Score)
}

func TestGradeServiceRecordBelowThresholdKeepsStatus(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	grades := &mockGradeStore{}
	assessments := &mockAssessmentReader{assessments: map[string]*models.Assessment{"a1": {ID: "a1", SectionID: "sec-1", Weight: 100}}}
	students := &mockStudentLocker{student: &models.Student{ID: "s1", ProgramID: "p1", Status: models.StudentStatusActive}}
	writer := &mockStatusWriter{}
	statuses := NewStatusService(&mockProgramReader{program: &models.Program{ID: "p1", RequiredCredits: 120}}, writer, &mockCreditSummer{credits: 90}, 50, zap.NewNop())
	svc := NewGradeService(tx, grades, assessments, students, statuses, nil, false, validator.New(), zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.Record(context.Background(), RecordGradeRequest{AssessmentID: "a1", StudentID: "s1", Score: 40})
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusActive, result.StudentStatus)
	assert.Empty(t, writer.updates)
}

func TestGradeServiceRecordDuplicate(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	grades := &mockGradeStore{existing: true}
	assessments := &mockAssessmentReader{assessments: map[string]*models.Assessment{"a1": {ID: "a1", SectionID: "sec-1"}}}
	students := &mockStudentLocker{student: &models.Student{ID: "s1", ProgramID: "p1", Status: models.StudentStatusActive}}
	statuses := NewStatusService(&mockProgramReader{}, &mockStatusWriter{}, &mockCreditSummer{}, 50, zap.NewNop())
	svc := NewGradeService(tx, grades, assessments, students, statuses, nil, false, validator.New(), zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Record(context.Background(), RecordGradeRequest{AssessmentID: "a1", StudentID: "s1", Score: 75})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateGrade.Code, appErrors.FromError(err).Code)
	assert.Empty(t, grades.grades)
}

func TestGradeServiceRecordScoreOutOfRange(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	statuses := NewStatusService(&mockProgramReader{}, &mockStatusWriter{}, &mockCreditSummer{}, 50, zap.NewNop())
	svc := NewGradeService(tx, &mockGradeStore{}, &mockAssessmentReader{}, &mockStudentLocker{}, statuses, nil, false, validator.New(), zap.NewNop())

	for _, score := range []float64{-1, 100.5} {
		_, err := svc.Record(context.Background(), RecordGradeRequest{AssessmentID: "a1", StudentID: "s1", Score: score})
		require.Error(t, err, "score %v", score)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestGradeServiceRecordUnknownAssessment(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	statuses := NewStatusService(&mockProgramReader{}, &mockStatusWriter{}, &mockCreditSummer{}, 50, zap.NewNop())
	svc := NewGradeService(tx, &mockGradeStore{}, &mockAssessmentReader{}, &mockStudentLocker{}, statuses, nil, false, validator.New(), zap.NewNop())

	_, err := svc.Record(context.Background(), RecordGradeRequest{AssessmentID: "ghost", StudentID: "s1", Score: 75})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStatusServiceGraduatedIsTerminal(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	credits := &mockCreditSummer{credits: 0}
	writer := &mockStatusWriter{}
	statuses := NewStatusService(&mockProgramReader{}, writer, credits, 50, zap.NewNop())

	mock.ExpectBegin()
	sqlxTx, err := tx.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	student := &models.Student{ID: "s1", ProgramID: "p1", Status: models.StudentStatusGraduated}
	status, err := statuses.ReevaluateTx(context.Background(), sqlxTx, student)
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusGraduated, status)
	assert.Zero(t, credits.calls)
	assert.Empty(t, writer.updates)
}

func TestGradeServiceExportTranscriptDisabled(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	statuses := NewStatusService(&mockProgramReader{}, &mockStatusWriter{}, &mockCreditSummer{}, 50, zap.NewNop())
	svc := NewGradeService(tx, &mockGradeStore{}, &mockAssessmentReader{}, &mockStudentLocker{}, statuses, nil, false, validator.New(), zap.NewNop())

	_, _, err := svc.ExportTranscript(context.Background(), "s1", "csv")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestGradeServiceExportTranscriptCSV(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	grades := &mockGradeStore{transcript: []models.TranscriptRow{
		{CourseCode: "MATH101", Title: "Final", Kind: models.AssessmentExam, Weight: 40, Score: 88, RecordedAt: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)},
	}}
	statuses := NewStatusService(&mockProgramReader{}, &mockStatusWriter{}, &mockCreditSummer{}, 50, zap.NewNop())
	svc := NewGradeService(tx, grades, &mockAssessmentReader{}, &mockStudentLocker{}, statuses, nil, true, validator.New(), zap.NewNop())

	data, filename, err := svc.ExportTranscript(context.Background(), "s1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "transcript-s1.csv", filename)
	assert.Contains(t, string(data), "MATH101")
	assert.Contains(t, string(data), "88.0")
}

func TestGradeServiceCreateAssessment(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	assessments := &mockAssessmentReader{}
	statuses := NewStatusService(&mockProgramReader{}, &mockStatusWriter{}, &mockCreditSummer{}, 50, zap.NewNop())
	svc := NewGradeService(tx, &mockGradeStore{}, assessments, &mockStudentLocker{}, statuses, nil, false, validator.New(), zap.NewNop())

	assessment, err := svc.CreateAssessment(context.Background(), CreateAssessmentRequest{
		SectionID: "sec-1",
		Kind:      "EXAM",
		Title:     "Final",
		Weight:    40,
		DueDate:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, models.AssessmentExam, assessment.Kind)
	assert.Len(t, assessments.assessments, 1)
}
