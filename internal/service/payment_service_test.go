package service

import (
	"context"
	"database/sql"
	"encoding/json"
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

type mockPaymentStore struct {
	payments []models.Payment
	logged   []models.PaymentLogEntry
}

func (m *mockPaymentStore) CreateTx(ctx context.Context, tx *sqlx.Tx, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = "pay-1"
	}
	m.payments = append(m.payments, *payment)
	return nil
}

func (m *mockPaymentStore) AppendLogTx(ctx context.Context, tx *sqlx.Tx, payment *models.Payment) (*models.PaymentLogEntry, error) {
	entry := models.PaymentLogEntry{
		ID:        "log-1",
		PaymentID: payment.ID,
		StudentID: payment.StudentID,
		TermID:    payment.TermID,
		Amount:    payment.Amount,
		PaidAt:    payment.PaidAt,
		Method:    payment.Method,
		Invoice:   payment.Invoice,
		LoggedAt:  time.Now().UTC(),
	}
	m.logged = append(m.logged, entry)
	return &entry, nil
}

func (m *mockPaymentStore) ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range m.payments {
		if p.StudentID == studentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPaymentStore) MethodSummary(ctx context.Context) ([]models.PaymentMethodSummary, error) {
	return nil, nil
}

func (m *mockPaymentStore) TermSummary(ctx context.Context) ([]models.PaymentTermSummary, error) {
	return nil, nil
}

type mockTermReader struct{}

func (mockTermReader) FindTerm(ctx context.Context, id string) (*models.Term, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &models.Term{ID: id}, nil
}

func paymentRequest() RecordPaymentRequest {
	return RecordPaymentRequest{
		StudentID: "s1",
		TermID:    "t1",
		Amount:    1500,
		PaidAt:    time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC),
		Method:    "transfer",
		Invoice:   json.RawMessage(`{"number":"INV-42"}`),
	}
}

func TestPaymentServiceRecordMirrorsLogEntry(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	repo := &mockPaymentStore{}
	svc := NewPaymentService(tx, repo, activeStudents("s1"), mockTermReader{}, false, validator.New(), zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.RecordPayment(context.Background(), paymentRequest())
	require.NoError(t, err)

	assert.Equal(t, result.Payment.ID, result.LogEntry.PaymentID)
	assert.Equal(t, result.Payment.StudentID, result.LogEntry.StudentID)
	assert.Equal(t, result.Payment.TermID, result.LogEntry.TermID)
	assert.Equal(t, result.Payment.Amount, result.LogEntry.Amount)
	assert.Equal(t, result.Payment.Method, result.LogEntry.Method)
	assert.JSONEq(t, string(result.Payment.Invoice), string(result.LogEntry.Invoice))
	require.Len(t, repo.logged, 1)
}

func TestPaymentServiceRecordNegativeAmount(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	repo := &mockPaymentStore{}
	svc := NewPaymentService(tx, repo, activeStudents("s1"), mockTermReader{}, false, validator.New(), zap.NewNop())

	req := paymentRequest()
	req.Amount = -10

	_, err := svc.RecordPayment(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidPayment.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.payments)
	assert.Empty(t, repo.logged)
}

func TestPaymentServiceRecordUnknownMethod(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	svc := NewPaymentService(tx, &mockPaymentStore{}, activeStudents("s1"), mockTermReader{}, false, validator.New(), zap.NewNop())

	req := paymentRequest()
	req.Method = "barter"

	_, err := svc.RecordPayment(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidPayment.Code, appErrors.FromError(err).Code)
}

func TestPaymentServiceRecordUnknownTerm(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	svc := NewPaymentService(tx, &mockPaymentStore{}, activeStudents("s1"), mockTermReader{}, false, validator.New(), zap.NewNop())

	req := paymentRequest()
	req.TermID = "missing"

	_, err := svc.RecordPayment(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPaymentServiceExportDisabled(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	svc := NewPaymentService(tx, &mockPaymentStore{}, activeStudents("s1"), mockTermReader{}, false, validator.New(), zap.NewNop())

	_, _, err := svc.ExportStudentPayments(context.Background(), "s1", "csv")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestPaymentServiceExportCSV(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	repo := &mockPaymentStore{}
	svc := NewPaymentService(tx, repo, activeStudents("s1"), mockTermReader{}, true, validator.New(), zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectCommit()
	_, err := svc.RecordPayment(context.Background(), paymentRequest())
	require.NoError(t, err)

	data, filename, err := svc.ExportStudentPayments(context.Background(), "s1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "payments-s1.csv", filename)
	assert.Contains(t, string(data), "pay-1")
	assert.Contains(t, string(data), "1500.00")
}
