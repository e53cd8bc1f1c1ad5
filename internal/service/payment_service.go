package service

import (
	"context"
	"database/sql"
	"encoding/json"
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

type paymentStore interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, payment *models.Payment) error
	AppendLogTx(ctx context.Context, tx *sqlx.Tx, payment *models.Payment) (*models.PaymentLogEntry, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error)
	MethodSummary(ctx context.Context) ([]models.PaymentMethodSummary, error)
	TermSummary(ctx context.Context) ([]models.PaymentTermSummary, error)
}

type termReader interface {
	FindTerm(ctx context.Context, id string) (*models.Term, error)
}

// RecordPaymentRequest describes an incoming payment.
type RecordPaymentRequest struct {
	StudentID string          `json:"student_id" validate:"required"`
	TermID    string          `json:"term_id" validate:"required"`
	Amount    float64         `json:"amount"`
	PaidAt    time.Time       `json:"paid_at" validate:"required"`
	Method    string          `json:"method" validate:"required,oneof=cash card transfer scholarship"`
	Invoice   json.RawMessage `json:"invoice"`
}

// PaymentResult pairs the stored payment with its audit mirror.
type PaymentResult struct {
	Payment  models.Payment         `json:"payment"`
	LogEntry models.PaymentLogEntry `json:"log_entry"`
}

// PaymentService records payments and mirrors each one into the
// append-only audit log in the same transaction; both rows commit or
// neither does.
type PaymentService struct {
	tx        txProvider
	repo      paymentStore
	students  studentReader
	terms     termReader
	exports   bool
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(tx txProvider, repo paymentStore, students studentReader, terms termReader, exportsEnabled bool, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{tx: tx, repo: repo, students: students, terms: terms, exports: exportsEnabled, validator: validate, logger: logger}
}

// RecordPayment persists a payment and its log entry atomically.
func (s *PaymentService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidPayment.Code, appErrors.ErrInvalidPayment.Status, "invalid payment payload")
	}
	if req.Amount < 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidPayment, "amount must not be negative")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, mapStoreError(err, "failed to load student")
	}
	if _, err := s.terms.FindTerm(ctx, req.TermID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, mapStoreError(err, "failed to load term")
	}

	payment := &models.Payment{
		StudentID: req.StudentID,
		TermID:    req.TermID,
		Amount:    req.Amount,
		PaidAt:    req.PaidAt.UTC(),
		Method:    req.Method,
		Invoice:   req.Invoice,
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, mapStoreError(err, "failed to begin payment transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := s.repo.CreateTx(ctx, tx, payment); err != nil {
		return nil, mapStoreError(err, "failed to create payment")
	}
	entry, err := s.repo.AppendLogTx(ctx, tx, payment)
	if err != nil {
		return nil, mapStoreError(err, "failed to append payment log")
	}
	if err := tx.Commit(); err != nil {
		return nil, mapStoreError(err, "failed to commit payment")
	}

	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("student_id", payment.StudentID),
		zap.Float64("amount", payment.Amount),
		zap.String("method", payment.Method),
	)
	return &PaymentResult{Payment: *payment, LogEntry: *entry}, nil
}

// SummarizePayments returns a student's payments, most recent date first.
func (s *PaymentService) SummarizePayments(ctx context.Context, studentID string) ([]models.Payment, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, mapStoreError(err, "failed to load student")
	}
	payments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, mapStoreError(err, "failed to list payments")
	}
	return payments, nil
}

// MethodSummary aggregates logged payments by method.
func (s *PaymentService) MethodSummary(ctx context.Context) ([]models.PaymentMethodSummary, error) {
	summaries, err := s.repo.MethodSummary(ctx)
	if err != nil {
		return nil, mapStoreError(err, "failed to summarize by method")
	}
	return summaries, nil
}

// TermSummary aggregates logged payments by term.
func (s *PaymentService) TermSummary(ctx context.Context) ([]models.PaymentTermSummary, error) {
	summaries, err := s.repo.TermSummary(ctx)
	if err != nil {
		return nil, mapStoreError(err, "failed to summarize by term")
	}
	return summaries, nil
}

// ExportStudentPayments renders a student's payment history as CSV or PDF.
func (s *PaymentService) ExportStudentPayments(ctx context.Context, studentID, format string) ([]byte, string, error) {
	if !s.exports {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "exports disabled")
	}
	payments, err := s.SummarizePayments(ctx, studentID)
	if err != nil {
		return nil, "", err
	}

	table := export.Table{
		Title:   fmt.Sprintf("Payments for student %s", studentID),
		Headers: []string{"Payment ID", "Term", "Amount", "Date", "Method"},
	}
	for _, p := range payments {
		table.Rows = append(table.Rows, []string{
			p.ID,
			p.TermID,
			strconv.FormatFloat(p.Amount, 'f', 2, 64),
			p.PaidAt.Format("2006-01-02"),
			p.Method,
		})
	}

	switch format {
	case "pdf":
		data, err := export.NewPDFExporter().Render(table)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return data, fmt.Sprintf("payments-%s.pdf", studentID), nil
	default:
		data, err := export.NewCSVExporter().Render(table)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return data, fmt.Sprintf("payments-%s.csv", studentID), nil
	}
}
