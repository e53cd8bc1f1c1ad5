package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusworks/registrar-api/internal/models"
)

// PaymentRepository persists payments and their append-only audit log.
// The log mirror is written in the same transaction as the payment;
// nothing in this repository updates or deletes log rows.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// CreateTx persists a payment within the supplied transaction.
func (r *PaymentRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	const query = `INSERT INTO payments (id, student_id, term_id, amount, paid_at, method, invoice)
        VALUES (:id, :student_id, :term_id, :amount, :paid_at, :method, :invoice)`
	if _, err := tx.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// AppendLogTx writes the audit mirror for a payment within the same
// transaction, stamping its own creation time.
func (r *PaymentRepository) AppendLogTx(ctx context.Context, tx *sqlx.Tx, payment *models.Payment) (*models.PaymentLogEntry, error) {
	entry := &models.PaymentLogEntry{
		ID:        uuid.NewString(),
		PaymentID: payment.ID,
		StudentID: payment.StudentID,
		TermID:    payment.TermID,
		Amount:    payment.Amount,
		PaidAt:    payment.PaidAt,
		Method:    payment.Method,
		Invoice:   payment.Invoice,
		LoggedAt:  time.Now().UTC(),
	}
	const query = `INSERT INTO payment_log (id, payment_id, student_id, term_id, amount, paid_at, method, invoice, logged_at)
        VALUES (:id, :payment_id, :student_id, :term_id, :amount, :paid_at, :method, :invoice, :logged_at)`
	if _, err := tx.NamedExecContext(ctx, query, entry); err != nil {
		return nil, fmt.Errorf("append payment log: %w", err)
	}
	return entry, nil
}

// ListByStudent returns a student's payments, most recent date first.
func (r *PaymentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error) {
	const query = `SELECT id, student_id, term_id, amount, paid_at, method, invoice FROM payments WHERE student_id = $1 ORDER BY paid_at DESC, id`
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student payments: %w", err)
	}
	return payments, nil
}

// MethodSummary aggregates the audit log by payment method.
func (r *PaymentRepository) MethodSummary(ctx context.Context) ([]models.PaymentMethodSummary, error) {
	const query = `SELECT method, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total
        FROM payment_log
        GROUP BY method
        ORDER BY total DESC`
	var summaries []models.PaymentMethodSummary
	if err := r.db.SelectContext(ctx, &summaries, query); err != nil {
		return nil, fmt.Errorf("payment method summary: %w", err)
	}
	return summaries, nil
}

// TermSummary aggregates the audit log by term.
func (r *PaymentRepository) TermSummary(ctx context.Context) ([]models.PaymentTermSummary, error) {
	const query = `SELECT l.term_id, t.name AS term_name, COUNT(*) AS count, COALESCE(SUM(l.amount), 0) AS total
        FROM payment_log l
        LEFT JOIN terms t ON t.id = l.term_id
        GROUP BY l.term_id, t.name
        ORDER BY total DESC`
	var summaries []models.PaymentTermSummary
	if err := r.db.SelectContext(ctx, &summaries, query); err != nil {
		return nil, fmt.Errorf("payment term summary: %w", err)
	}
	return summaries, nil
}
