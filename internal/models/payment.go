package models

import (
	"encoding/json"
	"time"
)

// Payment is a financial transaction by a student for a term.
// Immutable once logged.
type Payment struct {
	ID        string          `db:"id" json:"id"`
	StudentID string          `db:"student_id" json:"student_id"`
	TermID    string          `db:"term_id" json:"term_id"`
	Amount    float64         `db:"amount" json:"amount"`
	PaidAt    time.Time       `db:"paid_at" json:"paid_at"`
	Method    string          `db:"method" json:"method"`
	Invoice   json.RawMessage `db:"invoice" json:"invoice,omitempty"`
}

// PaymentLogEntry is the append-only mirror written transactionally with
// every payment. Entries are never updated or deleted.
type PaymentLogEntry struct {
	ID        string          `db:"id" json:"id"`
	PaymentID string          `db:"payment_id" json:"payment_id"`
	StudentID string          `db:"student_id" json:"student_id"`
	TermID    string          `db:"term_id" json:"term_id"`
	Amount    float64         `db:"amount" json:"amount"`
	PaidAt    time.Time       `db:"paid_at" json:"paid_at"`
	Method    string          `db:"method" json:"method"`
	Invoice   json.RawMessage `db:"invoice" json:"invoice,omitempty"`
	LoggedAt  time.Time       `db:"logged_at" json:"logged_at"`
}

// PaymentMethodSummary aggregates logged payments by method.
type PaymentMethodSummary struct {
	Method string  `db:"method" json:"method"`
	Count  int     `db:"count" json:"count"`
	Total  float64 `db:"total" json:"total"`
}

// PaymentTermSummary aggregates logged payments by term.
type PaymentTermSummary struct {
	TermID   string  `db:"term_id" json:"term_id"`
	TermName string  `db:"term_name" json:"term_name"`
	Count    int     `db:"count" json:"count"`
	Total    float64 `db:"total" json:"total"`
}
