package models

import "time"

// StudentStatus represents the lifecycle state of a student record.
type StudentStatus string

// Possible student statuses. Graduated is terminal: no transition leaves it.
const (
	StudentStatusActive    StudentStatus = "ACTIVE"
	StudentStatusInactive  StudentStatus = "INACTIVE"
	StudentStatusGraduated StudentStatus = "GRADUATED"
)

// Student is an enrolled person tracked by the registrar.
// Status is mutated by the engine only, never directly by clients.
type Student struct {
	ID        string        `db:"id" json:"id"`
	ProgramID string        `db:"program_id" json:"program_id"`
	FullName  string        `db:"full_name" json:"full_name"`
	Status    StudentStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// Program defines the credit threshold a student must reach to graduate.
type Program struct {
	ID              string `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	RequiredCredits int    `db:"required_credits" json:"required_credits"`
}
