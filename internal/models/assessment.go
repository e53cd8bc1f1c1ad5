package models

import "time"

// AssessmentKind classifies graded work.
type AssessmentKind string

const (
	AssessmentQuiz       AssessmentKind = "QUIZ"
	AssessmentExam       AssessmentKind = "EXAM"
	AssessmentAssignment AssessmentKind = "ASSIGNMENT"
)

// Assessment is a graded activity within a section. Weight is a percentage
// contribution to the section grade, in [0, 100].
type Assessment struct {
	ID        string         `db:"id" json:"id"`
	SectionID string         `db:"section_id" json:"section_id"`
	Kind      AssessmentKind `db:"kind" json:"kind"`
	Title     string         `db:"title" json:"title"`
	Weight    float64        `db:"weight" json:"weight"`
	DueDate   time.Time      `db:"due_date" json:"due_date"`
}

// Grade records a score for one student on one assessment. At most one
// grade exists per (assessment, student) pair.
type Grade struct {
	ID           string    `db:"id" json:"id"`
	AssessmentID string    `db:"assessment_id" json:"assessment_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	Score        float64   `db:"score" json:"score"`
	RecordedAt   time.Time `db:"recorded_at" json:"recorded_at"`
}

// TranscriptRow joins a grade with its assessment and course for export.
type TranscriptRow struct {
	CourseCode string         `db:"course_code" json:"course_code"`
	Title      string         `db:"title" json:"title"`
	Kind       AssessmentKind `db:"kind" json:"kind"`
	Weight     float64        `db:"weight" json:"weight"`
	Score      float64        `db:"score" json:"score"`
	RecordedAt time.Time      `db:"recorded_at" json:"recorded_at"`
}

// WeightedGrade joins a grade with its assessment weight for aggregation.
type WeightedGrade struct {
	Score  float64 `db:"score" json:"score"`
	Weight float64 `db:"weight" json:"weight"`
}
