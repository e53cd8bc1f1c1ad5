package models

import "time"

// StudentGPA is a per-student weighted GPA row produced by aggregation.
type StudentGPA struct {
	StudentID string  `db:"student_id" json:"student_id"`
	ProgramID string  `db:"program_id" json:"program_id"`
	GPA       float64 `db:"gpa" json:"gpa"`
}

// StudentRanking extends StudentGPA with cohort position. Rank is dense,
// ordered by GPA descending; Percentile is the fraction of the cohort with
// a GPA less than or equal to this student's, in (0, 1].
type StudentRanking struct {
	StudentID  string  `json:"student_id"`
	GPA        float64 `json:"gpa"`
	Rank       int     `json:"rank"`
	Percentile float64 `json:"percentile"`
}

// AboveAverageStudent marks a student whose term GPA strictly exceeds the
// mean of their (program, term) group.
type AboveAverageStudent struct {
	StudentID string  `json:"student_id"`
	ProgramID string  `json:"program_id"`
	GPA       float64 `json:"gpa"`
	GroupMean float64 `json:"group_mean"`
}

// SystemMetrics is a point-in-time summary of runtime counters, served on
// the operational endpoints alongside the Prometheus scrape handler.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
