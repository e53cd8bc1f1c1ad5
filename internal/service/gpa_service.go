package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusworks/registrar-api/internal/models"
	appErrors "github.com/campusworks/registrar-api/pkg/errors"
)

type metricStore interface {
	StudentWeightedRows(ctx context.Context, studentID, termID string) ([]models.WeightedGrade, error)
	CohortGPAs(ctx context.Context, programID, termID string) ([]models.StudentGPA, error)
	TermGPAs(ctx context.Context, termID string) ([]models.StudentGPA, error)
}

// GPAService derives weighted GPAs, cohort rankings and above-average
// groupings. All paths are read-only and may serve slightly stale data;
// cached responses carry a TTL and never block writers.
type GPAService struct {
	repo     metricStore
	students studentReader
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewGPAService constructs a GPA service.
func NewGPAService(repo metricStore, students studentReader, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *GPAService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GPAService{repo: repo, students: students, cache: cache, metrics: metrics, logger: logger}
}

// ComputeGPA returns the weighted GPA for one student, optionally scoped
// to a term. The aggregation is order-independent: only the (score, weight)
// multiset matters.
func (s *GPAService) ComputeGPA(ctx context.Context, studentID, termID string) (float64, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if err == sql.ErrNoRows {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return 0, mapStoreError(err, "failed to load student")
	}

	cacheKey := gpaCacheKey("student", studentID, termID)
	var cached float64
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	start := time.Now()
	rows, err := s.repo.StudentWeightedRows(ctx, studentID, termID)
	if err != nil {
		return 0, mapStoreError(err, "failed to load graded work")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("gpa_student", time.Since(start))
	}

	gpa, ok := weightedGPA(rows)
	if !ok {
		return 0, appErrors.Clone(appErrors.ErrNoGradedWork, "")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, gpa, 0); err != nil {
			s.logger.Warn("cache gpa", zap.Error(err))
		}
	}
	return gpa, nil
}

// ProgramRanking computes each cohort member's GPA, assigns a dense rank
// ordered by GPA descending and a percentile in (0, 1]. The percentile is
// the fraction of the cohort with a GPA at or below the student's.
func (s *GPAService) ProgramRanking(ctx context.Context, programID, termID string) ([]models.StudentRanking, error) {
	cacheKey := gpaCacheKey("ranking", programID, termID)
	var cached []models.StudentRanking
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	start := time.Now()
	rows, err := s.repo.CohortGPAs(ctx, programID, termID)
	if err != nil {
		return nil, mapStoreError(err, "failed to load cohort gpas")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("gpa_cohort", time.Since(start))
	}

	rankings := rankCohort(rows)
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, rankings, 0); err != nil {
			s.logger.Warn("cache ranking", zap.Error(err))
		}
	}
	return rankings, nil
}

// AboveAverage returns the students whose term GPA strictly exceeds the
// mean of their own (program, term) group. Grouping happens before the
// comparison; there is no global average.
func (s *GPAService) AboveAverage(ctx context.Context, termID string) ([]models.AboveAverageStudent, error) {
	start := time.Now()
	rows, err := s.repo.TermGPAs(ctx, termID)
	if err != nil {
		return nil, mapStoreError(err, "failed to load term gpas")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("gpa_term", time.Since(start))
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, row := range rows {
		sums[row.ProgramID] += row.GPA
		counts[row.ProgramID]++
	}

	var above []models.AboveAverageStudent
	for _, row := range rows {
		mean := sums[row.ProgramID] / float64(counts[row.ProgramID])
		if row.GPA > mean {
			above = append(above, models.AboveAverageStudent{
				StudentID: row.StudentID,
				ProgramID: row.ProgramID,
				GPA:       row.GPA,
				GroupMean: mean,
			})
		}
	}
	return above, nil
}

// weightedGPA reduces (score, weight) rows to a score-weighted average.
// The second return is false when the weight sum is zero.
func weightedGPA(rows []models.WeightedGrade) (float64, bool) {
	var weightedSum, weightSum float64
	for _, row := range rows {
		weightedSum += row.Score * row.Weight
		weightSum += row.Weight
	}
	if weightSum == 0 {
		return 0, false
	}
	return weightedSum / weightSum, true
}

// rankCohort expects rows ordered by GPA descending with a deterministic
// tie-break and assigns dense ranks and inclusive percentiles.
func rankCohort(rows []models.StudentGPA) []models.StudentRanking {
	n := len(rows)
	rankings := make([]models.StudentRanking, 0, n)
	rank := 0
	groupStart := 0
	for i, row := range rows {
		if i == 0 || row.GPA != rows[i-1].GPA {
			rank++
			groupStart = i
		}
		// Rows are sorted descending, so everyone from the first row
		// sharing this GPA to the end scores at or below it.
		rankings = append(rankings, models.StudentRanking{
			StudentID:  row.StudentID,
			GPA:        row.GPA,
			Rank:       rank,
			Percentile: float64(n-groupStart) / float64(n),
		})
	}
	return rankings
}

func gpaCacheKey(parts ...string) string {
	cleaned := make([]string, 0, len(parts)+1)
	cleaned = append(cleaned, "gpa")
	for _, part := range parts {
		if part == "" {
			part = "all"
		}
		cleaned = append(cleaned, part)
	}
	return strings.Join(cleaned, ":")
}
