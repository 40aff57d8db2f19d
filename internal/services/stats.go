package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/repsnrecord/apiserver/types"
)

const dateLayout = "2006-01-02"

// StatsWorkoutReader is the slice of the workout repository the
// calculators need.
type StatsWorkoutReader interface {
	List(ctx context.Context, filter types.WorkoutFilter) ([]types.Workout, error)
	ListAsc(ctx context.Context, filter types.WorkoutFilter) ([]types.Workout, error)
}

// AggregateWriter persists per-period rollups.
type AggregateWriter interface {
	Upsert(ctx context.Context, agg types.WorkoutAggregate) error
	List(ctx context.Context, userID, periodType string, limit int) ([]types.WorkoutAggregate, error)
}

// StatsService computes read-and-reduce aggregates over workout entries.
type StatsService struct {
	workouts   StatsWorkoutReader
	aggregates AggregateWriter
}

func NewStatsService(workouts StatsWorkoutReader, aggregates AggregateWriter) *StatsService {
	return &StatsService{workouts: workouts, aggregates: aggregates}
}

// Streak walks the user's workout dates in ascending order and reports the
// current and longest consecutive-day runs.
func (s *StatsService) Streak(ctx context.Context, userID string) (types.StreakResult, error) {
	workouts, err := s.workouts.ListAsc(ctx, types.WorkoutFilter{UserID: userID})
	if err != nil {
		return types.StreakResult{}, err
	}
	dates := make([]string, len(workouts))
	for i, w := range workouts {
		dates[i] = w.Date
	}
	return ComputeStreak(dates), nil
}

// ComputeStreak is the streak walk over ascending dates. Adjacency is a
// raw one-day difference between dates parsed at UTC midnight; entries on
// the same day reset the run.
func ComputeStreak(dates []string) types.StreakResult {
	if len(dates) == 0 {
		return types.StreakResult{StreakDays: []string{}}
	}

	current, longest := 1, 1
	days := []string{dates[0]}

	for i := 1; i < len(dates); i++ {
		prev, prevErr := time.Parse(dateLayout, dates[i-1])
		curr, currErr := time.Parse(dateLayout, dates[i])

		gap := 0.0
		if prevErr == nil && currErr == nil {
			gap = curr.Sub(prev).Hours() / 24
		}

		if gap == 1 {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 1
		}
		days = append(days, dates[i])
	}

	return types.StreakResult{
		Streak:     types.Streak{CurrentStreak: current, LongestStreak: longest},
		StreakDays: days,
	}
}

// MonthlySummary groups the user's workouts by YYYY-MM month with totals
// and a rounded average weight per workout.
func (s *StatsService) MonthlySummary(ctx context.Context, userID string) ([]types.MonthlySummary, error) {
	workouts, err := s.workouts.List(ctx, types.WorkoutFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	return summarizeByMonth(workouts), nil
}

func summarizeByMonth(workouts []types.Workout) []types.MonthlySummary {
	type bucket struct {
		workouts    int
		sets        int
		reps        int
		totalWeight float64
	}
	buckets := make(map[string]*bucket)
	for _, w := range workouts {
		if len(w.Date) < 7 {
			continue
		}
		month := w.Date[:7]
		b, ok := buckets[month]
		if !ok {
			b = &bucket{}
			buckets[month] = b
		}
		b.workouts++
		b.sets += w.Sets
		b.reps += w.Reps
		b.totalWeight += w.Weight
	}

	months := make([]string, 0, len(buckets))
	for month := range buckets {
		months = append(months, month)
	}
	sort.Strings(months)

	summaries := make([]types.MonthlySummary, 0, len(months))
	for _, month := range months {
		b := buckets[month]
		avg := 0
		if b.workouts > 0 {
			avg = int(math.Round(b.totalWeight / float64(b.workouts)))
		}
		summaries = append(summaries, types.MonthlySummary{
			Month:         month,
			TotalWorkouts: b.workouts,
			TotalSets:     b.sets,
			TotalReps:     b.reps,
			AverageWeight: avg,
		})
	}
	return summaries
}

var monthNames = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// YearlyCounts returns twelve per-month workout counts for the year, in
// calendar order, for the progress chart.
func (s *StatsService) YearlyCounts(ctx context.Context, userID string, year int) ([]types.MonthCount, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Format(dateLayout)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).Format(dateLayout)
	workouts, err := s.workouts.List(ctx, types.WorkoutFilter{UserID: userID, StartDate: start, EndDate: end})
	if err != nil {
		return nil, err
	}

	counts := make([]int, 12)
	for _, w := range workouts {
		t, err := time.Parse(dateLayout, w.Date)
		if err != nil || t.Year() != year {
			continue
		}
		counts[int(t.Month())-1]++
	}

	result := make([]types.MonthCount, 12)
	for i, name := range monthNames {
		result[i] = types.MonthCount{Month: name, Count: counts[i]}
	}
	return result, nil
}

// Aggregate recomputes the user's per-period rollups from the document
// store, persists them, and returns the most recent twelve. The legacy
// system ran this as SQL over a mirrored table; here workouts live only in
// the document store so the rollup is computed in process.
func (s *StatsService) Aggregate(ctx context.Context, userID, periodType string) ([]types.WorkoutAggregate, error) {
	switch periodType {
	case types.PeriodDaily, types.PeriodWeekly, types.PeriodMonthly:
	default:
		periodType = types.PeriodWeekly
	}

	workouts, err := s.workouts.List(ctx, types.WorkoutFilter{UserID: userID})
	if err != nil {
		return nil, err
	}

	type bucket struct {
		workouts  int
		sets      int
		reps      int
		weight    float64
		exercises map[string]struct{}
	}
	buckets := make(map[time.Time]*bucket)
	for _, w := range workouts {
		t, err := time.Parse(dateLayout, w.Date)
		if err != nil {
			continue
		}
		start := periodStart(t, periodType)
		b, ok := buckets[start]
		if !ok {
			b = &bucket{exercises: make(map[string]struct{})}
			buckets[start] = b
		}
		b.workouts++
		b.sets += w.Sets
		b.reps += w.Reps
		b.weight += w.Weight
		b.exercises[w.ExerciseName] = struct{}{}
	}

	for start, b := range buckets {
		agg := types.WorkoutAggregate{
			UserID:         userID,
			PeriodType:     periodType,
			PeriodStart:    start,
			TotalWorkouts:  b.workouts,
			TotalSets:      b.sets,
			TotalReps:      b.reps,
			TotalWeight:    b.weight,
			ExercisesCount: len(b.exercises),
		}
		if err := s.aggregates.Upsert(ctx, agg); err != nil {
			return nil, err
		}
	}

	return s.aggregates.List(ctx, userID, periodType, 12)
}

// ListAggregates returns the stored rollups without recomputing.
func (s *StatsService) ListAggregates(ctx context.Context, userID, periodType string) ([]types.WorkoutAggregate, error) {
	switch periodType {
	case types.PeriodDaily, types.PeriodWeekly, types.PeriodMonthly:
	default:
		periodType = types.PeriodWeekly
	}
	return s.aggregates.List(ctx, userID, periodType, 12)
}

// periodStart truncates a day to its containing period. Weeks start on
// Monday, matching Postgres DATE_TRUNC.
func periodStart(t time.Time, periodType string) time.Time {
	switch periodType {
	case types.PeriodDaily:
		return t
	case types.PeriodMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		return t.AddDate(0, 0, -(weekday - 1))
	}
}
