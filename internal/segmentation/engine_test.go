package segmentation

import (
	"errors"
	"math"
	"testing"

	"github.com/bankops/retail-analytics/internal/features"
	"github.com/bankops/retail-analytics/pkg/models"
)

func testRows() []features.CustomerRow {
	// Three well-separated wealth bands, three customers each
	rows := make([]features.CustomerRow, 0, 9)
	bands := []struct {
		income, score, savings, cards float64
	}{
		{20000, 550, 1000, 500},
		{60000, 680, 15000, 4000},
		{250000, 790, 120000, 22000},
	}
	id := int64(1)
	for _, b := range bands {
		for j := 0; j < 3; j++ {
			jitter := float64(j) * 0.01
			rows = append(rows, features.CustomerRow{
				CustomerID:     id,
				Income:         b.income * (1 + jitter),
				CreditScore:    b.score + float64(j),
				SavingsBalance: b.savings * (1 + jitter),
				TotalCardValue: b.cards * (1 + jitter),
				IsDiaspora:     j == 0,
			})
			id++
		}
	}
	return rows
}

func TestEngine_Segment(t *testing.T) {
	engine := NewEngine()

	t.Run("assigns every customer to a cluster in range", func(t *testing.T) {
		rows := testRows()
		result, err := engine.Segment(rows, 3)
		if err != nil {
			t.Fatalf("Segment failed: %v", err)
		}
		if result.K != 3 {
			t.Errorf("Expected k=3, got %d", result.K)
		}
		if len(result.Assignments) != len(rows) {
			t.Fatalf("Expected %d assignments, got %d", len(rows), len(result.Assignments))
		}
		for i, a := range result.Assignments {
			if a.CustomerID != rows[i].CustomerID {
				t.Errorf("Assignment %d: expected customer %d, got %d", i, rows[i].CustomerID, a.CustomerID)
			}
			if a.Cluster < 0 || a.Cluster >= 3 {
				t.Errorf("Assignment %d: cluster %d out of range", i, a.Cluster)
			}
		}
	})

	t.Run("same input yields same assignments", func(t *testing.T) {
		rows := testRows()
		first, err := engine.Segment(rows, 3)
		if err != nil {
			t.Fatalf("First run failed: %v", err)
		}
		second, err := engine.Segment(rows, 3)
		if err != nil {
			t.Fatalf("Second run failed: %v", err)
		}
		for i := range first.Assignments {
			if first.Assignments[i].Cluster != second.Assignments[i].Cluster {
				t.Errorf("Assignment %d differs between runs: %d vs %d",
					i, first.Assignments[i].Cluster, second.Assignments[i].Cluster)
			}
		}
	})

	t.Run("k defaults when not positive", func(t *testing.T) {
		result, err := engine.Segment(testRows(), 0)
		if err != nil {
			t.Fatalf("Segment failed: %v", err)
		}
		if result.K != DefaultK {
			t.Errorf("Expected default k=%d, got %d", DefaultK, result.K)
		}
	})

	t.Run("k clamps to row count", func(t *testing.T) {
		rows := testRows()[:4]
		result, err := engine.Segment(rows, 10)
		if err != nil {
			t.Fatalf("Segment failed: %v", err)
		}
		if result.K != 4 {
			t.Errorf("Expected k clamped to 4, got %d", result.K)
		}
	})

	t.Run("k=1 puts everyone in cluster zero", func(t *testing.T) {
		result, err := engine.Segment(testRows(), 1)
		if err != nil {
			t.Fatalf("Segment failed: %v", err)
		}
		for i, a := range result.Assignments {
			if a.Cluster != 0 {
				t.Errorf("Assignment %d: expected cluster 0, got %d", i, a.Cluster)
			}
		}
	})

	t.Run("summary sizes sum to row count", func(t *testing.T) {
		rows := testRows()
		result, err := engine.Segment(rows, 3)
		if err != nil {
			t.Fatalf("Segment failed: %v", err)
		}
		if len(result.Summary) != 3 {
			t.Fatalf("Expected 3 summaries, got %d", len(result.Summary))
		}
		total := 0
		diaspora := 0
		for _, s := range result.Summary {
			total += s.Size
			diaspora += s.DiasporaCount
			if s.Size > 0 && s.AvgIncome <= 0 {
				t.Errorf("Cluster %d: expected positive average income, got %v", s.Cluster, s.AvgIncome)
			}
		}
		if total != len(rows) {
			t.Errorf("Summary sizes sum to %d, expected %d", total, len(rows))
		}
		if diaspora != 3 {
			t.Errorf("Expected 3 diaspora customers across clusters, got %d", diaspora)
		}
	})

	t.Run("elbow curve spans k=2 through 6", func(t *testing.T) {
		result, err := engine.Segment(testRows(), 3)
		if err != nil {
			t.Fatalf("Segment failed: %v", err)
		}
		if len(result.ElbowCurve) != 5 {
			t.Fatalf("Expected 5 elbow points, got %d", len(result.ElbowCurve))
		}
		for i, p := range result.ElbowCurve {
			if p.K != i+2 {
				t.Errorf("Elbow point %d: expected k=%d, got %d", i, i+2, p.K)
			}
			if p.Inertia < 0 || math.IsNaN(p.Inertia) {
				t.Errorf("Elbow point k=%d: invalid inertia %v", p.K, p.Inertia)
			}
		}
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := engine.Segment(nil, 3)
		if !errors.Is(err, models.ErrNoData) {
			t.Errorf("Expected ErrNoData, got %v", err)
		}
	})

	t.Run("single row", func(t *testing.T) {
		_, err := engine.Segment(testRows()[:1], 3)
		var insufficient *models.InsufficientDataError
		if !errors.As(err, &insufficient) {
			t.Fatalf("Expected InsufficientDataError, got %v", err)
		}
		if insufficient.Rows != 1 {
			t.Errorf("Unexpected error detail: %+v", insufficient)
		}
	})
}

func TestStandardize(t *testing.T) {
	t.Run("zero mean unit variance", func(t *testing.T) {
		points := [][]float64{{1, 100}, {2, 200}, {3, 300}, {4, 400}}
		out := standardize(points)

		for d := 0; d < 2; d++ {
			mean := 0.0
			for _, p := range out {
				mean += p[d]
			}
			mean /= float64(len(out))
			if math.Abs(mean) > 1e-9 {
				t.Errorf("Column %d: expected zero mean, got %v", d, mean)
			}

			variance := 0.0
			for _, p := range out {
				variance += p[d] * p[d]
			}
			variance /= float64(len(out))
			if math.Abs(variance-1) > 1e-9 {
				t.Errorf("Column %d: expected unit variance, got %v", d, variance)
			}
		}
	})

	t.Run("constant column does not produce NaN", func(t *testing.T) {
		points := [][]float64{{5, 1}, {5, 2}, {5, 3}}
		out := standardize(points)
		for i, p := range out {
			if math.IsNaN(p[0]) {
				t.Errorf("Row %d: constant column produced NaN", i)
			}
			if p[0] != 0 {
				t.Errorf("Row %d: constant column should standardize to 0, got %v", i, p[0])
			}
		}
	})
}
