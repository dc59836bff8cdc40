package segmentation

import (
	"math"

	"github.com/bankops/retail-analytics/internal/features"
	"github.com/bankops/retail-analytics/pkg/models"
)

const (
	// DefaultK is the cluster count used when the caller does not choose one
	DefaultK = 3

	// randomSeed fixes clustering initialization for reproducible assignments
	randomSeed = 42

	minRows   = 2
	maxElbowK = 6
)

// ClusterSummary describes one cluster's membership and mean feature values
type ClusterSummary struct {
	Cluster           int     `json:"cluster"`
	Size              int     `json:"customer_count"`
	DiasporaCount     int     `json:"diaspora_count"`
	AvgIncome         float64 `json:"avg_income"`
	AvgCreditScore    float64 `json:"avg_credit_score"`
	AvgSavingsBalance float64 `json:"avg_savings_balance"`
	AvgCardValue      float64 `json:"avg_card_value"`
}

// ElbowPoint is one diagnostic clustering run's inertia, for manual k selection
type ElbowPoint struct {
	K       int     `json:"k"`
	Inertia float64 `json:"inertia"`
}

// Result is the full segmentation output
type Result struct {
	K           int                        `json:"k"`
	Assignments []models.ClusterAssignment `json:"clusters"`
	Summary     []ClusterSummary           `json:"summary"`
	ElbowCurve  []ElbowPoint               `json:"elbow_curve"`
}

// Engine standardizes customer features and partitions customers into
// clusters. Cluster ids are 0-indexed artifacts of the algorithm run and
// carry no semantic ordering.
type Engine struct {
	seed int64
}

// NewEngine creates a segmentation engine with the fixed reproducibility seed
func NewEngine() *Engine {
	return &Engine{seed: randomSeed}
}

// Segment clusters the customer feature table into k groups. k defaults to
// DefaultK and is clamped to the row count so the problem stays solvable.
// Standardization is fit and applied within this call; nothing persists.
func (e *Engine) Segment(rows []features.CustomerRow, k int) (*Result, error) {
	if len(rows) == 0 {
		return nil, models.ErrNoData
	}
	if len(rows) < minRows {
		return nil, &models.InsufficientDataError{Rows: len(rows), Min: minRows}
	}

	if k <= 0 {
		k = DefaultK
	}
	if k > len(rows) {
		k = len(rows)
	}

	points := make([][]float64, len(rows))
	for i := range rows {
		points[i] = features.SegmentationVector(&rows[i])
	}
	standardized := standardize(points)

	run := runKMeans(standardized, k, e.seed)

	assignments := make([]models.ClusterAssignment, len(rows))
	for i := range rows {
		assignments[i] = models.ClusterAssignment{
			CustomerID: rows[i].CustomerID,
			Cluster:    run.assignments[i],
		}
	}

	return &Result{
		K:           k,
		Assignments: assignments,
		Summary:     summarize(rows, run.assignments, k),
		ElbowCurve:  e.elbowCurve(standardized),
	}, nil
}

// elbowCurve reruns clustering for k=2..min(6, rows) and reports each run's
// within-cluster sum of squares. Informational only; the primary assignment
// is unaffected.
func (e *Engine) elbowCurve(points [][]float64) []ElbowPoint {
	limit := maxElbowK
	if len(points) < limit {
		limit = len(points)
	}

	curve := make([]ElbowPoint, 0, limit-1)
	for k := 2; k <= limit; k++ {
		run := runKMeans(points, k, e.seed)
		curve = append(curve, ElbowPoint{K: k, Inertia: run.inertia})
	}
	return curve
}

func summarize(rows []features.CustomerRow, assignments []int, k int) []ClusterSummary {
	summaries := make([]ClusterSummary, k)
	for c := range summaries {
		summaries[c].Cluster = c
	}

	for i, row := range rows {
		s := &summaries[assignments[i]]
		s.Size++
		if row.IsDiaspora {
			s.DiasporaCount++
		}
		s.AvgIncome += row.Income
		s.AvgCreditScore += row.CreditScore
		s.AvgSavingsBalance += row.SavingsBalance
		s.AvgCardValue += row.TotalCardValue
	}

	for c := range summaries {
		if summaries[c].Size == 0 {
			continue
		}
		n := float64(summaries[c].Size)
		summaries[c].AvgIncome /= n
		summaries[c].AvgCreditScore /= n
		summaries[c].AvgSavingsBalance /= n
		summaries[c].AvgCardValue /= n
	}

	return summaries
}

// standardize scales each column to zero mean and unit variance over the
// current batch. Constant columns keep a unit divisor to avoid NaNs.
func standardize(points [][]float64) [][]float64 {
	if len(points) == 0 {
		return points
	}

	dims := len(points[0])
	means := make([]float64, dims)
	stds := make([]float64, dims)

	for _, p := range points {
		for d, v := range p {
			means[d] += v
		}
	}
	for d := range means {
		means[d] /= float64(len(points))
	}

	for _, p := range points {
		for d, v := range p {
			diff := v - means[d]
			stds[d] += diff * diff
		}
	}
	for d := range stds {
		stds[d] = math.Sqrt(stds[d] / float64(len(points)))
		if stds[d] == 0 {
			stds[d] = 1
		}
	}

	out := make([][]float64, len(points))
	for i, p := range points {
		out[i] = make([]float64, dims)
		for d, v := range p {
			out[i][d] = (v - means[d]) / stds[d]
		}
	}
	return out
}
