package risk

import (
	"math"
	"sort"

	"github.com/bankops/retail-analytics/internal/features"
	"github.com/bankops/retail-analytics/pkg/models"
)

// Risk tiers from fixed probability thresholds. Design constants, not learned.
const (
	TierHigh   = "High"
	TierMedium = "Medium"
	TierLow    = "Low"

	highThreshold   = 0.5
	mediumThreshold = 0.2
)

// LoanScore is one loan's scored risk
type LoanScore struct {
	LoanID             int64   `json:"loan_id"`
	CustomerID         int64   `json:"customer_id"`
	DefaultProbability float64 `json:"default_probability"`
	RiskTier           string  `json:"risk_category"`
	Cluster            int     `json:"cluster"`
}

// CustomerScore aggregates a customer's loans
type CustomerScore struct {
	CustomerID         int64   `json:"customer_id"`
	DefaultProbability float64 `json:"avg_default_probability"`
	RiskTier           string  `json:"risk_category"`
	Cluster            int     `json:"cluster"`
	LoanCount          int     `json:"loan_count"`
}

// ClusterRiskSummary aggregates scored loans per segmentation cluster
type ClusterRiskSummary struct {
	Cluster            int     `json:"cluster"`
	DefaultProbability float64 `json:"avg_default_probability"`
	LoanCount          int     `json:"loan_count"`
	AvgLoanAmount      float64 `json:"avg_loan_amount"`
	AvgCreditScore     float64 `json:"avg_credit_score"`
	AvgIncome          float64 `json:"avg_income"`
}

// PortfolioRisk is the portfolio-level rollup
type PortfolioRisk struct {
	TotalLoans            int     `json:"total_loans"`
	HighRiskLoans         int     `json:"high_risk_loans"`
	MediumRiskLoans       int     `json:"medium_risk_loans"`
	LowRiskLoans          int     `json:"low_risk_loans"`
	AvgDefaultProbability float64 `json:"avg_default_probability"`
}

// ScoreSet is the full scoring output
type ScoreSet struct {
	Loans       []LoanScore          `json:"loans"`
	Customers   []CustomerScore      `json:"customers"`
	Clusters    []ClusterRiskSummary `json:"clusters"`
	Portfolio   PortfolioRisk        `json:"portfolio"`
	Importances map[string]float64   `json:"feature_importances"`
}

// Scorer applies a trained artifact pair to loan feature rows
type Scorer struct{}

// NewScorer creates a scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score rebuilds each loan's feature vector against the artifact's schema,
// applies the stored scaler (transform only) and classifier, and aggregates
// to customer, cluster and portfolio level. Probabilities are rounded to
// three decimals.
func (s *Scorer) Score(rows []features.LoanRow, pair *ArtifactPair) (*ScoreSet, error) {
	if pair == nil || pair.Scaler == nil || pair.Classifier == nil {
		return nil, models.ErrArtifactMissing
	}
	if len(rows) == 0 {
		return nil, &models.InsufficientDataError{Rows: 0, Min: 1}
	}

	set := &ScoreSet{Loans: make([]LoanScore, 0, len(rows))}

	probSum := 0.0
	for i := range rows {
		vec, err := buildVector(&rows[i], pair.Schema)
		if err != nil {
			return nil, err
		}

		prob := round3(pair.Classifier.PredictProba(pair.Scaler.TransformRow(vec)))
		probSum += prob

		tier := TierFor(prob)
		switch tier {
		case TierHigh:
			set.Portfolio.HighRiskLoans++
		case TierMedium:
			set.Portfolio.MediumRiskLoans++
		default:
			set.Portfolio.LowRiskLoans++
		}

		set.Loans = append(set.Loans, LoanScore{
			LoanID:             rows[i].LoanID,
			CustomerID:         rows[i].CustomerID,
			DefaultProbability: prob,
			RiskTier:           tier,
			Cluster:            rows[i].Cluster,
		})
	}

	set.Portfolio.TotalLoans = len(set.Loans)
	set.Portfolio.AvgDefaultProbability = round3(probSum / float64(len(set.Loans)))
	set.Customers = aggregateCustomers(set.Loans)
	set.Clusters = aggregateClusters(rows, set.Loans)
	set.Importances = importanceMap(pair)

	return set, nil
}

// TierFor maps a default probability to its risk tier
func TierFor(prob float64) string {
	switch {
	case prob > highThreshold:
		return TierHigh
	case prob > mediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// buildVector assembles the feature vector in the artifact's column order.
// One-hot indicators the current batch lacks are zero-filled; any other
// unknown column is a train/serve skew bug and fails loudly.
func buildVector(row *features.LoanRow, schema []string) ([]float64, error) {
	vec := make([]float64, len(schema))
	var missing []string
	for i, col := range schema {
		v, ok := features.LoanValue(row, col)
		if !ok {
			missing = append(missing, col)
			continue
		}
		vec[i] = v
	}
	if len(missing) > 0 {
		return nil, &models.FeatureSchemaError{Missing: missing}
	}
	return vec, nil
}

// aggregateCustomers rolls loans up per customer: mean probability, first
// tier and first cluster id observed
func aggregateCustomers(loans []LoanScore) []CustomerScore {
	order := make([]int64, 0)
	byCustomer := make(map[int64]*CustomerScore)
	sums := make(map[int64]float64)

	for _, l := range loans {
		cs, ok := byCustomer[l.CustomerID]
		if !ok {
			cs = &CustomerScore{
				CustomerID: l.CustomerID,
				RiskTier:   l.RiskTier,
				Cluster:    l.Cluster,
			}
			byCustomer[l.CustomerID] = cs
			order = append(order, l.CustomerID)
		}
		cs.LoanCount++
		sums[l.CustomerID] += l.DefaultProbability
	}

	out := make([]CustomerScore, 0, len(order))
	for _, id := range order {
		cs := byCustomer[id]
		cs.DefaultProbability = round3(sums[id] / float64(cs.LoanCount))
		out = append(out, *cs)
	}
	return out
}

// aggregateClusters rolls scored loans up per cluster, excluding loans whose
// customer has no cluster assignment
func aggregateClusters(rows []features.LoanRow, loans []LoanScore) []ClusterRiskSummary {
	type acc struct {
		probSum   float64
		amountSum float64
		scoreSum  float64
		incomeSum float64
		count     int
	}
	byCluster := make(map[int]*acc)

	for i, l := range loans {
		if l.Cluster == features.ClusterNone {
			continue
		}
		a, ok := byCluster[l.Cluster]
		if !ok {
			a = &acc{}
			byCluster[l.Cluster] = a
		}
		a.count++
		a.probSum += l.DefaultProbability
		a.amountSum += rows[i].LoanAmount
		a.scoreSum += rows[i].CreditScore
		a.incomeSum += rows[i].Income
	}

	clusters := make([]int, 0, len(byCluster))
	for c := range byCluster {
		clusters = append(clusters, c)
	}
	sort.Ints(clusters)

	out := make([]ClusterRiskSummary, 0, len(clusters))
	for _, c := range clusters {
		a := byCluster[c]
		n := float64(a.count)
		out = append(out, ClusterRiskSummary{
			Cluster:            c,
			DefaultProbability: round3(a.probSum / n),
			LoanCount:          a.count,
			AvgLoanAmount:      a.amountSum / n,
			AvgCreditScore:     a.scoreSum / n,
			AvgIncome:          a.incomeSum / n,
		})
	}
	return out
}

// importanceMap exposes per-column importances for explainability. A model
// without importances reports all zeros rather than failing.
func importanceMap(pair *ArtifactPair) map[string]float64 {
	out := make(map[string]float64, len(pair.Schema))
	imp := pair.Classifier.FeatureImportances()
	for i, col := range pair.Schema {
		if i < len(imp) {
			out[col] = imp[i]
		} else {
			out[col] = 0
		}
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
