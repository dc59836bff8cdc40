package pricing

import (
	"math"
	"sort"

	"github.com/bankops/retail-analytics/internal/features"
	"github.com/bankops/retail-analytics/internal/segmentation"
)

const (
	// Fee floor and ceiling, applied after every multiplier and cap
	FeeFloor   = 100.0
	FeeCeiling = 1000.0

	// DefaultFee substitutes for a row whose fee could not be computed
	DefaultFee = 100.0

	baseFeeRate = 0.001 // 0.1% of the wealth estimate

	highRiskThreshold    = 0.5
	mediumRiskThreshold  = 0.2
	highRiskMultiplier   = 1.2
	mediumRiskMultiplier = 1.1

	churnActivityThreshold = 0.3
	churnFeeCapRate        = 0.05
	normalFeeCapRate       = 0.10
	churnRevenueDiscount   = 0.5

	discountMultiplier = 0.8
	premiumMultiplier  = 1.2
)

// Quote is one customer's fee recommendation. Fallback records that the row
// could not be computed and received the default fee, so batch reporting can
// tell "all computed" from "all defaulted".
type Quote struct {
	CustomerID         int64   `json:"customer_id"`
	Cluster            int     `json:"cluster"`
	RecommendedFee     float64 `json:"recommended_fee"`
	ExpectedRevenue    float64 `json:"expected_revenue"`
	ChurnRisk          bool    `json:"churn_risk"`
	DefaultProbability float64 `json:"avg_default_probability"`
	Fallback           bool    `json:"fallback,omitempty"`
	FallbackReason     string  `json:"fallback_reason,omitempty"`
}

// Engine derives a bounded fee recommendation from wealth, risk, segment and
// churn signals
type Engine struct {
	multipliers map[int]float64
}

// NewEngine creates a pricing engine with a cluster multiplier table.
// Use ClusterMultipliers to build the table from a segmentation summary.
func NewEngine(multipliers map[int]float64) *Engine {
	return &Engine{multipliers: multipliers}
}

// ClusterMultipliers ranks clusters by mean income and assigns the discount
// to the poorest cluster and the premium uplift to the wealthiest. Cluster
// ids from unsupervised clustering carry no inherent ordering, so the
// business meaning is attached to the ranking, not the raw id.
func ClusterMultipliers(summary []segmentation.ClusterSummary) map[int]float64 {
	multipliers := make(map[int]float64, len(summary))
	if len(summary) == 0 {
		return multipliers
	}

	ranked := make([]segmentation.ClusterSummary, len(summary))
	copy(ranked, summary)
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].AvgIncome < ranked[b].AvgIncome
	})

	for _, s := range ranked {
		multipliers[s.Cluster] = 1.0
	}
	multipliers[ranked[0].Cluster] = discountMultiplier
	if len(ranked) >= 3 {
		multipliers[ranked[len(ranked)-1].Cluster] = premiumMultiplier
	}
	return multipliers
}

// RecommendFee prices one customer. A row that cannot be priced yields the
// default fee with a reason instead of an error; one bad row never takes
// down the batch.
func (e *Engine) RecommendFee(row *features.CustomerRow, riskProbability float64) Quote {
	quote := Quote{
		CustomerID:         row.CustomerID,
		Cluster:            row.Cluster,
		DefaultProbability: riskProbability,
		ChurnRisk:          row.ActivityScore < churnActivityThreshold,
	}

	if row.Income <= 0 || math.IsNaN(row.Income) {
		return e.fallback(quote, "missing or invalid income")
	}
	if math.IsNaN(riskProbability) || riskProbability < 0 || riskProbability > 1 {
		return e.fallback(quote, "invalid risk probability")
	}

	wealth := row.Income + row.SavingsBalance + row.TotalCardValue
	fee := wealth * baseFeeRate
	fee *= riskMultiplier(riskProbability)
	fee *= e.clusterMultiplier(row.Cluster)

	// Churn-risk customers get a tighter income cap
	capRate := normalFeeCapRate
	if quote.ChurnRisk {
		capRate = churnFeeCapRate
	}
	if cap := row.Income * capRate; fee > cap {
		fee = cap
	}

	// Hard floor and ceiling regardless of income
	fee = math.Min(math.Max(fee, FeeFloor), FeeCeiling)
	quote.RecommendedFee = round2(fee)
	quote.ExpectedRevenue = round2(expectedRevenue(fee, quote.ChurnRisk))
	return quote
}

// PriceBatch prices every customer row, isolating per-row failures
func (e *Engine) PriceBatch(rows []features.CustomerRow, riskByCustomer map[int64]float64) []Quote {
	quotes := make([]Quote, 0, len(rows))
	for i := range rows {
		quotes = append(quotes, e.RecommendFee(&rows[i], riskByCustomer[rows[i].CustomerID]))
	}
	return quotes
}

func (e *Engine) fallback(quote Quote, reason string) Quote {
	quote.Fallback = true
	quote.FallbackReason = reason
	quote.RecommendedFee = DefaultFee
	quote.ExpectedRevenue = round2(expectedRevenue(DefaultFee, quote.ChurnRisk))
	return quote
}

func (e *Engine) clusterMultiplier(cluster int) float64 {
	if m, ok := e.multipliers[cluster]; ok {
		return m
	}
	return 1.0
}

func riskMultiplier(prob float64) float64 {
	switch {
	case prob > highRiskThreshold:
		return highRiskMultiplier
	case prob > mediumRiskThreshold:
		return mediumRiskMultiplier
	default:
		return 1.0
	}
}

// expectedRevenue discounts churn-risk customers' revenue by half
func expectedRevenue(fee float64, churnRisk bool) float64 {
	if churnRisk {
		return fee * churnRevenueDiscount
	}
	return fee
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
