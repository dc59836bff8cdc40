package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/bankops/retail-analytics/internal/features"
	"github.com/bankops/retail-analytics/internal/pricing"
	"github.com/bankops/retail-analytics/internal/segmentation"
)

// ClusterFeeInsight aggregates fee quotes per stored cluster
type ClusterFeeInsight struct {
	Cluster               int     `json:"cluster"`
	CustomerCount         int     `json:"customer_count"`
	AvgRecommendedFee     float64 `json:"avg_recommended_fee"`
	TotalRevenue          float64 `json:"total_revenue"`
	AvgChurnRisk          float64 `json:"avg_churn_risk"`
	AvgDefaultProbability float64 `json:"avg_default_probability"`
}

// FeePortfolio is the portfolio-level fee rollup. ComputedRows and
// FallbackRows let callers tell an all-computed batch from an all-defaulted
// one.
type FeePortfolio struct {
	TotalCustomers    int     `json:"total_customers"`
	TotalRevenue      float64 `json:"total_revenue"`
	AvgRecommendedFee float64 `json:"avg_recommended_fee"`
	AvgChurnRisk      float64 `json:"avg_churn_risk"`
	ComputedRows      int     `json:"computed_rows"`
	FallbackRows      int     `json:"fallback_rows"`
}

// FeeResult is the full fee optimization output
type FeeResult struct {
	Customers []pricing.Quote     `json:"customers"`
	Clusters  []ClusterFeeInsight `json:"clusters"`
	Portfolio FeePortfolio        `json:"portfolio"`
}

// OptimizeFees prices every customer from wealth, scored loan risk and
// stored cluster assignment. Requires a trained artifact pair for the risk
// signal; per-row pricing failures degrade to the default fee.
func (s *Service) OptimizeFees(ctx context.Context) (*FeeResult, error) {
	started := time.Now()

	customerRows, err := s.customerTable(ctx)
	if err != nil {
		return nil, err
	}

	riskByCustomer, err := s.customerRisk(ctx)
	if err != nil {
		return nil, err
	}

	multipliers := pricing.ClusterMultipliers(clusterIncomeSummary(customerRows))
	engine := pricing.NewEngine(multipliers)
	quotes := engine.PriceBatch(customerRows, riskByCustomer)

	result := &FeeResult{
		Customers: quotes,
		Clusters:  clusterFeeInsights(quotes),
		Portfolio: feePortfolio(quotes),
	}

	s.recordRun(ctx, "fee_optimization", len(quotes), time.Since(started))
	return result, nil
}

// customerRisk scores the loan book and averages default probability per
// customer. Customers without loans carry zero risk signal.
func (s *Service) customerRisk(ctx context.Context) (map[int64]float64, error) {
	loanRows, err := s.loanTable(ctx)
	if err != nil {
		return nil, err
	}

	set, err := s.scorer.Score(loanRows, s.holder.Get())
	if err != nil {
		return nil, err
	}

	byCustomer := make(map[int64]float64, len(set.Customers))
	for _, cs := range set.Customers {
		byCustomer[cs.CustomerID] = cs.DefaultProbability
	}
	return byCustomer, nil
}

// clusterIncomeSummary builds per-cluster mean incomes from the stored
// cluster assignments, so the pricing multipliers attach to income ranking
// rather than raw cluster ids
func clusterIncomeSummary(rows []features.CustomerRow) []segmentation.ClusterSummary {
	type acc struct {
		incomeSum float64
		count     int
	}
	byCluster := make(map[int]*acc)
	for i := range rows {
		if rows[i].Cluster == features.ClusterNone {
			continue
		}
		a, ok := byCluster[rows[i].Cluster]
		if !ok {
			a = &acc{}
			byCluster[rows[i].Cluster] = a
		}
		a.incomeSum += rows[i].Income
		a.count++
	}

	clusters := make([]int, 0, len(byCluster))
	for c := range byCluster {
		clusters = append(clusters, c)
	}
	sort.Ints(clusters)

	summary := make([]segmentation.ClusterSummary, 0, len(clusters))
	for _, c := range clusters {
		a := byCluster[c]
		summary = append(summary, segmentation.ClusterSummary{
			Cluster:   c,
			Size:      a.count,
			AvgIncome: a.incomeSum / float64(a.count),
		})
	}
	return summary
}

func clusterFeeInsights(quotes []pricing.Quote) []ClusterFeeInsight {
	type acc struct {
		feeSum     float64
		revenueSum float64
		churnCount int
		probSum    float64
		count      int
	}
	byCluster := make(map[int]*acc)

	for _, q := range quotes {
		if q.Cluster == features.ClusterNone {
			continue
		}
		a, ok := byCluster[q.Cluster]
		if !ok {
			a = &acc{}
			byCluster[q.Cluster] = a
		}
		a.count++
		a.feeSum += q.RecommendedFee
		a.revenueSum += q.ExpectedRevenue
		a.probSum += q.DefaultProbability
		if q.ChurnRisk {
			a.churnCount++
		}
	}

	clusters := make([]int, 0, len(byCluster))
	for c := range byCluster {
		clusters = append(clusters, c)
	}
	sort.Ints(clusters)

	out := make([]ClusterFeeInsight, 0, len(clusters))
	for _, c := range clusters {
		a := byCluster[c]
		n := float64(a.count)
		out = append(out, ClusterFeeInsight{
			Cluster:               c,
			CustomerCount:         a.count,
			AvgRecommendedFee:     round2(a.feeSum / n),
			TotalRevenue:          round2(a.revenueSum),
			AvgChurnRisk:          round3(float64(a.churnCount) / n),
			AvgDefaultProbability: round3(a.probSum / n),
		})
	}
	return out
}

func feePortfolio(quotes []pricing.Quote) FeePortfolio {
	portfolio := FeePortfolio{TotalCustomers: len(quotes)}
	if len(quotes) == 0 {
		return portfolio
	}

	churnCount := 0
	feeSum := 0.0
	for _, q := range quotes {
		feeSum += q.RecommendedFee
		portfolio.TotalRevenue += q.ExpectedRevenue
		if q.ChurnRisk {
			churnCount++
		}
		if q.Fallback {
			portfolio.FallbackRows++
		} else {
			portfolio.ComputedRows++
		}
	}

	portfolio.TotalRevenue = round2(portfolio.TotalRevenue)
	portfolio.AvgRecommendedFee = round2(feeSum / float64(len(quotes)))
	portfolio.AvgChurnRisk = round3(float64(churnCount) / float64(len(quotes)))
	return portfolio
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
