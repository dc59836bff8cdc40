package features

import (
	"sort"

	"github.com/bankops/retail-analytics/pkg/models"
)

// MinClusterRows is the smallest customer table the downstream clustering
// stage can work with.
const MinClusterRows = 3

// CustomerRow is one customer's assembled feature row
type CustomerRow struct {
	CustomerID     int64   `json:"customer_id"`
	Income         float64 `json:"income"`
	CreditScore    float64 `json:"credit_score"`
	SavingsBalance float64 `json:"savings_balance"`
	ActivityScore  float64 `json:"activity_score"`
	TotalCardValue float64 `json:"total_card_value"`
	CardTxCount    int64   `json:"card_tx_count"`
	Age            float64 `json:"age"`
	IsDiaspora     bool    `json:"is_diaspora"`
	Segment        string  `json:"segment"`
	Cluster        int     `json:"cluster"`
}

// LoanRow is one loan's assembled feature row
type LoanRow struct {
	LoanID         int64   `json:"loan_id"`
	CustomerID     int64   `json:"customer_id"`
	LoanAmount     float64 `json:"loan_amount"`
	InterestRate   float64 `json:"interest_rate"`
	TenureMonths   float64 `json:"loan_tenure_months"`
	Income         float64 `json:"income"`
	CreditScore    float64 `json:"credit_score"`
	ActivityScore  float64 `json:"activity_score"`
	TotalCardValue float64 `json:"total_card_value"`
	Age            float64 `json:"age"`
	IsDiaspora     bool    `json:"is_diaspora"`
	Segment        string  `json:"segment"`
	Cluster        int     `json:"cluster"`
	Defaulted      bool    `json:"loan_default"`
}

// Aggregator joins raw entity tables into per-customer or per-loan feature
// rows. It is a pure transform: missing savings and card aggregates default
// to zero, a missing age takes the batch median, a missing segment becomes
// "Unknown", and no input row is ever dropped.
type Aggregator struct{}

// NewAggregator creates a new feature aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// CustomerTable assembles one feature row per customer
func (a *Aggregator) CustomerTable(
	customers []models.Customer,
	savings []models.SavingsAccount,
	cards []models.CardActivity,
) ([]CustomerRow, error) {
	if len(customers) == 0 {
		return nil, models.ErrNoData
	}
	if len(customers) < MinClusterRows {
		return nil, &models.InsufficientDataError{Rows: len(customers), Min: MinClusterRows}
	}

	savingsByCustomer := indexSavings(savings)
	cardsByCustomer := indexCards(cards)
	medianAge := medianObservedAge(customers)

	rows := make([]CustomerRow, 0, len(customers))
	for _, c := range customers {
		row := CustomerRow{
			CustomerID:  c.ID,
			Income:      c.Income,
			CreditScore: c.CreditScore,
			Age:         ageOrDefault(c, medianAge),
			IsDiaspora:  c.IsDiaspora,
			Segment:     segmentOrUnknown(c),
			Cluster:     clusterOrNone(c),
		}
		if s, ok := savingsByCustomer[c.ID]; ok {
			row.SavingsBalance = s.SavingsBalance
			row.ActivityScore = s.ActivityScore
		}
		if ca, ok := cardsByCustomer[c.ID]; ok {
			row.TotalCardValue = models.ToFloat64(ca.TotalValue)
			row.CardTxCount = ca.TxCount
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// LoanTable assembles one feature row per loan, left-joining customer,
// savings and card-aggregate attributes
func (a *Aggregator) LoanTable(
	loans []models.Loan,
	customers []models.Customer,
	savings []models.SavingsAccount,
	cards []models.CardActivity,
) ([]LoanRow, error) {
	if len(loans) == 0 {
		return nil, models.ErrNoData
	}

	customerByID := make(map[int64]models.Customer, len(customers))
	for _, c := range customers {
		customerByID[c.ID] = c
	}
	savingsByCustomer := indexSavings(savings)
	cardsByCustomer := indexCards(cards)
	medianAge := medianObservedAge(customers)

	rows := make([]LoanRow, 0, len(loans))
	for _, l := range loans {
		row := LoanRow{
			LoanID:       l.LoanID,
			CustomerID:   l.CustomerID,
			LoanAmount:   l.Amount,
			InterestRate: models.ToFloat64(l.InterestRate),
			TenureMonths: float64(l.TenureMonths),
			Segment:      SegmentUnknown,
			Cluster:      ClusterNone,
			Defaulted:    l.Defaulted,
		}
		if c, ok := customerByID[l.CustomerID]; ok {
			row.Income = c.Income
			row.CreditScore = c.CreditScore
			row.Age = ageOrDefault(c, medianAge)
			row.IsDiaspora = c.IsDiaspora
			row.Segment = segmentOrUnknown(c)
			row.Cluster = clusterOrNone(c)
		}
		if s, ok := savingsByCustomer[l.CustomerID]; ok {
			row.ActivityScore = s.ActivityScore
		}
		if ca, ok := cardsByCustomer[l.CustomerID]; ok {
			row.TotalCardValue = models.ToFloat64(ca.TotalValue)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func indexSavings(savings []models.SavingsAccount) map[int64]models.SavingsAccount {
	byCustomer := make(map[int64]models.SavingsAccount, len(savings))
	for _, s := range savings {
		byCustomer[s.CustomerID] = s
	}
	return byCustomer
}

func indexCards(cards []models.CardActivity) map[int64]models.CardActivity {
	byCustomer := make(map[int64]models.CardActivity, len(cards))
	for _, ca := range cards {
		byCustomer[ca.CustomerID] = ca
	}
	return byCustomer
}

// medianObservedAge computes the median over customers whose age is present.
// A batch with no observed ages at all falls back to zero.
func medianObservedAge(customers []models.Customer) float64 {
	observed := make([]float64, 0, len(customers))
	for _, c := range customers {
		if c.Age.Valid {
			observed = append(observed, float64(c.Age.Int64))
		}
	}
	if len(observed) == 0 {
		return 0
	}

	sort.Float64s(observed)
	mid := len(observed) / 2
	if len(observed)%2 == 0 {
		return (observed[mid-1] + observed[mid]) / 2
	}
	return observed[mid]
}

func ageOrDefault(c models.Customer, median float64) float64 {
	if c.Age.Valid {
		return float64(c.Age.Int64)
	}
	return median
}

func segmentOrUnknown(c models.Customer) string {
	if c.Segment.Valid && c.Segment.String != "" {
		return c.Segment.String
	}
	return SegmentUnknown
}

func clusterOrNone(c models.Customer) int {
	if c.Cluster.Valid {
		return int(c.Cluster.Int64)
	}
	return ClusterNone
}
