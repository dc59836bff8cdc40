package features

import (
	"github.com/bankops/retail-analytics/pkg/models"
)

// Feature column names. Training and scoring consume the same ordered schema,
// so the two paths cannot drift apart.
const (
	ColLoanAmount     = "loan_amount"
	ColInterestRate   = "interest_rate"
	ColTenureMonths   = "loan_tenure_months"
	ColIncome         = "income"
	ColCreditScore    = "credit_score"
	ColActivityScore  = "activity_score"
	ColTotalCardValue = "total_card_value"
	ColIsDiaspora     = "is_diaspora"
	ColAge            = "age"
	ColSavingsBalance = "savings_balance"

	segmentPrefix = "segment_"

	// SegmentUnknown is substituted for a missing segment label
	SegmentUnknown = "Unknown"

	// ClusterNone is the sentinel for customers without a cluster assignment
	ClusterNone = -1
)

// SegmentVocabulary is the fixed set of segment labels, in indicator-column
// order. A label absent from a batch still yields a zero-filled column.
var SegmentVocabulary = []string{"High Net Worth", "Low Income", "Middle Class"}

// LoanRiskColumns returns the loan-risk feature schema: 12 columns, fixed order
func LoanRiskColumns() []string {
	cols := []string{
		ColLoanAmount,
		ColInterestRate,
		ColTenureMonths,
		ColIncome,
		ColCreditScore,
		ColActivityScore,
		ColTotalCardValue,
		ColIsDiaspora,
		ColAge,
	}
	for _, seg := range SegmentVocabulary {
		cols = append(cols, segmentPrefix+seg)
	}
	return cols
}

// SegmentationColumns returns the customer clustering feature schema
func SegmentationColumns() []string {
	return []string{ColIncome, ColCreditScore, ColSavingsBalance, ColTotalCardValue}
}

// IsSegmentIndicator reports whether a column is a one-hot segment indicator.
// Indicators missing at scoring time are zero-filled instead of failing.
func IsSegmentIndicator(col string) bool {
	return len(col) > len(segmentPrefix) && col[:len(segmentPrefix)] == segmentPrefix
}

// LoanVector assembles the fixed-order feature vector for one loan row
func LoanVector(r *LoanRow) []float64 {
	vec := []float64{
		r.LoanAmount,
		r.InterestRate,
		r.TenureMonths,
		r.Income,
		r.CreditScore,
		r.ActivityScore,
		r.TotalCardValue,
		models.BoolToFloat(r.IsDiaspora),
		r.Age,
	}
	for _, seg := range SegmentVocabulary {
		vec = append(vec, oneHot(r.Segment, seg))
	}
	return vec
}

// LoanValue returns the value of a single named column for one loan row.
// Unknown non-indicator columns report ok=false so the scorer can fail loudly.
func LoanValue(r *LoanRow, col string) (float64, bool) {
	switch col {
	case ColLoanAmount:
		return r.LoanAmount, true
	case ColInterestRate:
		return r.InterestRate, true
	case ColTenureMonths:
		return r.TenureMonths, true
	case ColIncome:
		return r.Income, true
	case ColCreditScore:
		return r.CreditScore, true
	case ColActivityScore:
		return r.ActivityScore, true
	case ColTotalCardValue:
		return r.TotalCardValue, true
	case ColIsDiaspora:
		return models.BoolToFloat(r.IsDiaspora), true
	case ColAge:
		return r.Age, true
	}
	if IsSegmentIndicator(col) {
		return oneHot(r.Segment, col[len(segmentPrefix):]), true
	}
	return 0, false
}

// SegmentationVector assembles the clustering feature vector for one customer
func SegmentationVector(r *CustomerRow) []float64 {
	return []float64{r.Income, r.CreditScore, r.SavingsBalance, r.TotalCardValue}
}

func oneHot(value, label string) float64 {
	if value == label {
		return 1
	}
	return 0
}
