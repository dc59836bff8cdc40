package features

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/bankops/retail-analytics/pkg/models"
)

func customer(id int64, income, creditScore float64) models.Customer {
	return models.Customer{
		ID:          id,
		Age:         sql.NullInt64{Int64: 40, Valid: true},
		Income:      income,
		CreditScore: creditScore,
		Segment:     sql.NullString{String: "Middle Class", Valid: true},
	}
}

func savings(customerID int64, balance, activity float64) models.SavingsAccount {
	return models.SavingsAccount{
		AccountID:      customerID,
		CustomerID:     customerID,
		SavingsBalance: balance,
		ActivityScore:  activity,
	}
}

func cardActivity(customerID int64, total float64, count int64) models.CardActivity {
	return models.CardActivity{
		CustomerID: customerID,
		TotalValue: decimal.NewFromFloat(total),
		TxCount:    count,
	}
}

func TestAggregator_CustomerTable(t *testing.T) {
	agg := NewAggregator()

	t.Run("one row per customer, none dropped", func(t *testing.T) {
		customers := []models.Customer{customer(1, 50000, 700), customer(2, 80000, 750), customer(3, 30000, 600)}
		rows, err := agg.CustomerTable(customers, nil, nil)
		if err != nil {
			t.Fatalf("CustomerTable failed: %v", err)
		}
		if len(rows) != len(customers) {
			t.Fatalf("Expected %d rows, got %d", len(customers), len(rows))
		}
		for i, row := range rows {
			if row.CustomerID != customers[i].ID {
				t.Errorf("Row %d: expected customer %d, got %d", i, customers[i].ID, row.CustomerID)
			}
		}
	})

	t.Run("missing savings defaults to zero and row is retained", func(t *testing.T) {
		customers := []models.Customer{customer(1, 50000, 700), customer(2, 80000, 750), customer(3, 30000, 600)}
		sav := []models.SavingsAccount{savings(1, 12000, 0.8)}

		rows, err := agg.CustomerTable(customers, sav, nil)
		if err != nil {
			t.Fatalf("CustomerTable failed: %v", err)
		}

		if rows[0].SavingsBalance != 12000 || rows[0].ActivityScore != 0.8 {
			t.Errorf("Customer 1 savings not joined: %+v", rows[0])
		}
		if rows[1].SavingsBalance != 0 || rows[1].ActivityScore != 0 {
			t.Errorf("Customer 2 should default savings to zero: %+v", rows[1])
		}
	})

	t.Run("missing card aggregate defaults to zero", func(t *testing.T) {
		customers := []models.Customer{customer(1, 50000, 700), customer(2, 80000, 750), customer(3, 30000, 600)}
		cards := []models.CardActivity{cardActivity(2, 4500.50, 9)}

		rows, err := agg.CustomerTable(customers, nil, cards)
		if err != nil {
			t.Fatalf("CustomerTable failed: %v", err)
		}

		if rows[0].TotalCardValue != 0 || rows[0].CardTxCount != 0 {
			t.Errorf("Customer 1 should default card aggregate to zero: %+v", rows[0])
		}
		if rows[1].TotalCardValue != 4500.50 || rows[1].CardTxCount != 9 {
			t.Errorf("Customer 2 card aggregate not joined: %+v", rows[1])
		}
	})

	t.Run("missing age takes the batch median", func(t *testing.T) {
		customers := []models.Customer{customer(1, 50000, 700), customer(2, 80000, 750), customer(3, 30000, 600), customer(4, 45000, 650)}
		customers[0].Age = sql.NullInt64{Int64: 20, Valid: true}
		customers[1].Age = sql.NullInt64{Int64: 30, Valid: true}
		customers[2].Age = sql.NullInt64{Int64: 60, Valid: true}
		customers[3].Age = sql.NullInt64{}

		rows, err := agg.CustomerTable(customers, nil, nil)
		if err != nil {
			t.Fatalf("CustomerTable failed: %v", err)
		}
		if rows[3].Age != 30 {
			t.Errorf("Expected median age 30, got %v", rows[3].Age)
		}
	})

	t.Run("missing segment becomes Unknown, missing cluster becomes -1", func(t *testing.T) {
		customers := []models.Customer{customer(1, 50000, 700), customer(2, 80000, 750), customer(3, 30000, 600)}
		customers[0].Segment = sql.NullString{}
		customers[1].Cluster = sql.NullInt64{Int64: 2, Valid: true}

		rows, err := agg.CustomerTable(customers, nil, nil)
		if err != nil {
			t.Fatalf("CustomerTable failed: %v", err)
		}
		if rows[0].Segment != SegmentUnknown {
			t.Errorf("Expected segment %q, got %q", SegmentUnknown, rows[0].Segment)
		}
		if rows[1].Cluster != 2 {
			t.Errorf("Expected cluster 2, got %d", rows[1].Cluster)
		}
		if rows[0].Cluster != ClusterNone {
			t.Errorf("Expected cluster sentinel %d, got %d", ClusterNone, rows[0].Cluster)
		}
	})

	t.Run("empty table", func(t *testing.T) {
		_, err := agg.CustomerTable(nil, nil, nil)
		if !errors.Is(err, models.ErrNoData) {
			t.Errorf("Expected ErrNoData, got %v", err)
		}
	})

	t.Run("fewer than three rows", func(t *testing.T) {
		customers := []models.Customer{customer(1, 50000, 700), customer(2, 80000, 750)}
		_, err := agg.CustomerTable(customers, nil, nil)

		var insufficient *models.InsufficientDataError
		if !errors.As(err, &insufficient) {
			t.Fatalf("Expected InsufficientDataError, got %v", err)
		}
		if insufficient.Rows != 2 || insufficient.Min != MinClusterRows {
			t.Errorf("Unexpected error detail: %+v", insufficient)
		}
	})
}

func TestAggregator_LoanTable(t *testing.T) {
	agg := NewAggregator()

	loan := func(loanID, customerID int64, amount float64, defaulted bool) models.Loan {
		return models.Loan{
			LoanID:       loanID,
			CustomerID:   customerID,
			Amount:       amount,
			TenureMonths: 24,
			InterestRate: decimal.NewFromFloat(12.5),
			Defaulted:    defaulted,
		}
	}

	t.Run("one row per loan with joined customer attributes", func(t *testing.T) {
		customers := []models.Customer{customer(1, 50000, 700)}
		loans := []models.Loan{loan(10, 1, 200000, false), loan(11, 1, 50000, true)}
		sav := []models.SavingsAccount{savings(1, 12000, 0.8)}
		cards := []models.CardActivity{cardActivity(1, 3000, 5)}

		rows, err := agg.LoanTable(loans, customers, sav, cards)
		if err != nil {
			t.Fatalf("LoanTable failed: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("Expected 2 rows, got %d", len(rows))
		}

		first := rows[0]
		if first.LoanID != 10 || first.Income != 50000 || first.InterestRate != 12.5 {
			t.Errorf("Loan attributes not joined: %+v", first)
		}
		if first.ActivityScore != 0.8 || first.TotalCardValue != 3000 {
			t.Errorf("Savings/card attributes not joined: %+v", first)
		}
		if !rows[1].Defaulted {
			t.Errorf("Default flag lost in join")
		}
	})

	t.Run("loan for unknown customer keeps defaults", func(t *testing.T) {
		loans := []models.Loan{loan(10, 99, 200000, false)}

		rows, err := agg.LoanTable(loans, nil, nil, nil)
		if err != nil {
			t.Fatalf("LoanTable failed: %v", err)
		}
		row := rows[0]
		if row.Segment != SegmentUnknown || row.Cluster != ClusterNone {
			t.Errorf("Expected unknown-customer defaults, got %+v", row)
		}
		if row.Income != 0 || row.ActivityScore != 0 {
			t.Errorf("Expected zero defaults, got %+v", row)
		}
	})

	t.Run("empty loan table", func(t *testing.T) {
		_, err := agg.LoanTable(nil, nil, nil, nil)
		if !errors.Is(err, models.ErrNoData) {
			t.Errorf("Expected ErrNoData, got %v", err)
		}
	})
}

func TestLoanRiskColumns(t *testing.T) {
	cols := LoanRiskColumns()
	if len(cols) != 12 {
		t.Fatalf("Expected 12 columns, got %d", len(cols))
	}

	expected := []string{
		"loan_amount", "interest_rate", "loan_tenure_months", "income",
		"credit_score", "activity_score", "total_card_value", "is_diaspora",
		"age", "segment_High Net Worth", "segment_Low Income", "segment_Middle Class",
	}
	for i, col := range expected {
		if cols[i] != col {
			t.Errorf("Column %d: expected %q, got %q", i, col, cols[i])
		}
	}
}

func TestLoanVector(t *testing.T) {
	row := LoanRow{
		LoanAmount:     200000,
		InterestRate:   12.5,
		TenureMonths:   24,
		Income:         50000,
		CreditScore:    700,
		ActivityScore:  0.8,
		TotalCardValue: 3000,
		Age:            40,
		IsDiaspora:     true,
		Segment:        "Middle Class",
	}

	vec := LoanVector(&row)
	if len(vec) != 12 {
		t.Fatalf("Expected 12 features, got %d", len(vec))
	}
	if vec[7] != 1 {
		t.Errorf("is_diaspora should encode to 1, got %v", vec[7])
	}
	if vec[9] != 0 || vec[10] != 0 || vec[11] != 1 {
		t.Errorf("Unexpected segment encoding: %v", vec[9:])
	}

	// Unknown segment leaves every indicator zero-filled
	row.Segment = SegmentUnknown
	vec = LoanVector(&row)
	if vec[9] != 0 || vec[10] != 0 || vec[11] != 0 {
		t.Errorf("Unknown segment should zero every indicator: %v", vec[9:])
	}
}

func TestLoanValue(t *testing.T) {
	row := LoanRow{Income: 50000, Segment: "Low Income"}

	if v, ok := LoanValue(&row, "income"); !ok || v != 50000 {
		t.Errorf("income lookup failed: %v %v", v, ok)
	}
	if v, ok := LoanValue(&row, "segment_Low Income"); !ok || v != 1 {
		t.Errorf("indicator lookup failed: %v %v", v, ok)
	}
	if v, ok := LoanValue(&row, "segment_High Net Worth"); !ok || v != 0 {
		t.Errorf("unmatched indicator should zero-fill: %v %v", v, ok)
	}
	if _, ok := LoanValue(&row, "fx_volume_usd"); ok {
		t.Errorf("unknown column should not resolve")
	}
}
