package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Customer represents a retail banking customer
type Customer struct {
	ID                int64           `db:"customer_id" json:"customer_id"`
	Age               sql.NullInt64   `db:"age" json:"age"`
	Income            float64         `db:"income" json:"income"`
	CreditScore       float64         `db:"credit_score" json:"credit_score"`
	IsDiaspora        bool            `db:"is_diaspora" json:"is_diaspora"`
	Segment           sql.NullString  `db:"segment" json:"segment"`
	PreferredCurrency string          `db:"preferred_currency" json:"preferred_currency"`
	Cluster           sql.NullInt64   `db:"cluster" json:"cluster"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// SavingsAccount represents a customer's savings account (at most one per customer)
type SavingsAccount struct {
	AccountID      int64     `db:"account_id" json:"account_id"`
	CustomerID     int64     `db:"customer_id" json:"customer_id"`
	SavingsBalance float64   `db:"savings_balance" json:"savings_balance"`
	MonthlyDeposit float64   `db:"monthly_deposit" json:"monthly_deposit"`
	ActivityScore  float64   `db:"activity_score" json:"activity_score"` // 0..1
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// CardTransaction represents a single card transaction.
// Value is money and stays decimal until feature assembly converts it to float64.
type CardTransaction struct {
	TransactionID   int64           `db:"transaction_id" json:"transaction_id"`
	CustomerID      int64           `db:"customer_id" json:"customer_id"`
	Value           decimal.Decimal `db:"transaction_value" json:"transaction_value"`
	Category        string          `db:"category" json:"category"`
	IsFXTransaction bool            `db:"is_fx_transaction" json:"is_fx_transaction"`
	TransactionDate time.Time       `db:"transaction_date" json:"transaction_date"`
}

// CardActivity is the per-customer card transaction aggregate (derived, never stored)
type CardActivity struct {
	CustomerID int64           `db:"customer_id" json:"customer_id"`
	TotalValue decimal.Decimal `db:"total_value" json:"total_value"`
	TxCount    int64           `db:"tx_count" json:"tx_count"`
}

// Loan represents a single loan; a customer may hold many
type Loan struct {
	LoanID       int64           `db:"loan_id" json:"loan_id"`
	CustomerID   int64           `db:"customer_id" json:"customer_id"`
	Amount       float64         `db:"loan_amount" json:"loan_amount"`
	TenureMonths int             `db:"loan_tenure_months" json:"loan_tenure_months"`
	InterestRate decimal.Decimal `db:"interest_rate" json:"interest_rate"`
	Defaulted    bool            `db:"loan_default" json:"loan_default"` // ground truth, training only
}

// ClusterAssignment pairs a customer with their segmentation cluster id
type ClusterAssignment struct {
	CustomerID int64 `db:"customer_id" json:"customer_id"`
	Cluster    int   `db:"cluster" json:"cluster"`
}
