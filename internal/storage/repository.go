package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bankops/retail-analytics/pkg/models"
)

// Repository reads the raw entity tables and writes cluster assignments back
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a storage repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Customers loads every customer row
func (r *Repository) Customers(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	err := r.db.SelectContext(ctx, &customers, `
		SELECT customer_id, age, income, credit_score, is_diaspora,
		       segment, preferred_currency, cluster, created_at, updated_at
		FROM customers
		ORDER BY customer_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}
	return customers, nil
}

// SavingsAccounts loads every savings account row
func (r *Repository) SavingsAccounts(ctx context.Context) ([]models.SavingsAccount, error) {
	var accounts []models.SavingsAccount
	err := r.db.SelectContext(ctx, &accounts, `
		SELECT account_id, customer_id, savings_balance, monthly_deposit,
		       activity_score, created_at
		FROM savings_accounts
		ORDER BY account_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load savings accounts: %w", err)
	}
	return accounts, nil
}

// CardActivity computes the per-customer card transaction aggregate in SQL
func (r *Repository) CardActivity(ctx context.Context) ([]models.CardActivity, error) {
	var activity []models.CardActivity
	err := r.db.SelectContext(ctx, &activity, `
		SELECT customer_id,
		       COALESCE(SUM(transaction_value), 0) AS total_value,
		       COUNT(*) AS tx_count
		FROM card_transactions
		GROUP BY customer_id
		ORDER BY customer_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate card transactions: %w", err)
	}
	return activity, nil
}

// Loans loads every loan row
func (r *Repository) Loans(ctx context.Context) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.db.SelectContext(ctx, &loans, `
		SELECT loan_id, customer_id, loan_amount, loan_tenure_months,
		       interest_rate, loan_default
		FROM loans
		ORDER BY loan_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load loans: %w", err)
	}
	return loans, nil
}

// UpdateClusters bulk-writes cluster assignments back to the customers
// table. Concurrent writers are not isolated; last writer wins.
func (r *Repository) UpdateClusters(ctx context.Context, assignments []models.ClusterAssignment) error {
	if len(assignments) == 0 {
		return nil
	}

	ids := make([]int64, len(assignments))
	clusters := make([]int64, len(assignments))
	for i, a := range assignments {
		ids[i] = a.CustomerID
		clusters[i] = int64(a.Cluster)
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE customers AS c
		SET cluster = u.cluster, updated_at = now()
		FROM (
			SELECT unnest($1::bigint[]) AS customer_id,
			       unnest($2::bigint[]) AS cluster
		) u
		WHERE c.customer_id = u.customer_id
	`, pq.Array(ids), pq.Array(clusters))
	if err != nil {
		return fmt.Errorf("failed to update clusters: %w", err)
	}
	return nil
}
