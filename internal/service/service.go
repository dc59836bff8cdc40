package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bankops/retail-analytics/internal/adapters/clickhouse"
	"github.com/bankops/retail-analytics/internal/artifacts"
	"github.com/bankops/retail-analytics/internal/features"
	"github.com/bankops/retail-analytics/internal/risk"
	"github.com/bankops/retail-analytics/internal/segmentation"
	"github.com/bankops/retail-analytics/pkg/models"
)

// Storage is the tabular read interface the analytics core consumes
type Storage interface {
	Customers(ctx context.Context) ([]models.Customer, error)
	SavingsAccounts(ctx context.Context) ([]models.SavingsAccount, error)
	CardActivity(ctx context.Context) ([]models.CardActivity, error)
	Loans(ctx context.Context) ([]models.Loan, error)
}

// ClusterWriter persists cluster assignments back to the customer store
type ClusterWriter interface {
	UpdateClusters(ctx context.Context, assignments []models.ClusterAssignment) error
}

// HistoryWriter appends analytics run records to the history sink
type HistoryWriter interface {
	Append(ctx context.Context, rec clickhouse.RunRecord) error
}

// Service exposes the three analytics query operations. Engines are
// synchronous in-memory transforms; the only shared state is the read-only
// artifact holder.
type Service struct {
	store      Storage
	clusters   ClusterWriter // optional: best-effort write-back
	history    HistoryWriter // optional: best-effort run history
	holder     *artifacts.Holder
	aggregator *features.Aggregator
	segmenter  *segmentation.Engine
	scorer     *risk.Scorer
	log        *zap.Logger
}

// New creates the analytics service. clusters and history may be nil.
func New(store Storage, holder *artifacts.Holder, clusters ClusterWriter, history HistoryWriter, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:      store,
		clusters:   clusters,
		history:    history,
		holder:     holder,
		aggregator: features.NewAggregator(),
		segmenter:  segmentation.NewEngine(),
		scorer:     risk.NewScorer(),
		log:        log,
	}
}

// SegmentCustomers clusters the customer base and, as an explicit
// best-effort post-step, writes the assignments back to storage. A
// write-back failure is logged and never fails the response that was
// already computed in memory.
func (s *Service) SegmentCustomers(ctx context.Context, k int) (*segmentation.Result, error) {
	started := time.Now()

	rows, err := s.customerTable(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.segmenter.Segment(rows, k)
	if err != nil {
		return nil, err
	}

	s.persistClusters(ctx, result.Assignments)
	s.recordRun(ctx, "segmentation", len(result.Assignments), time.Since(started))

	return result, nil
}

// ScoreLoanRisk scores every loan through the active artifact pair
func (s *Service) ScoreLoanRisk(ctx context.Context) (*risk.ScoreSet, error) {
	started := time.Now()

	rows, err := s.loanTable(ctx)
	if err != nil {
		return nil, err
	}

	set, err := s.scorer.Score(rows, s.holder.Get())
	if err != nil {
		return nil, err
	}

	s.recordRun(ctx, "loan_risk", set.Portfolio.TotalLoans, time.Since(started))
	return set, nil
}

// customerTable loads and aggregates the customer feature table
func (s *Service) customerTable(ctx context.Context) ([]features.CustomerRow, error) {
	customers, err := s.store.Customers(ctx)
	if err != nil {
		return nil, err
	}
	savings, err := s.store.SavingsAccounts(ctx)
	if err != nil {
		return nil, err
	}
	cards, err := s.store.CardActivity(ctx)
	if err != nil {
		return nil, err
	}
	return s.aggregator.CustomerTable(customers, savings, cards)
}

// loanTable loads and aggregates the loan feature table
func (s *Service) loanTable(ctx context.Context) ([]features.LoanRow, error) {
	loans, err := s.store.Loans(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := s.store.Customers(ctx)
	if err != nil {
		return nil, err
	}
	savings, err := s.store.SavingsAccounts(ctx)
	if err != nil {
		return nil, err
	}
	cards, err := s.store.CardActivity(ctx)
	if err != nil {
		return nil, err
	}
	return s.aggregator.LoanTable(loans, customers, savings, cards)
}

// persistClusters is the optional post-step after segmentation
func (s *Service) persistClusters(ctx context.Context, assignments []models.ClusterAssignment) {
	if s.clusters == nil {
		return
	}
	if err := s.clusters.UpdateClusters(ctx, assignments); err != nil {
		writeErr := &models.ExternalWriteError{Target: "customer clusters", Err: err}
		s.log.Warn("cluster write-back failed, continuing",
			zap.Error(writeErr),
		)
	}
}

// recordRun appends run stats to the history sink, best-effort
func (s *Service) recordRun(ctx context.Context, operation string, rows int, duration time.Duration) {
	if s.history == nil {
		return
	}
	rec := clickhouse.RunRecord{
		Operation:  operation,
		Rows:       rows,
		Duration:   duration,
		ExecutedAt: time.Now().UTC(),
	}
	if err := s.history.Append(ctx, rec); err != nil {
		s.log.Warn("run history write failed, continuing",
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
}
