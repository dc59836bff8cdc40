package risk

import (
	"errors"
	"math"
	"testing"

	"github.com/bankops/retail-analytics/internal/features"
	"github.com/bankops/retail-analytics/pkg/models"
)

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// syntheticLoans builds a separable training table: every other loan
// defaulted, with high interest and a weak credit profile on the defaults
func syntheticLoans(n int) []features.LoanRow {
	rows := make([]features.LoanRow, 0, n)
	for i := 0; i < n; i++ {
		row := features.LoanRow{
			LoanID:         int64(i + 1),
			CustomerID:     int64(i%10 + 1),
			LoanAmount:     50000 + float64(i)*1000,
			InterestRate:   10,
			TenureMonths:   24,
			Income:         80000 + float64(i%10)*500,
			CreditScore:    720,
			ActivityScore:  0.6,
			TotalCardValue: 3000,
			Age:            35 + float64(i%20),
			Segment:        "Middle Class",
			Cluster:        i % 3,
		}
		if i%2 == 0 {
			row.Defaulted = true
			row.InterestRate = 22
			row.CreditScore = 480
			row.Income = 25000
		}
		rows = append(rows, row)
	}
	return rows
}

func TestStandardScaler(t *testing.T) {
	t.Run("fitted transform has zero mean and unit variance", func(t *testing.T) {
		rows := [][]float64{{1, 10}, {2, 20}, {3, 30}, {4, 40}, {5, 50}}
		scaler := &StandardScaler{}
		scaler.Fit(rows)
		out := scaler.Transform(rows)

		for d := 0; d < 2; d++ {
			mean, variance := 0.0, 0.0
			for _, r := range out {
				mean += r[d]
			}
			mean /= float64(len(out))
			for _, r := range out {
				variance += (r[d] - mean) * (r[d] - mean)
			}
			variance /= float64(len(out))

			if abs(mean) > 1e-9 {
				t.Errorf("Column %d: expected zero mean, got %v", d, mean)
			}
			if abs(variance-1) > 1e-9 {
				t.Errorf("Column %d: expected unit variance, got %v", d, variance)
			}
		}
	})

	t.Run("constant column keeps unit divisor", func(t *testing.T) {
		rows := [][]float64{{7}, {7}, {7}}
		scaler := &StandardScaler{}
		scaler.Fit(rows)
		if scaler.Stds[0] != 1 {
			t.Errorf("Expected unit std for constant column, got %v", scaler.Stds[0])
		}
		if v := scaler.TransformRow([]float64{7})[0]; v != 0 {
			t.Errorf("Expected 0, got %v", v)
		}
	})
}

func TestAUCROC(t *testing.T) {
	t.Run("perfect separation", func(t *testing.T) {
		auc := aucROC([]int{0, 0, 1, 1}, []float64{0.1, 0.2, 0.8, 0.9})
		if abs(auc-1.0) > 1e-9 {
			t.Errorf("Expected AUC 1.0, got %v", auc)
		}
	})

	t.Run("inverted separation", func(t *testing.T) {
		auc := aucROC([]int{1, 1, 0, 0}, []float64{0.1, 0.2, 0.8, 0.9})
		if abs(auc) > 1e-9 {
			t.Errorf("Expected AUC 0.0, got %v", auc)
		}
	})

	t.Run("interleaved", func(t *testing.T) {
		auc := aucROC([]int{0, 1, 0, 1}, []float64{0.1, 0.2, 0.3, 0.4})
		if abs(auc-0.75) > 1e-9 {
			t.Errorf("Expected AUC 0.75, got %v", auc)
		}
	})

	t.Run("all probabilities tied", func(t *testing.T) {
		auc := aucROC([]int{0, 1, 0, 1}, []float64{0.5, 0.5, 0.5, 0.5})
		if abs(auc-0.5) > 1e-9 {
			t.Errorf("Expected AUC 0.5 for tied probabilities, got %v", auc)
		}
	})

	t.Run("single class holdout", func(t *testing.T) {
		if auc := aucROC([]int{0, 0, 0}, []float64{0.1, 0.2, 0.3}); auc != 0 {
			t.Errorf("Expected AUC 0 for single-class holdout, got %v", auc)
		}
	})
}

func TestFitClassifier(t *testing.T) {
	rows := [][]float64{{0}, {0.1}, {0.2}, {0.3}, {1}, {1.1}, {1.2}, {1.3}}
	labels := []int{0, 0, 0, 0, 1, 1, 1, 1}

	model := fitClassifier(rows, labels, boostingParams{
		estimators:     50,
		maxDepth:       3,
		learningRate:   0.1,
		scalePosWeight: 1,
	})

	t.Run("separates the classes", func(t *testing.T) {
		low := model.PredictProba([]float64{0.15})
		high := model.PredictProba([]float64{1.15})
		if low > 0.2 {
			t.Errorf("Expected low probability for negative region, got %v", low)
		}
		if high < 0.8 {
			t.Errorf("Expected high probability for positive region, got %v", high)
		}
	})

	t.Run("probabilities stay in range", func(t *testing.T) {
		for _, x := range rows {
			p := model.PredictProba(x)
			if p <= 0 || p >= 1 || math.IsNaN(p) {
				t.Errorf("Probability out of range for %v: %v", x, p)
			}
		}
	})

	t.Run("importances normalize to one", func(t *testing.T) {
		imp := model.FeatureImportances()
		if len(imp) != 1 {
			t.Fatalf("Expected 1 importance, got %d", len(imp))
		}
		if abs(imp[0]-1.0) > 1e-9 {
			t.Errorf("Single informative feature should carry all importance, got %v", imp[0])
		}
	})

	t.Run("ensemble has requested size", func(t *testing.T) {
		if len(model.Trees) != 50 {
			t.Errorf("Expected 50 trees, got %d", len(model.Trees))
		}
	})
}

func TestTrainer_Train(t *testing.T) {
	trainer := NewTrainer()

	t.Run("produces a complete artifact pair", func(t *testing.T) {
		rows := syntheticLoans(40)
		pair, err := trainer.Train(rows)
		if err != nil {
			t.Fatalf("Train failed: %v", err)
		}

		if len(pair.Schema) != 12 {
			t.Errorf("Expected 12 schema columns, got %d", len(pair.Schema))
		}
		if len(pair.Scaler.Means) != 12 || len(pair.Scaler.Stds) != 12 {
			t.Errorf("Scaler dimension mismatch: %d means, %d stds", len(pair.Scaler.Means), len(pair.Scaler.Stds))
		}
		if pair.TrainRows+pair.TestRows != 40 {
			t.Errorf("Split does not cover input: %d train + %d test", pair.TrainRows, pair.TestRows)
		}
		if pair.TestRows != 8 {
			t.Errorf("Expected 20%% holdout of 8 rows, got %d", pair.TestRows)
		}
		if pair.TrainedAt.IsZero() {
			t.Errorf("TrainedAt not set")
		}
	})

	t.Run("separable data scores a strong AUC", func(t *testing.T) {
		pair, err := trainer.Train(syntheticLoans(40))
		if err != nil {
			t.Fatalf("Train failed: %v", err)
		}
		if pair.AUC < 0.9 || pair.AUC > 1.0 {
			t.Errorf("Expected AUC near 1 on separable data, got %v", pair.AUC)
		}
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		rows := syntheticLoans(40)
		first, err := trainer.Train(rows)
		if err != nil {
			t.Fatalf("First run failed: %v", err)
		}
		second, err := trainer.Train(rows)
		if err != nil {
			t.Fatalf("Second run failed: %v", err)
		}

		if first.AUC != second.AUC {
			t.Errorf("AUC differs between runs: %v vs %v", first.AUC, second.AUC)
		}
		for d := range first.Scaler.Means {
			if first.Scaler.Means[d] != second.Scaler.Means[d] {
				t.Errorf("Scaler mean %d differs between runs", d)
			}
		}
	})

	t.Run("all-negative labels still train", func(t *testing.T) {
		rows := syntheticLoans(20)
		for i := range rows {
			rows[i].Defaulted = false
		}
		pair, err := trainer.Train(rows)
		if err != nil {
			t.Fatalf("Train failed: %v", err)
		}
		if pair.AUC != 0 {
			t.Errorf("Single-class holdout should report AUC 0, got %v", pair.AUC)
		}
	})

	t.Run("empty table", func(t *testing.T) {
		_, err := trainer.Train(nil)
		if !errors.Is(err, models.ErrNoData) {
			t.Errorf("Expected ErrNoData, got %v", err)
		}
	})

	t.Run("too few rows", func(t *testing.T) {
		_, err := trainer.Train(syntheticLoans(3))
		var insufficient *models.InsufficientDataError
		if !errors.As(err, &insufficient) {
			t.Fatalf("Expected InsufficientDataError, got %v", err)
		}
		if insufficient.Rows != 3 || insufficient.Min != minTrainRows {
			t.Errorf("Unexpected error detail: %+v", insufficient)
		}
	})
}

func TestSplit(t *testing.T) {
	train, test := split(40, 0.2, trainSeed)
	if len(test) != 8 || len(train) != 32 {
		t.Fatalf("Unexpected split sizes: %d train, %d test", len(train), len(test))
	}

	seen := make(map[int]bool)
	for _, i := range append(append([]int{}, train...), test...) {
		if seen[i] {
			t.Errorf("Index %d appears twice", i)
		}
		seen[i] = true
	}
	if len(seen) != 40 {
		t.Errorf("Split covers %d indices, expected 40", len(seen))
	}

	t.Run("holdout never empty or full", func(t *testing.T) {
		_, tiny := split(2, 0.2, trainSeed)
		if len(tiny) != 1 {
			t.Errorf("Expected 1 holdout row from 2, got %d", len(tiny))
		}
	})
}
