package risk

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/bankops/retail-analytics/internal/features"
	"github.com/bankops/retail-analytics/pkg/models"
)

const (
	// trainSeed fixes the holdout split and any other random draw
	trainSeed = 42

	testFraction = 0.2
	minTrainRows = 5

	numEstimators = 100
	maxTreeDepth  = 3
	learningRate  = 0.1
)

// ArtifactPair is the immutable scaler+classifier bundle produced by one
// training run. Scoring loads it read-only; there is no mutation API.
type ArtifactPair struct {
	Scaler     *StandardScaler
	Classifier *GradientBoostedClassifier
	Schema     []string
	TrainedAt  time.Time
	AUC        float64
	TrainRows  int
	TestRows   int
}

// Trainer owns the offline training procedure
type Trainer struct{}

// NewTrainer creates a trainer
func NewTrainer() *Trainer {
	return &Trainer{}
}

// Train fits the scaler and classifier on the loan feature table and reports
// AUC-ROC on a seeded 20% holdout. There is no automatic acceptance gate;
// the operator reviews the metric.
func (t *Trainer) Train(rows []features.LoanRow) (*ArtifactPair, error) {
	if len(rows) == 0 {
		return nil, models.ErrNoData
	}
	if len(rows) < minTrainRows {
		return nil, &models.InsufficientDataError{Rows: len(rows), Min: minTrainRows}
	}

	schema := features.LoanRiskColumns()

	vectors := make([][]float64, len(rows))
	labels := make([]int, len(rows))
	for i := range rows {
		vectors[i] = features.LoanVector(&rows[i])
		if rows[i].Defaulted {
			labels[i] = 1
		}
	}

	// Class imbalance correction: weight positives by the neg/pos ratio
	neg, pos := 0, 0
	for _, y := range labels {
		if y == 1 {
			pos++
		} else {
			neg++
		}
	}
	scalePosWeight := 1.0
	if pos > 0 {
		scalePosWeight = float64(neg) / float64(pos)
	}

	trainIdx, testIdx := split(len(rows), testFraction, trainSeed)

	trainX := pick(vectors, trainIdx)
	trainY := pickLabels(labels, trainIdx)
	testX := pick(vectors, testIdx)
	testY := pickLabels(labels, testIdx)

	// Scaler fit on the training split only
	scaler := &StandardScaler{}
	scaler.Fit(trainX)
	trainScaled := scaler.Transform(trainX)
	testScaled := scaler.Transform(testX)

	classifier := fitClassifier(trainScaled, trainY, boostingParams{
		estimators:     numEstimators,
		maxDepth:       maxTreeDepth,
		learningRate:   learningRate,
		scalePosWeight: scalePosWeight,
	})

	testProbs := make([]float64, len(testScaled))
	for i, x := range testScaled {
		testProbs[i] = classifier.PredictProba(x)
	}

	return &ArtifactPair{
		Scaler:     scaler,
		Classifier: classifier,
		Schema:     schema,
		TrainedAt:  time.Now().UTC(),
		AUC:        aucROC(testY, testProbs),
		TrainRows:  len(trainIdx),
		TestRows:   len(testIdx),
	}, nil
}

// split shuffles row indices with the fixed seed and carves off the holdout
func split(n int, fraction float64, seed int64) (train, test []int) {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })

	testN := int(math.Round(float64(n) * fraction))
	if testN < 1 {
		testN = 1
	}
	if testN >= n {
		testN = n - 1
	}

	return idx[testN:], idx[:testN]
}

func pick(rows [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = rows[j]
	}
	return out
}

func pickLabels(labels []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = labels[j]
	}
	return out
}

// aucROC computes the area under the ROC curve as the Mann-Whitney rank
// statistic, with average ranks for tied probabilities. A holdout with only
// one class present reports 0.
func aucROC(labels []int, probs []float64) float64 {
	type scored struct {
		prob  float64
		label int
	}
	items := make([]scored, len(labels))
	for i := range labels {
		items[i] = scored{prob: probs[i], label: labels[i]}
	}
	sort.Slice(items, func(a, b int) bool { return items[a].prob < items[b].prob })

	pos, neg := 0, 0
	for _, it := range items {
		if it.label == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0
	}

	// Average ranks across probability ties
	ranks := make([]float64, len(items))
	for i := 0; i < len(items); {
		j := i
		for j < len(items) && items[j].prob == items[i].prob {
			j++
		}
		avgRank := float64(i+j+1) / 2 // ranks are 1-based
		for k := i; k < j; k++ {
			ranks[k] = avgRank
		}
		i = j
	}

	rankSum := 0.0
	for i, it := range items {
		if it.label == 1 {
			rankSum += ranks[i]
		}
	}

	u := rankSum - float64(pos)*float64(pos+1)/2
	return u / (float64(pos) * float64(neg))
}
