package risk

import "math"

// GradientBoostedClassifier is a binary classifier built from shallow
// regression trees fit to logistic-loss gradients. Depth, estimator count
// and learning rate mirror the production training recipe: depth 3,
// 100 rounds, rate 0.1.
type GradientBoostedClassifier struct {
	Trees        []RegressionTree `json:"trees"`
	LearningRate float64          `json:"learning_rate"`
	BaseScore    float64          `json:"base_score"`
	NFeatures    int              `json:"n_features"`
	Importances  []float64        `json:"feature_importances"`
}

// boostingParams controls a single training run
type boostingParams struct {
	estimators     int
	maxDepth       int
	learningRate   float64
	scalePosWeight float64
}

// fitClassifier trains the ensemble on scaled feature rows and 0/1 labels.
// scalePosWeight multiplies the positive-class sample weight so a rare
// default class is not washed out by the majority.
func fitClassifier(rows [][]float64, labels []int, params boostingParams) *GradientBoostedClassifier {
	n := len(rows)
	dims := len(rows[0])

	weights := make([]float64, n)
	sumW, sumWPos := 0.0, 0.0
	for i, y := range labels {
		weights[i] = 1
		if y == 1 {
			weights[i] = params.scalePosWeight
			sumWPos += weights[i]
		}
		sumW += weights[i]
	}

	// Initial score is the log-odds of the weighted base rate
	baseRate := sumWPos / sumW
	baseRate = clampProb(baseRate)
	base := math.Log(baseRate / (1 - baseRate))

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = base
	}

	model := &GradientBoostedClassifier{
		LearningRate: params.learningRate,
		BaseScore:    base,
		NFeatures:    dims,
	}

	gradients := make([]float64, n)
	hessians := make([]float64, n)
	samples := make([]int, n)
	for i := range samples {
		samples[i] = i
	}
	gains := make([]float64, dims)

	for round := 0; round < params.estimators; round++ {
		for i := range rows {
			p := sigmoid(scores[i])
			gradients[i] = float64(labels[i]) - p
			hessians[i] = p * (1 - p)
		}

		builder := &treeBuilder{
			points:    rows,
			gradients: gradients,
			hessians:  hessians,
			weights:   weights,
			maxDepth:  params.maxDepth,
			gains:     gains,
		}
		tree := builder.build(samples)
		model.Trees = append(model.Trees, tree)

		for i := range rows {
			scores[i] += params.learningRate * tree.Predict(rows[i])
		}
	}

	model.Importances = normalizeGains(gains)
	return model
}

// PredictProba returns the positive-class (default) probability for one
// scaled feature vector
func (m *GradientBoostedClassifier) PredictProba(x []float64) float64 {
	score := m.BaseScore
	for i := range m.Trees {
		score += m.LearningRate * m.Trees[i].Predict(x)
	}
	return sigmoid(score)
}

// FeatureImportances returns normalized per-feature split gains, or nil if
// the model carries none
func (m *GradientBoostedClassifier) FeatureImportances() []float64 {
	return m.Importances
}

func normalizeGains(gains []float64) []float64 {
	total := 0.0
	for _, g := range gains {
		total += g
	}
	out := make([]float64, len(gains))
	if total == 0 {
		return out
	}
	for i, g := range gains {
		out[i] = g / total
	}
	return out
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clampProb(p float64) float64 {
	const eps = 1e-6
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}
