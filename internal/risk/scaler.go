package risk

import "math"

// StandardScaler centers and scales feature columns to zero mean and unit
// variance. Training fits it on the training split only; scoring applies
// Transform and never refits.
type StandardScaler struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

// Fit computes per-column means and standard deviations
func (s *StandardScaler) Fit(rows [][]float64) {
	if len(rows) == 0 {
		return
	}

	dims := len(rows[0])
	s.Means = make([]float64, dims)
	s.Stds = make([]float64, dims)

	for _, row := range rows {
		for d, v := range row {
			s.Means[d] += v
		}
	}
	for d := range s.Means {
		s.Means[d] /= float64(len(rows))
	}

	for _, row := range rows {
		for d, v := range row {
			diff := v - s.Means[d]
			s.Stds[d] += diff * diff
		}
	}
	for d := range s.Stds {
		s.Stds[d] = math.Sqrt(s.Stds[d] / float64(len(rows)))
		if s.Stds[d] == 0 {
			s.Stds[d] = 1
		}
	}
}

// Transform scales a batch of rows
func (s *StandardScaler) Transform(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = s.TransformRow(row)
	}
	return out
}

// TransformRow scales a single row
func (s *StandardScaler) TransformRow(row []float64) []float64 {
	out := make([]float64, len(row))
	for d, v := range row {
		out[d] = (v - s.Means[d]) / s.Stds[d]
	}
	return out
}
