package segmentation

import (
	"math"
	"math/rand"
)

const maxIterations = 100

// kmeansResult holds one clustering run's output
type kmeansResult struct {
	assignments []int
	centroids   [][]float64
	inertia     float64
}

// runKMeans executes Lloyd's algorithm with k-means++ style seeding.
// The seed fixes every random draw, so identical input yields identical
// assignments on every run.
func runKMeans(points [][]float64, k int, seed int64) kmeansResult {
	rng := rand.New(rand.NewSource(seed))
	centroids := seedCentroids(points, k, rng)
	assignments := make([]int, len(points))

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, p := range points {
			best := nearestCentroid(p, centroids)
			if best != assignments[i] {
				assignments[i] = best
				changed = true
			}
		}

		recomputeCentroids(points, assignments, centroids)

		if !changed && iter > 0 {
			break
		}
	}

	inertia := 0.0
	for i, p := range points {
		inertia += squaredDistance(p, centroids[assignments[i]])
	}

	return kmeansResult{
		assignments: assignments,
		centroids:   centroids,
		inertia:     inertia,
	}
}

// seedCentroids picks initial centroids: first uniformly, the rest weighted
// by squared distance to the nearest chosen centroid (k-means++)
func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := rng.Intn(len(points))
	centroids = append(centroids, cloneVec(points[first]))

	for len(centroids) < k {
		distances := make([]float64, len(points))
		total := 0.0
		for i, p := range points {
			d := math.MaxFloat64
			for _, c := range centroids {
				if sq := squaredDistance(p, c); sq < d {
					d = sq
				}
			}
			distances[i] = d
			total += d
		}

		if total == 0 {
			// All remaining points coincide with an existing centroid
			centroids = append(centroids, cloneVec(points[rng.Intn(len(points))]))
			continue
		}

		target := rng.Float64() * total
		cumulative := 0.0
		chosen := len(points) - 1
		for i, d := range distances {
			cumulative += d
			if cumulative >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, cloneVec(points[chosen]))
	}

	return centroids
}

func nearestCentroid(p []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.MaxFloat64
	for idx, c := range centroids {
		if d := squaredDistance(p, c); d < bestDist {
			bestDist = d
			best = idx
		}
	}
	return best
}

func recomputeCentroids(points [][]float64, assignments []int, centroids [][]float64) {
	dims := len(centroids[0])
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for i := range sums {
		sums[i] = make([]float64, dims)
	}

	for i, p := range points {
		cluster := assignments[i]
		counts[cluster]++
		for d, v := range p {
			sums[cluster][d] += v
		}
	}

	for c := range centroids {
		if counts[c] == 0 {
			// Empty cluster: move its centroid to the point farthest from
			// its current assignment, so the cluster count stays at k
			centroids[c] = cloneVec(farthestPoint(points, assignments, centroids))
			continue
		}
		for d := range centroids[c] {
			centroids[c][d] = sums[c][d] / float64(counts[c])
		}
	}
}

func farthestPoint(points [][]float64, assignments []int, centroids [][]float64) []float64 {
	worst := points[0]
	worstDist := -1.0
	for i, p := range points {
		d := squaredDistance(p, centroids[assignments[i]])
		if d > worstDist {
			worstDist = d
			worst = p
		}
	}
	return worst
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

func cloneVec(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
