package clustering

import (
	"math"
	"math/rand"
)

// kmeans partitions points into k clusters with k-means++ seeding and a
// bounded number of Lloyd iterations. The rng is seeded by the caller so
// repeated runs over the same cohort are reproducible.
func kmeans(points [][]float64, k, maxIterations int, rng *rand.Rand) []int {
	centroids := seedCentroids(points, k, rng)
	assignments := make([]int, len(points))

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, p := range points {
			best := 0
			bestDist := math.Inf(1)
			for c, centroid := range centroids {
				if d := sqDist(p, centroid); d < bestDist {
					bestDist = d
					best = c
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		dims := len(points[0])
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, p := range points {
			c := assignments[i]
			counts[c]++
			for d, v := range p {
				sums[c][d] += v
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				// Empty cluster: re-seed on the point farthest from its centroid.
				centroids[c] = points[farthestPoint(points, centroids, assignments)]
				continue
			}
			for d := range centroids[c] {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}
	return assignments
}

// seedCentroids picks initial centroids k-means++ style: first uniformly,
// the rest weighted by squared distance to the nearest chosen centroid.
func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clonePoint(points[rng.Intn(len(points))]))

	for len(centroids) < k {
		weights := make([]float64, len(points))
		var total float64
		for i, p := range points {
			nearest := math.Inf(1)
			for _, c := range centroids {
				if d := sqDist(p, c); d < nearest {
					nearest = d
				}
			}
			weights[i] = nearest
			total += nearest
		}
		if total == 0 {
			centroids = append(centroids, clonePoint(points[rng.Intn(len(points))]))
			continue
		}
		target := rng.Float64() * total
		var cum float64
		chosen := len(points) - 1
		for i, w := range weights {
			cum += w
			if cum >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, clonePoint(points[chosen]))
	}
	return centroids
}

func farthestPoint(points, centroids [][]float64, assignments []int) int {
	best := 0
	bestDist := -1.0
	for i, p := range points {
		if d := sqDist(p, centroids[assignments[i]]); d > bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func clonePoint(p []float64) []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}
