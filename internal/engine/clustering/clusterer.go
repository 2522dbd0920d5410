// Package clustering groups each context cohort's (food, nutrition,
// emotion) rows into K clusters and labels them with a readable heuristic
// tag. Clustering runs offline; at request time only the precomputed
// assignment join is consulted.
package clustering

import (
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/moodplate/engine/internal/domain/food"
	"github.com/moodplate/engine/internal/domain/mealcontext"
	"github.com/moodplate/engine/internal/domain/recommendation"
)

// Label keys assigned by centroid heuristics, in priority order.
const (
	LabelHighFatComfort = "high_fat_comfort"
	LabelBalanced       = "balanced"
	LabelHighProtein    = "high_protein"
	LabelHighCarbLowFat = "high_carb_low_fat"
	LabelMixed          = "mixed"
)

// DefaultLabelNames maps label keys to display names.
var DefaultLabelNames = map[string]string{
	LabelHighFatComfort: "High-Fat Comfort",
	LabelBalanced:       "Balanced",
	LabelHighProtein:    "High-Protein",
	LabelHighCarbLowFat: "High-Carb Low-Fat",
	LabelMixed:          "Mixed",
}

// Config carries the clustering parameters. Seed is fixed so artifact
// generations are reproducible.
type Config struct {
	K             int
	Seed          int64
	MaxIterations int
	LabelNames    map[string]string
}

// DefaultConfig returns the production clustering configuration.
func DefaultConfig() Config {
	return Config{K: 5, Seed: 42, MaxIterations: 50, LabelNames: DefaultLabelNames}
}

// Clusterer runs the offline per-cohort clustering step.
type Clusterer struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a clusterer.
func New(cfg Config, logger *zap.Logger) *Clusterer {
	if cfg.K <= 0 {
		cfg.K = 5
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 50
	}
	if cfg.LabelNames == nil {
		cfg.LabelNames = DefaultLabelNames
	}
	return &Clusterer{cfg: cfg, logger: logger.Named("clustering")}
}

// Cluster partitions every context cohort with at least K rows. Smaller
// cohorts are skipped; callers treat their missing cluster info as
// "unknown" and fall back to neutral stability.
func (c *Clusterer) Cluster(
	stats []food.ContextStat,
	foods map[string]food.Item,
) (map[mealcontext.Context][]food.Cluster, []food.Assignment) {
	byContext := make(map[mealcontext.Context][]food.ContextStat)
	for _, stat := range stats {
		if _, ok := foods[stat.FoodName]; !ok {
			continue
		}
		byContext[stat.Context] = append(byContext[stat.Context], stat)
	}

	clusters := make(map[mealcontext.Context][]food.Cluster)
	var assignments []food.Assignment

	for _, ctx := range mealcontext.All() {
		rows := byContext[ctx]
		if len(rows) < c.cfg.K {
			if len(rows) > 0 {
				c.logger.Debug("Cohort below K, skipping",
					zap.String("context", ctx.String()),
					zap.Int("rows", len(rows)),
				)
			}
			continue
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].FoodName < rows[j].FoodName })

		cohortClusters, cohortAssignments := c.clusterCohort(ctx, rows, foods)
		clusters[ctx] = cohortClusters
		assignments = append(assignments, cohortAssignments...)
	}
	return clusters, assignments
}

// clusterCohort standardizes the feature matrix [ratio(3), normCal,
// emotion], runs k-means, and derives labeled centroids in original units.
func (c *Clusterer) clusterCohort(
	ctx mealcontext.Context,
	rows []food.ContextStat,
	foods map[string]food.Item,
) ([]food.Cluster, []food.Assignment) {
	maxCal := 0.0
	for _, row := range rows {
		if cal := foods[row.FoodName].MeanCalories; cal > maxCal {
			maxCal = cal
		}
	}
	if maxCal <= 0 {
		maxCal = 1
	}

	raw := make([][]float64, len(rows))
	for i, row := range rows {
		item := foods[row.FoodName]
		raw[i] = []float64{
			item.Ratio.Carb,
			item.Ratio.Protein,
			item.Ratio.Fat,
			item.MeanCalories / maxCal,
			item.EmotionScore,
		}
	}

	standardized := standardize(raw)
	rng := rand.New(rand.NewSource(c.cfg.Seed))
	memberships := kmeans(standardized, c.cfg.K, c.cfg.MaxIterations, rng)

	sums := make([][]float64, c.cfg.K)
	counts := make([]int, c.cfg.K)
	for i := range sums {
		sums[i] = make([]float64, 5)
	}
	for i, m := range memberships {
		counts[m]++
		for d, v := range raw[i] {
			sums[m][d] += v
		}
	}

	// Clusters left empty by a final-iteration re-seed are dropped; an
	// empty cohort must never carry a label downstream. Surviving clusters
	// keep their original index so the assignment join holds.
	clusters := make([]food.Cluster, 0, c.cfg.K)
	for idx := 0; idx < c.cfg.K; idx++ {
		if counts[idx] == 0 {
			continue
		}
		n := float64(counts[idx])
		cluster := food.Cluster{Context: ctx, Index: idx, Size: counts[idx]}
		cluster.CentroidRatio = food.MacroRatio{
			Carb:    sums[idx][0] / n,
			Protein: sums[idx][1] / n,
			Fat:     sums[idx][2] / n,
		}
		cluster.CentroidNorm = sums[idx][3] / n
		cluster.CentroidScore = sums[idx][4] / n
		cluster.HealthDistance = cluster.CentroidRatio.L1Distance(food.HealthyRatio)
		cluster.LabelKey = labelKey(cluster)
		cluster.DisplayLabel = c.displayLabel(cluster)
		clusters = append(clusters, cluster)
	}

	assignments := make([]food.Assignment, len(rows))
	for i, row := range rows {
		assignments[i] = food.Assignment{Context: ctx, FoodName: row.FoodName, Cluster: memberships[i]}
	}
	return clusters, assignments
}

// labelKey classifies a centroid, first match wins.
func labelKey(cluster food.Cluster) string {
	ratio := cluster.CentroidRatio
	switch {
	case ratio.Fat >= 0.60:
		return LabelHighFatComfort
	case cluster.HealthDistance < 0.15:
		return LabelBalanced
	case ratio.Protein >= 0.35 && ratio.Carb >= 0.30:
		return LabelHighProtein
	case ratio.Carb >= 0.50 && ratio.Fat <= 0.25:
		return LabelHighCarbLowFat
	default:
		return LabelMixed
	}
}

// displayLabel prefixes the calorie tier: Lean below 0.55 of the cohort's
// normalized calorie range, Rich at 0.90 and above, Mid between.
func (c *Clusterer) displayLabel(cluster food.Cluster) string {
	tier := "Lean"
	switch {
	case cluster.CentroidNorm >= 0.90:
		tier = "Rich"
	case cluster.CentroidNorm >= 0.55:
		tier = "Mid"
	}
	name := c.cfg.LabelNames[cluster.LabelKey]
	if name == "" {
		name = cluster.LabelKey
	}
	return tier + " " + name
}

// standardize z-scores each feature column; constant columns become zero.
func standardize(points [][]float64) [][]float64 {
	if len(points) == 0 {
		return nil
	}
	dims := len(points[0])
	mean := make([]float64, dims)
	for _, p := range points {
		for d, v := range p {
			mean[d] += v
		}
	}
	for d := range mean {
		mean[d] /= float64(len(points))
	}

	std := make([]float64, dims)
	for _, p := range points {
		for d, v := range p {
			diff := v - mean[d]
			std[d] += diff * diff
		}
	}
	for d := range std {
		std[d] = math.Sqrt(std[d] / float64(len(points)))
	}

	out := make([][]float64, len(points))
	for i, p := range points {
		out[i] = make([]float64, dims)
		for d, v := range p {
			if std[d] > 0 {
				out[i][d] = (v - mean[d]) / std[d]
			}
		}
	}
	return out
}

// AttachClusterInfo joins each candidate to its cluster by (context, food).
// Candidates with no matching assignment keep a nil index and "N/A" label.
func AttachClusterInfo(
	candidates []recommendation.Candidate,
	ctx mealcontext.Context,
	assignments map[food.ContextFood]int,
	clusters map[mealcontext.Context][]food.Cluster,
) []recommendation.Candidate {
	out := make([]recommendation.Candidate, len(candidates))
	for i, cand := range candidates {
		out[i] = cand
		if cand.IsSentinel() {
			continue
		}
		idx, ok := assignments[food.ContextFood{Context: ctx, FoodName: cand.FoodName}]
		if !ok {
			out[i].ClusterIndex = nil
			out[i].ClusterLabel = "N/A"
			continue
		}
		clusterIdx := idx
		out[i].ClusterIndex = &clusterIdx
		out[i].ClusterLabel = "N/A"
		for _, cluster := range clusters[ctx] {
			if cluster.Index == idx {
				out[i].ClusterLabel = cluster.DisplayLabel
				break
			}
		}
	}
	return out
}
