package artifacts

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/moodplate/engine/internal/domain/food"
	"github.com/moodplate/engine/internal/domain/mealcontext"
	apperrors "github.com/moodplate/engine/pkg/errors"
)

// Artifact file names, all rooted in one artifacts directory.
const (
	FileFoodStats    = "food_stats.csv"
	FileUserPrefs    = "user_preferences.csv"
	FileContextStats = "context_food_stats.csv"
	FileUnobserved   = "unobserved_pool.csv"
	FileBlacklist    = "blacklist.txt"
	FileClusterCfg   = "cluster_config.json"
	FileAssignments  = "cluster_assignments.csv"
	FileClusterMeta  = "cluster_metadata.json"
)

// AllFiles lists every artifact file in fingerprint order.
var AllFiles = []string{
	FileFoodStats,
	FileUserPrefs,
	FileContextStats,
	FileUnobserved,
	FileBlacklist,
	FileClusterCfg,
	FileAssignments,
	FileClusterMeta,
}

// ClusterConfig is the persisted clustering configuration and label map.
type ClusterConfig struct {
	K          int               `json:"k"`
	Seed       int64             `json:"seed"`
	LabelNames map[string]string `json:"label_names"`
}

// readTable reads a delimited artifact file into records, trying an ordered
// list of strategies: strict (header must match wantHeader exactly) first,
// then lenient (headerless, positional columns). All failures are
// aggregated into one composite error.
func readTable(path string, wantHeader []string) ([][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewArtifactReadError(path, err)
	}

	strategies := []struct {
		name string
		read func() ([][]string, error)
	}{
		{"strict-header", func() ([][]string, error) { return parseCSV(raw, wantHeader, true) }},
		{"headerless", func() ([][]string, error) { return parseCSV(raw, wantHeader, false) }},
	}

	var failures []error
	for _, s := range strategies {
		records, err := s.read()
		if err == nil {
			return records, nil
		}
		failures = append(failures, fmt.Errorf("%s: %w", s.name, err))
	}
	return nil, apperrors.NewArtifactReadError(path, apperrors.NewCompositeError("read table", failures))
}

func parseCSV(raw []byte, wantHeader []string, expectHeader bool) ([][]string, error) {
	reader := csv.NewReader(strings.NewReader(string(raw)))
	reader.FieldsPerRecord = len(wantHeader)
	reader.TrimLeadingSpace = true

	if expectHeader {
		header, err := reader.Read()
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		for i, want := range wantHeader {
			if strings.TrimSpace(strings.ToLower(header[i])) != want {
				return nil, fmt.Errorf("column %d: got %q, want %q", i, header[i], want)
			}
		}
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("field %d %q: not numeric", i, f)
		}
		out[i] = v
	}
	return out, nil
}

var foodStatsHeader = []string{
	"name", "catalog_id", "mean_calories", "mean_carb_g", "mean_protein_g",
	"mean_fat_g", "ratio_carb", "ratio_protein", "ratio_fat", "emotion_score", "log_count",
}

func readFoodStats(path string) (map[string]food.Item, error) {
	records, err := readTable(path, foodStatsHeader)
	if err != nil {
		return nil, err
	}
	out := make(map[string]food.Item, len(records))
	for _, rec := range records {
		nums, err := parseFloats(rec[1:])
		if err != nil {
			return nil, apperrors.NewArtifactReadError(path, err)
		}
		out[rec[0]] = food.Item{
			Name:         rec[0],
			CatalogID:    int64(nums[0]),
			MeanCalories: nums[1],
			MeanCarbG:    nums[2],
			MeanProteinG: nums[3],
			MeanFatG:     nums[4],
			Ratio:        food.MacroRatio{Carb: nums[5], Protein: nums[6], Fat: nums[7]},
			EmotionScore: nums[8],
			LogCount:     int(nums[9]),
		}
	}
	return out, nil
}

var userPrefsHeader = []string{
	"user_id", "declared_carb", "declared_protein", "declared_fat",
	"observed_carb", "observed_protein", "observed_fat",
	"hybrid_carb", "hybrid_protein", "hybrid_fat",
}

func readUserPrefs(path string) (map[string]food.UserPreference, error) {
	records, err := readTable(path, userPrefsHeader)
	if err != nil {
		return nil, err
	}
	out := make(map[string]food.UserPreference, len(records))
	for _, rec := range records {
		nums, err := parseFloats(rec[1:])
		if err != nil {
			return nil, apperrors.NewArtifactReadError(path, err)
		}
		out[rec[0]] = food.UserPreference{
			UserID:        rec[0],
			DeclaredRatio: food.MacroRatio{Carb: nums[0], Protein: nums[1], Fat: nums[2]},
			ObservedRatio: food.MacroRatio{Carb: nums[3], Protein: nums[4], Fat: nums[5]},
			HybridRatio:   food.MacroRatio{Carb: nums[6], Protein: nums[7], Fat: nums[8]},
		}
	}
	return out, nil
}

var contextStatsHeader = []string{"mood", "energy", "food", "count", "mean_outcome"}

func readContextStats(path string) ([]food.ContextStat, error) {
	records, err := readTable(path, contextStatsHeader)
	if err != nil {
		return nil, err
	}
	out := make([]food.ContextStat, 0, len(records))
	for _, rec := range records {
		ctx, err := mealcontext.Parse(rec[0], rec[1])
		if err != nil {
			return nil, apperrors.NewArtifactReadError(path, err)
		}
		nums, err := parseFloats(rec[3:])
		if err != nil {
			return nil, apperrors.NewArtifactReadError(path, err)
		}
		out = append(out, food.ContextStat{
			Context:     ctx,
			FoodName:    rec[2],
			Count:       int(nums[0]),
			MeanOutcome: nums[1],
		})
	}
	return out, nil
}

var unobservedHeader = []string{"name", "catalog_id"}

func readUnobserved(path string) ([]food.Item, error) {
	records, err := readTable(path, unobservedHeader)
	if err != nil {
		return nil, err
	}
	out := make([]food.Item, 0, len(records))
	for _, rec := range records {
		id, err := strconv.ParseInt(strings.TrimSpace(rec[1]), 10, 64)
		if err != nil {
			return nil, apperrors.NewArtifactReadError(path, err)
		}
		out = append(out, food.Item{Name: rec[0], CatalogID: id, Ratio: food.EqualRatio})
	}
	return out, nil
}

func readBlacklist(path string) (map[string]bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewArtifactReadError(path, err)
	}
	out := make(map[string]bool)
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out[line] = true
		}
	}
	return out, nil
}

var assignmentsHeader = []string{"mood", "energy", "food", "cluster"}

func readAssignments(path string) ([]food.Assignment, error) {
	records, err := readTable(path, assignmentsHeader)
	if err != nil {
		return nil, err
	}
	out := make([]food.Assignment, 0, len(records))
	for _, rec := range records {
		ctx, err := mealcontext.Parse(rec[0], rec[1])
		if err != nil {
			return nil, apperrors.NewArtifactReadError(path, err)
		}
		idx, err := strconv.Atoi(strings.TrimSpace(rec[3]))
		if err != nil {
			return nil, apperrors.NewArtifactReadError(path, err)
		}
		out = append(out, food.Assignment{Context: ctx, FoodName: rec[2], Cluster: idx})
	}
	return out, nil
}

// clusterRecord is the JSON wire form of a cluster; context labels are kept
// as strings and normalized on read.
type clusterRecord struct {
	Mood           string          `json:"mood"`
	Energy         string          `json:"energy"`
	Index          int             `json:"index"`
	CentroidRatio  food.MacroRatio `json:"centroid_ratio"`
	CentroidNorm   float64         `json:"centroid_norm_cal"`
	CentroidScore  float64         `json:"centroid_emotion"`
	HealthDistance float64         `json:"health_distance"`
	LabelKey       string          `json:"label_key"`
	DisplayLabel   string          `json:"display_label"`
	Size           int             `json:"size"`
}

func readClusterMeta(path string) (map[mealcontext.Context][]food.Cluster, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewArtifactReadError(path, err)
	}
	var records []clusterRecord
	if err := gojson.Unmarshal(raw, &records); err != nil {
		return nil, apperrors.NewArtifactReadError(path, err)
	}
	out := make(map[mealcontext.Context][]food.Cluster)
	for _, rec := range records {
		ctx, err := mealcontext.Parse(rec.Mood, rec.Energy)
		if err != nil {
			return nil, apperrors.NewArtifactReadError(path, err)
		}
		out[ctx] = append(out[ctx], food.Cluster{
			Context:        ctx,
			Index:          rec.Index,
			CentroidRatio:  rec.CentroidRatio,
			CentroidNorm:   rec.CentroidNorm,
			CentroidScore:  rec.CentroidScore,
			HealthDistance: rec.HealthDistance,
			LabelKey:       rec.LabelKey,
			DisplayLabel:   rec.DisplayLabel,
			Size:           rec.Size,
		})
	}
	return out, nil
}

func readClusterConfig(path string) (*ClusterConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewArtifactReadError(path, err)
	}
	var cfg ClusterConfig
	if err := gojson.Unmarshal(raw, &cfg); err != nil {
		return nil, apperrors.NewArtifactReadError(path, err)
	}
	return &cfg, nil
}

// WriteTables persists the builder's derived tables to dir.
func WriteTables(dir string, tables *Tables) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	foodRows := make([][]string, 0, len(tables.Foods))
	for _, f := range tables.Foods {
		foodRows = append(foodRows, []string{
			f.Name,
			strconv.FormatInt(f.CatalogID, 10),
			formatFloat(f.MeanCalories),
			formatFloat(f.MeanCarbG),
			formatFloat(f.MeanProteinG),
			formatFloat(f.MeanFatG),
			formatFloat(f.Ratio.Carb),
			formatFloat(f.Ratio.Protein),
			formatFloat(f.Ratio.Fat),
			formatFloat(f.EmotionScore),
			strconv.Itoa(f.LogCount),
		})
	}
	if err := writeCSV(filepath.Join(dir, FileFoodStats), foodStatsHeader, foodRows); err != nil {
		return err
	}

	prefRows := make([][]string, 0, len(tables.Prefs))
	for _, p := range tables.Prefs {
		prefRows = append(prefRows, []string{
			p.UserID,
			formatFloat(p.DeclaredRatio.Carb), formatFloat(p.DeclaredRatio.Protein), formatFloat(p.DeclaredRatio.Fat),
			formatFloat(p.ObservedRatio.Carb), formatFloat(p.ObservedRatio.Protein), formatFloat(p.ObservedRatio.Fat),
			formatFloat(p.HybridRatio.Carb), formatFloat(p.HybridRatio.Protein), formatFloat(p.HybridRatio.Fat),
		})
	}
	if err := writeCSV(filepath.Join(dir, FileUserPrefs), userPrefsHeader, prefRows); err != nil {
		return err
	}

	ctxRows := make([][]string, 0, len(tables.ContextStats))
	for _, s := range tables.ContextStats {
		ctxRows = append(ctxRows, []string{
			string(s.Context.Mood), string(s.Context.Energy), s.FoodName,
			strconv.Itoa(s.Count), formatFloat(s.MeanOutcome),
		})
	}
	if err := writeCSV(filepath.Join(dir, FileContextStats), contextStatsHeader, ctxRows); err != nil {
		return err
	}

	unobservedRows := make([][]string, 0, len(tables.Unobserved))
	for _, f := range tables.Unobserved {
		unobservedRows = append(unobservedRows, []string{f.Name, strconv.FormatInt(f.CatalogID, 10)})
	}
	if err := writeCSV(filepath.Join(dir, FileUnobserved), unobservedHeader, unobservedRows); err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, FileBlacklist), []byte(strings.Join(tables.Blacklist, "\n")+"\n"), 0o644)
}

// WriteClusters persists the clustering step's outputs to dir.
func WriteClusters(dir string, cfg *ClusterConfig, clusters map[mealcontext.Context][]food.Cluster, assignments []food.Assignment) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	assignRows := make([][]string, 0, len(assignments))
	for _, a := range assignments {
		assignRows = append(assignRows, []string{
			string(a.Context.Mood), string(a.Context.Energy), a.FoodName, strconv.Itoa(a.Cluster),
		})
	}
	if err := writeCSV(filepath.Join(dir, FileAssignments), assignmentsHeader, assignRows); err != nil {
		return err
	}

	var records []clusterRecord
	for _, ctx := range mealcontext.All() {
		for _, c := range clusters[ctx] {
			records = append(records, clusterRecord{
				Mood:           string(c.Context.Mood),
				Energy:         string(c.Context.Energy),
				Index:          c.Index,
				CentroidRatio:  c.CentroidRatio,
				CentroidNorm:   c.CentroidNorm,
				CentroidScore:  c.CentroidScore,
				HealthDistance: c.HealthDistance,
				LabelKey:       c.LabelKey,
				DisplayLabel:   c.DisplayLabel,
				Size:           c.Size,
			})
		}
	}
	metaRaw, err := gojson.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, FileClusterMeta), metaRaw, 0o644); err != nil {
		return err
	}

	cfgRaw, err := gojson.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, FileClusterCfg), cfgRaw, 0o644)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Raw-input readers for the offline builder CLI. These enforce the data
// contract: a missing required column is an error, not a silent default.

var catalogHeader = []string{"id", "name"}

// ReadCatalogCSV reads the raw food catalog.
func ReadCatalogCSV(path string) ([]CatalogRow, error) {
	records, err := readTable(path, catalogHeader)
	if err != nil {
		return nil, err
	}
	out := make([]CatalogRow, 0, len(records))
	for _, rec := range records {
		id, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
		if err != nil {
			return nil, apperrors.NewArtifactReadError(path, err)
		}
		out = append(out, CatalogRow{ID: id, Name: rec[1]})
	}
	return out, nil
}

var profilesHeader = []string{"user_id", "declared_carb", "declared_protein", "declared_fat"}

// ReadProfilesCSV reads the raw user-profile rows.
func ReadProfilesCSV(path string) ([]ProfileRow, error) {
	records, err := readTable(path, profilesHeader)
	if err != nil {
		return nil, err
	}
	out := make([]ProfileRow, 0, len(records))
	for _, rec := range records {
		nums, err := parseFloats(rec[1:])
		if err != nil {
			return nil, apperrors.NewArtifactReadError(path, err)
		}
		out = append(out, ProfileRow{
			UserID:          rec[0],
			DeclaredCarb:    nums[0],
			DeclaredProtein: nums[1],
			DeclaredFat:     nums[2],
		})
	}
	return out, nil
}

var mealLogsHeader = []string{
	"user_id", "mood", "energy", "food", "calories", "carb_g", "protein_g", "fat_g", "stable",
}

// ReadMealLogsCSV reads the raw historical meal-log rows.
func ReadMealLogsCSV(path string) ([]MealLogRow, error) {
	records, err := readTable(path, mealLogsHeader)
	if err != nil {
		return nil, err
	}
	out := make([]MealLogRow, 0, len(records))
	for _, rec := range records {
		nums, err := parseFloats(rec[4:8])
		if err != nil {
			return nil, apperrors.NewArtifactReadError(path, err)
		}
		stable := strings.TrimSpace(rec[8]) == "1" || strings.EqualFold(strings.TrimSpace(rec[8]), "true")
		out = append(out, MealLogRow{
			UserID:   rec[0],
			Mood:     rec[1],
			Energy:   rec[2],
			FoodName: rec[3],
			Calories: nums[0],
			CarbG:    nums[1],
			ProteinG: nums[2],
			FatG:     nums[3],
			Stable:   stable,
		})
	}
	return out, nil
}
