package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/moodplate/engine/internal/domain/food"
	"github.com/moodplate/engine/internal/domain/mealcontext"
	"github.com/moodplate/engine/internal/engine/stability"
)

// Bundle is one loaded artifact generation. Read-only after construction;
// concurrent requests under the same fingerprint share a single Bundle.
type Bundle struct {
	Fingerprint    string
	Foods          map[string]food.Item
	Prefs          map[string]food.UserPreference
	ContextStats   []food.ContextStat
	StatsByContext map[mealcontext.Context][]food.ContextStat
	Unobserved     []food.Item
	Blacklist      map[string]bool
	Clusters       map[mealcontext.Context][]food.Cluster
	Assignments    map[food.ContextFood]int
	ClusterConfig  *ClusterConfig
	Stability      map[food.ContextCluster]food.StabilityEstimate
}

// absentSentinel stands in for the mtime of a missing artifact file so the
// fingerprint still changes when the file later appears.
const absentSentinel = "absent"

// Fingerprint derives the cache key from the last-modified timestamps of
// every artifact file under dir.
func Fingerprint(dir string) string {
	parts := make([]string, 0, len(AllFiles))
	for _, name := range AllFiles {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			parts = append(parts, absentSentinel)
			continue
		}
		parts = append(parts, fmt.Sprintf("%d", info.ModTime().UnixNano()))
	}
	return strings.Join(parts, "|")
}

// DefaultCacheCapacity bounds the number of retained fingerprints.
const DefaultCacheCapacity = 4

// Cache serves artifact bundles keyed by fingerprint with LRU eviction.
// Owned by the orchestration service and passed by reference; never global.
//
// Duplicate concurrent loads of one fingerprint are tolerated rather than
// prevented: the last writer of a slot wins, both callers get a valid
// bundle.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	alpha    float64
	entries  map[string]*cacheEntry
	head     *cacheEntry // most recently used
	tail     *cacheEntry
	logger   *zap.Logger

	hits   int64
	misses int64
}

type cacheEntry struct {
	fingerprint string
	bundle      *Bundle
	prev, next  *cacheEntry
}

// NewCache creates an artifact cache. alpha is the Laplace smoothing
// constant applied when deriving stability estimates at load time.
func NewCache(capacity int, alpha float64, logger *zap.Logger) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		capacity: capacity,
		alpha:    alpha,
		entries:  make(map[string]*cacheEntry),
		logger:   logger.Named("artifact-cache"),
	}
}

// Load returns the bundle for the current state of dir, reading from disk
// only when the fingerprint is unseen.
func (c *Cache) Load(dir string) (*Bundle, error) {
	fp := Fingerprint(dir)

	c.mu.Lock()
	if entry, ok := c.entries[fp]; ok {
		c.moveToFront(entry)
		c.hits++
		c.mu.Unlock()
		return entry.bundle, nil
	}
	c.misses++
	c.mu.Unlock()

	bundle, err := loadBundle(dir, c.alpha)
	if err != nil {
		return nil, err
	}
	bundle.Fingerprint = fp

	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[fp]; ok {
		// A concurrent load beat us; replace the payload, keep the slot.
		entry.bundle = bundle
		c.moveToFront(entry)
		return bundle, nil
	}
	entry := &cacheEntry{fingerprint: fp, bundle: bundle}
	c.entries[fp] = entry
	c.pushFront(entry)
	if len(c.entries) > c.capacity {
		c.evictTail()
	}
	c.logger.Info("Artifact bundle loaded",
		zap.String("dir", dir),
		zap.Int("foods", len(bundle.Foods)),
		zap.Int("context_stats", len(bundle.ContextStats)),
		zap.Int("cached_fingerprints", len(c.entries)),
	)
	return bundle, nil
}

// Stats returns cumulative hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *Cache) pushFront(entry *cacheEntry) {
	entry.prev = nil
	entry.next = c.head
	if c.head != nil {
		c.head.prev = entry
	}
	c.head = entry
	if c.tail == nil {
		c.tail = entry
	}
}

func (c *Cache) moveToFront(entry *cacheEntry) {
	if entry == c.head {
		return
	}
	if entry.prev != nil {
		entry.prev.next = entry.next
	}
	if entry.next != nil {
		entry.next.prev = entry.prev
	}
	if entry == c.tail {
		c.tail = entry.prev
	}
	c.pushFront(entry)
}

func (c *Cache) evictTail() {
	victim := c.tail
	if victim == nil {
		return
	}
	if victim.prev != nil {
		victim.prev.next = nil
	}
	c.tail = victim.prev
	if c.head == victim {
		c.head = nil
	}
	delete(c.entries, victim.fingerprint)
}

// loadBundle reads every artifact file and derives the stability table.
// Cluster files are optional: a generation built before clustering ran
// yields a bundle with no clusters, which downstream treats as "unknown"
// (neutral stability).
func loadBundle(dir string, alpha float64) (*Bundle, error) {
	foods, err := readFoodStats(filepath.Join(dir, FileFoodStats))
	if err != nil {
		return nil, err
	}
	prefs, err := readUserPrefs(filepath.Join(dir, FileUserPrefs))
	if err != nil {
		return nil, err
	}
	ctxStats, err := readContextStats(filepath.Join(dir, FileContextStats))
	if err != nil {
		return nil, err
	}
	unobserved, err := readUnobserved(filepath.Join(dir, FileUnobserved))
	if err != nil {
		return nil, err
	}
	blacklist, err := readBlacklist(filepath.Join(dir, FileBlacklist))
	if err != nil {
		return nil, err
	}

	byContext := make(map[mealcontext.Context][]food.ContextStat)
	for _, stat := range ctxStats {
		byContext[stat.Context] = append(byContext[stat.Context], stat)
	}

	bundle := &Bundle{
		Foods:          foods,
		Prefs:          prefs,
		ContextStats:   ctxStats,
		StatsByContext: byContext,
		Unobserved:     unobserved,
		Blacklist:      blacklist,
		Clusters:       map[mealcontext.Context][]food.Cluster{},
		Assignments:    map[food.ContextFood]int{},
		Stability:      map[food.ContextCluster]food.StabilityEstimate{},
	}

	if _, err := os.Stat(filepath.Join(dir, FileClusterMeta)); err == nil {
		clusters, err := readClusterMeta(filepath.Join(dir, FileClusterMeta))
		if err != nil {
			return nil, err
		}
		assignments, err := readAssignments(filepath.Join(dir, FileAssignments))
		if err != nil {
			return nil, err
		}
		cfg, err := readClusterConfig(filepath.Join(dir, FileClusterCfg))
		if err != nil {
			return nil, err
		}
		bundle.Clusters = clusters
		bundle.ClusterConfig = cfg
		for _, a := range assignments {
			bundle.Assignments[food.ContextFood{Context: a.Context, FoodName: a.FoodName}] = a.Cluster
		}
		bundle.Stability = stability.BuildEstimates(ctxStats, bundle.Assignments, alpha)
	}

	return bundle, nil
}
