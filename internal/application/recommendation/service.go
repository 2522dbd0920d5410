// Package recommendation provides the application layer for the
// context-aware menu recommendation engine. It orchestrates the three
// scoring phases behind a per-(user, date, slot) advisory lock and performs
// the idempotent persist.
package recommendation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/moodplate/engine/internal/domain/mealcontext"
	domain "github.com/moodplate/engine/internal/domain/recommendation"
	"github.com/moodplate/engine/internal/engine/artifacts"
	"github.com/moodplate/engine/internal/engine/clustering"
	"github.com/moodplate/engine/internal/engine/scorer"
	"github.com/moodplate/engine/internal/engine/stability"
	"github.com/moodplate/engine/internal/infrastructure/monitoring"
	"github.com/moodplate/engine/internal/ports/inbound"
	"github.com/moodplate/engine/internal/ports/outbound"
	apperrors "github.com/moodplate/engine/pkg/errors"
)

// Pipeline steps, logged as the request advances. LOCK_TIMEOUT and
// LOG_AND_ABORT are the alternate terminal paths.
const (
	stepLockAcquire   = "LOCK_ACQUIRE"
	stepLoadArtifacts = "LOAD_ARTIFACTS"
	stepResolveInputs = "RESOLVE_INPUTS"
	stepPhase1        = "PHASE1"
	stepPhase2Attach  = "PHASE2_ATTACH"
	stepPhase3Rerank  = "PHASE3_RERANK"
	stepMapIDs        = "MAP_IDS"
	stepPersist       = "PERSIST"
)

// Options carries the service's tunables.
type Options struct {
	ArtifactsDir   string
	HybridAlpha    float64
	LockTTL        time.Duration
	LockWait       time.Duration
	RecentDays     int
	ExplorationMix stability.ExplorationMix
}

// DefaultOptions returns production defaults.
func DefaultOptions(artifactsDir string) Options {
	return Options{
		ArtifactsDir:   artifactsDir,
		HybridAlpha:    artifacts.DefaultHybridAlpha,
		LockTTL:        30 * time.Second,
		LockWait:       2 * time.Second,
		RecentDays:     7,
		ExplorationMix: stability.DefaultExplorationMix(),
	}
}

// Service implements the recommendation use case.
type Service struct {
	profiles outbound.ProfileRepository
	catalog  outbound.CatalogRepository
	recs     outbound.RecommendationRepository
	locker   outbound.Locker
	cache    *artifacts.Cache
	scorer   *scorer.Scorer
	reranker *stability.Reranker
	opts     Options
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewService creates the orchestration service. The artifact cache is owned
// here and shared by reference across all requests.
func NewService(
	profiles outbound.ProfileRepository,
	catalog outbound.CatalogRepository,
	recs outbound.RecommendationRepository,
	locker outbound.Locker,
	cache *artifacts.Cache,
	sc *scorer.Scorer,
	reranker *stability.Reranker,
	opts Options,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) inbound.RecommendationService {
	return &Service{
		profiles: profiles,
		catalog:  catalog,
		recs:     recs,
		locker:   locker,
		cache:    cache,
		scorer:   sc,
		reranker: reranker,
		opts:     opts,
		metrics:  metrics,
		logger:   logger.Named("recommendation-service"),
	}
}

// Recommend runs the full pipeline for one request. Validation and profile
// lookups fail before the lock; everything after acquisition releases the
// lock unconditionally on the way out.
func (s *Service) Recommend(ctx context.Context, cmd inbound.RecommendCommand) (*domain.Result, error) {
	mealCtx, err := validate(cmd)
	if err != nil {
		s.count("validation_error")
		return nil, err
	}

	profile, err := s.profiles.GetProfile(ctx, cmd.UserID)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeProfileNotFound) {
			s.count("profile_not_found")
			return nil, err
		}
		s.count("error")
		return nil, apperrors.NewDatabaseError("load profile", err)
	}

	logger := s.logger.With(
		zap.String("user_id", cmd.UserID),
		zap.String("date", cmd.Date),
		zap.String("slot", cmd.Slot),
		zap.String("context", mealCtx.String()),
	)

	lockKey := fmt.Sprintf("rec:%s:%s:%s", cmd.UserID, cmd.Date, cmd.Slot)
	lockStart := time.Now()
	release, ok, err := s.locker.Acquire(ctx, lockKey, s.opts.LockTTL, s.opts.LockWait)
	s.observe(stepLockAcquire, lockStart)
	if err != nil {
		s.count("error")
		return nil, apperrors.Wrap(err, "acquire recommendation lock")
	}
	if !ok {
		// Soft skip: another request holds the key. No retry here; the
		// caller re-queries later.
		if s.metrics != nil {
			s.metrics.LockTimeoutsTotal.Inc()
		}
		s.count("skipped")
		logger.Info("Lock held elsewhere, skipping", zap.String("lock_key", lockKey))
		return &domain.Result{
			UserID:  cmd.UserID,
			Date:    cmd.Date,
			Slot:    cmd.Slot,
			Context: mealCtx,
			Skipped: true,
		}, nil
	}
	defer release()

	result, err := s.runLocked(ctx, cmd, mealCtx, profile, logger)
	if err != nil {
		s.count("error")
		logger.Error("Pipeline aborted", zap.Error(err))
		return nil, err
	}
	s.count("ok")
	return result, nil
}

// runLocked executes LOAD_ARTIFACTS through PERSIST under the lock.
func (s *Service) runLocked(
	ctx context.Context,
	cmd inbound.RecommendCommand,
	mealCtx mealcontext.Context,
	profile *outbound.Profile,
	logger *zap.Logger,
) (*domain.Result, error) {
	start := time.Now()
	bundle, err := s.cache.Load(s.opts.ArtifactsDir)
	s.observe(stepLoadArtifacts, start)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	eaten, err := s.profiles.GetDayEatenSum(ctx, cmd.UserID, cmd.Date)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load day ledger", err)
	}
	recent, err := s.profiles.GetRecentMacroSum(ctx, cmd.UserID, s.opts.RecentDays)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load recent intake", err)
	}
	target, remaining := resolveMealTarget(profile.RecommendedCalories, eaten.Kcal, cmd.Slot)
	targetVec := resolveTargetVector(profile, recent, s.opts.HybridAlpha)
	purpose := domain.PurposeFromExternal(profile.Purpose)
	s.observe(stepResolveInputs, start)

	in := scorer.Input{
		Context:       mealCtx,
		Target:        targetVec,
		CalorieTarget: target,
		Purpose:       purpose,
		Exclude:       buildExclusions(cmd),
	}
	data := scorer.Dataset{
		StatsByContext: bundle.StatsByContext,
		Foods:          bundle.Foods,
		Blacklist:      bundle.Blacklist,
	}

	start = time.Now()
	pref, health := s.scorer.Pick(data, in)
	s.observe(stepPhase1, start)

	start = time.Now()
	attached := clustering.AttachClusterInfo(
		[]domain.Candidate{pref, health}, mealCtx, bundle.Assignments, bundle.Clusters)
	s.observe(stepPhase2Attach, start)

	start = time.Now()
	reranked := s.reranker.Rerank(mealCtx, attached, bundle.Stability)

	chosen := map[string]bool{}
	for _, cand := range reranked {
		if !cand.IsSentinel() {
			chosen[cand.FoodName] = true
		}
	}
	exploration := stability.PickExploration(s.scorer, bundle.Unobserved, in, s.opts.ExplorationMix, chosen)
	candidates := append(reranked, exploration)
	s.observe(stepPhase3Rerank, start)

	start = time.Now()
	if err := s.mapCatalogIDs(ctx, candidates); err != nil {
		return nil, err
	}
	s.observe(stepMapIDs, start)

	candidates = dedupeByType(candidates)

	start = time.Now()
	rows := make([]outbound.RecommendationRow, 0, len(candidates))
	for _, cand := range candidates {
		if cand.IsSentinel() {
			continue
		}
		rows = append(rows, outbound.RecommendationRow{
			Type:         string(cand.Type),
			FoodID:       cand.FoodID,
			FoodName:     cand.FoodName,
			Score:        cand.FinalScore,
			ClusterLabel: cand.ClusterLabel,
			Explanation:  cand.Explanation,
		})
	}
	if len(rows) > 0 {
		if err := s.recs.UpsertRecommendations(ctx, cmd.UserID, cmd.Date, cmd.Slot, rows); err != nil {
			return nil, apperrors.NewDatabaseError("upsert recommendations", err)
		}
	}
	s.observe(stepPersist, start)

	logger.Info("Recommendation persisted",
		zap.Int("rows", len(rows)),
		zap.Float64("per_meal_target", target),
		zap.String("fingerprint", bundle.Fingerprint),
	)

	return &domain.Result{
		UserID:            cmd.UserID,
		Date:              cmd.Date,
		Slot:              cmd.Slot,
		Context:           mealCtx,
		PerMealTarget:     target,
		RemainingCalories: remaining,
		Candidates:        candidates,
	}, nil
}

// mapCatalogIDs overwrites artifact-carried ids with the catalog store's
// authoritative mapping. Unknown names keep the artifact id.
func (s *Service) mapCatalogIDs(ctx context.Context, candidates []domain.Candidate) error {
	names := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		if !cand.IsSentinel() {
			names = append(names, cand.FoodName)
		}
	}
	if len(names) == 0 {
		return nil
	}
	ids, err := s.catalog.MapFoodNamesToIDs(ctx, names)
	if err != nil {
		return apperrors.NewDatabaseError("map food ids", err)
	}
	for i := range candidates {
		if candidates[i].IsSentinel() {
			continue
		}
		if id, ok := ids[candidates[i].FoodName]; ok {
			candidates[i].FoodID = id
		}
	}
	return nil
}

// dedupeByType keeps the first occurrence of each candidate type.
// Sentinels pass through untouched so partial results stay visible.
func dedupeByType(candidates []domain.Candidate) []domain.Candidate {
	seen := map[domain.CandidateType]bool{}
	out := make([]domain.Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if cand.IsSentinel() {
			out = append(out, cand)
			continue
		}
		if seen[cand.Type] {
			continue
		}
		seen[cand.Type] = true
		out = append(out, cand)
	}
	return out
}

func (s *Service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.RequestsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) observe(phase string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObservePhase(phase, start)
	}
}
