package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	entitymodels "trapper/internal/entity/models"
	entitystore "trapper/internal/entity/store"
	matchmodels "trapper/internal/match/models"
	"trapper/internal/merge/metrics"
	id "trapper/pkg/domain"
	dErrors "trapper/pkg/domain-errors"
)

const lockTTL = 10 * time.Minute

type Detector interface {
	Detect(ctx context.Context, kind id.Kind) ([]matchmodels.Pair, error)
}

// Locker is the subset of the redis client the batch driver uses for its
// advisory lock.
type Locker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type BatchEntityStore interface {
	Get(ctx context.Context, entityID id.EntityID) (*entitymodels.Entity, error)
}

// Picker names the canonical side of a candidate pair.
type Picker interface {
	Pick(ctx context.Context, a, b *entitymodels.Entity) (id.EntityID, error)
}

// BatchDriver auto-merges detected duplicates. A Redis advisory lock keeps
// overlapping scheduler runs from double-driving the same kind.
type BatchDriver struct {
	detector      Detector
	entities      BatchEntityStore
	merger        *Service
	picker        Picker
	locker        Locker
	logger        *slog.Logger
	minConfidence float64
	maxIterations int
}

func NewBatchDriver(detector Detector, entities BatchEntityStore, merger *Service, picker Picker, locker Locker, maxIterations int, logger *slog.Logger) *BatchDriver {
	if maxIterations <= 0 {
		maxIterations = 50
	}
	return &BatchDriver{
		detector:      detector,
		entities:      entities,
		merger:        merger,
		picker:        picker,
		locker:        locker,
		logger:        logger,
		minConfidence: 0.9,
		maxIterations: maxIterations,
	}
}

// Run detects and merges duplicates of one kind until no auto-actionable
// pairs remain or the iteration cap is reached. Returns the number of
// merges applied.
func (d *BatchDriver) Run(ctx context.Context, kind id.Kind, threshold float64) (int, error) {
	if threshold <= 0 {
		threshold = d.minConfidence
	}

	unlock, ok, err := d.acquireLock(ctx, kind)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, dErrors.New(dErrors.CodeConflict, "batch merge already running for kind "+string(kind))
	}
	defer unlock()

	merged := 0
	for iter := 0; iter < d.maxIterations; iter++ {
		pairs, err := d.detector.Detect(ctx, kind)
		if err != nil {
			return merged, err
		}

		appliedThisPass := 0
		for _, pair := range pairs {
			if pair.Confidence < threshold {
				metrics.BatchPairs.WithLabelValues("below_threshold").Inc()
				continue
			}
			applied, err := d.mergePair(ctx, pair)
			if err != nil {
				return merged, err
			}
			if applied {
				appliedThisPass++
				metrics.BatchPairs.WithLabelValues("merged").Inc()
			} else {
				metrics.BatchPairs.WithLabelValues("skipped").Inc()
			}
		}
		merged += appliedThisPass
		if appliedThisPass == 0 {
			return merged, nil
		}
	}
	d.logger.Warn("batch merge hit iteration cap", "kind", string(kind), "merged", merged)
	return merged, nil
}

// mergePair re-checks both sides immediately before acting: an earlier pair
// in the same run may already have consumed one side.
func (d *BatchDriver) mergePair(ctx context.Context, pair matchmodels.Pair) (bool, error) {
	a, err := d.entities.Get(ctx, pair.AID)
	if err != nil {
		if errors.Is(err, entitystore.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(dErrors.CodeInternal, "load pair side", err)
	}
	b, err := d.entities.Get(ctx, pair.BID)
	if err != nil {
		if errors.Is(err, entitystore.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(dErrors.CodeInternal, "load pair side", err)
	}
	if a.IsTombstone() || b.IsTombstone() {
		return false, nil
	}

	winnerID, err := d.picker.Pick(ctx, a, b)
	if err != nil {
		return false, err
	}
	loserID := pair.AID
	if loserID == winnerID {
		loserID = pair.BID
	}
	reason := fmt.Sprintf("%s_duplicate", pair.Basis)
	return d.merger.Merge(ctx, winnerID, loserID, reason, "batch")
}

// RunAll drives every kind concurrently and sums applied merges.
func (d *BatchDriver) RunAll(ctx context.Context, threshold float64) (int, error) {
	var total atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for _, kind := range []id.Kind{id.KindPlace, id.KindPerson, id.KindAnimal} {
		kind := kind
		g.Go(func() error {
			n, err := d.Run(ctx, kind, threshold)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeConflict) {
					d.logger.Info("batch merge skipped, lock held", "kind", string(kind))
					return nil
				}
				return err
			}
			total.Add(int64(n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(total.Load()), err
	}
	return int(total.Load()), nil
}

func (d *BatchDriver) acquireLock(ctx context.Context, kind id.Kind) (func(), bool, error) {
	if d.locker == nil {
		return func() {}, true, nil
	}
	key := "resolution:batch:" + string(kind)
	ok, err := d.locker.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), lockTTL).Result()
	if err != nil {
		return nil, false, dErrors.Wrap(dErrors.CodeInternal, "acquire batch lock", err)
	}
	if !ok {
		return nil, false, nil
	}
	unlock := func() {
		if err := d.locker.Del(context.WithoutCancel(ctx), key).Err(); err != nil {
			d.logger.Warn("batch lock release failed", "key", key, "error", err)
		}
	}
	return unlock, true, nil
}
