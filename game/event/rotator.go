package event

import (
	"context"
	"fmt"
	"time"

	"github.com/kasuganosora/scholarquest/cache"
	"github.com/kasuganosora/scholarquest/config"
	"github.com/kasuganosora/scholarquest/game/clock"
	"github.com/kasuganosora/scholarquest/model"
	"github.com/kasuganosora/scholarquest/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	rotateLock   = "events:rotate:lock"
	finalizeLock = "events:finalize:lock"
	lockTTL      = 30 * time.Second
)

// Rotator opens one event per ISO week and finalizes events that have
// ended. Both jobs take a cache lock so only one instance runs them.
type Rotator struct {
	db     *gorm.DB
	events *Service
	cache  cache.Cache
	clk    clock.Clock
	cfg    config.EventConfig
	logger *zap.Logger
}

// NewRotator creates a Rotator.
func NewRotator(db *gorm.DB, events *Service, c cache.Cache, cfg config.EventConfig, logger *zap.Logger) *Rotator {
	return &Rotator{db: db, events: events, cache: c, clk: events.chars.Clock(), cfg: cfg, logger: logger}
}

// SlotKey names the rotation slot containing t, e.g. "2026-W19".
func SlotKey(t time.Time) string {
	y, w := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", y, w)
}

// Task names registered by Start.
const (
	RotateTask   = "events.rotate"
	FinalizeTask = "events.finalize"
)

// Start registers the rotate and finalize jobs on s.
func (r *Rotator) Start(s *scheduler.Scheduler) {
	s.AddTicker(RotateTask, r.cfg.RotateEvery, func(ctx context.Context) error {
		_, err := r.Rotate(ctx)
		return err
	})
	s.AddTicker(FinalizeTask, r.cfg.FinalizeEvery, func(ctx context.Context) error {
		n, err := r.FinalizeDue(ctx)
		if n > 0 {
			r.logger.Info("events finalized", zap.Int("count", n))
		}
		return err
	})
}

// Rotate creates the event for the current slot if none exists yet and
// returns it. It returns nil when another instance holds the lock.
func (r *Rotator) Rotate(ctx context.Context) (*model.RankedEvent, error) {
	ok, err := r.cache.SetNX(ctx, rotateLock, "1", lockTTL)
	if err != nil {
		return nil, fmt.Errorf("rotate lock: %w", err)
	}
	if !ok {
		return nil, nil
	}
	defer r.cache.Del(ctx, rotateLock)

	now := r.clk.Now()
	slot := SlotKey(now)
	e := &model.RankedEvent{
		SlotKey:     slot,
		Name:        "Weekly Olympiad " + slot,
		StartsAt:    now,
		EndsAt:      now.Add(r.cfg.Duration),
		RewardTiers: TiersFromConfig(r.cfg.Tiers).JSON(),
		CreatedAt:   now,
	}
	if ids := r.events.cat.SubjectIDs(); len(ids) > 0 {
		_, week := now.ISOWeek()
		subject := ids[week%len(ids)]
		e.SubjectID = &subject
		e.Name = "Weekly " + r.events.cat.SubjectName(subject) + " Olympiad " + slot
	}

	db := r.db.WithContext(ctx)
	res := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slot_key"}}, DoNothing: true}).Create(e)
	if res.Error != nil {
		return nil, fmt.Errorf("create event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var existing model.RankedEvent
		if err := db.Where("slot_key = ?", slot).First(&existing).Error; err != nil {
			return nil, fmt.Errorf("load event: %w", err)
		}
		return &existing, nil
	}
	r.logger.Info("event opened", zap.Int64("event_id", e.ID), zap.String("slot", slot), zap.Time("ends_at", e.EndsAt))
	return e, nil
}

// FinalizeDue finalizes every ended event that has not been finalized and
// returns how many it finalized.
func (r *Rotator) FinalizeDue(ctx context.Context) (int, error) {
	ok, err := r.cache.SetNX(ctx, finalizeLock, "1", lockTTL)
	if err != nil {
		return 0, fmt.Errorf("finalize lock: %w", err)
	}
	if !ok {
		return 0, nil
	}
	defer r.cache.Del(ctx, finalizeLock)

	var ids []int64
	if err := r.db.WithContext(ctx).Model(&model.RankedEvent{}).
		Where("finalized_at IS NULL AND ends_at <= ?", r.clk.Now()).
		Order("ends_at ASC").Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("list due events: %w", err)
	}
	n := 0
	for _, id := range ids {
		if _, err := r.events.Finalize(ctx, id); err != nil {
			r.logger.Warn("finalize event failed", zap.Int64("event_id", id), zap.Error(err))
			continue
		}
		n++
	}
	return n, nil
}
