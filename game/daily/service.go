// Package daily hands out the login reward cycle: one claim per calendar
// day (UTC), advancing through days 1..7 and wrapping back to day 1.
package daily

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kasuganosora/scholarquest/audit"
	"github.com/kasuganosora/scholarquest/catalog"
	"github.com/kasuganosora/scholarquest/game/character"
	"github.com/kasuganosora/scholarquest/game/dice"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/kasuganosora/scholarquest/game/item"
	"github.com/kasuganosora/scholarquest/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const cycleDays = 7

type Service struct {
	db     *gorm.DB
	chars  *character.Service
	items  *item.Service
	cat    *catalog.Catalog
	rng    dice.Roller
	audit  audit.Recorder
	logger *zap.Logger
}

func NewService(db *gorm.DB, chars *character.Service, items *item.Service, rng dice.Roller, rec audit.Recorder, logger *zap.Logger) *Service {
	return &Service{db: db, chars: chars, items: items, cat: chars.Catalog(), rng: rng, audit: rec, logger: logger}
}

// DayView is one day of the cycle as shown to a character.
type DayView struct {
	catalog.DailyReward
	Current bool `json:"current"`
	Claimed bool `json:"claimed"`
}

type Status struct {
	CurrentDay int        `json:"current_day"`
	CanClaim   bool       `json:"can_claim"`
	LastClaim  *time.Time `json:"last_claim"`
	Today      *DayView   `json:"today"`
	Days       []DayView  `json:"days"`
}

// Status shows the cycle position and whether today's reward is open.
func (svc *Service) Status(ctx context.Context, charID int64) (*Status, error) {
	c, err := svc.chars.Get(ctx, charID)
	if err != nil {
		return nil, err
	}
	day := currentDay(c)
	can := canClaim(c.LastDailyAt, svc.chars.Clock().Now())
	st := &Status{CurrentDay: day, CanClaim: can, LastClaim: c.LastDailyAt}
	for _, r := range svc.cat.DailyRewards() {
		v := DayView{DailyReward: r, Current: r.Day == day}
		if c.LastDailyAt != nil {
			v.Claimed = claimedInCycle(r.Day, day, can)
		}
		st.Days = append(st.Days, v)
		if v.Current {
			today := v
			st.Today = &today
		}
	}
	return st, nil
}

// claimedInCycle reports whether day of the current cycle has been taken.
// The stored streak already points at the next day to claim, so every
// earlier day is claimed. A streak back at day 1 with today closed means
// day 7 was claimed today and the whole cycle is done.
func claimedInCycle(day, current int, canClaim bool) bool {
	if current == 1 && !canClaim {
		return true
	}
	return day < current
}

// Claimed is the outcome of a daily claim.
type Claimed struct {
	Day         int             `json:"day"`
	NextDay     int             `json:"next_day"`
	Cash        decimal.Decimal `json:"cash"`
	StudyEnergy int             `json:"study_energy"`
	Item        *item.Drop      `json:"item,omitempty"`
}

// Claim grants today's reward. Missed days do not reset the cycle.
func (svc *Service) Claim(ctx context.Context, charID int64) (*Claimed, error) {
	var res *Claimed
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := svc.chars.Load(tx, charID)
		if err != nil {
			return err
		}
		now := svc.chars.Clock().Now()
		if !canClaim(c.LastDailyAt, now) {
			return gameerr.Conflict("daily reward already claimed today")
		}
		day := currentDay(c)
		reward, ok := svc.reward(day)
		if !ok {
			return gameerr.NotFound("no reward configured for day %d", day)
		}
		next := day%cycleDays + 1

		upd := tx.Model(&model.Character{}).
			Where("id = ? AND (last_daily_at IS NULL OR last_daily_at < ?)", charID, startOfDay(now)).
			Updates(map[string]any{"daily_streak": next, "last_daily_at": now})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return gameerr.Conflict("daily reward already claimed today")
		}

		res = &Claimed{Day: day, NextDay: next, Cash: decimal.NewFromInt(reward.Cash)}
		if err := svc.chars.CreditCash(tx, charID, res.Cash); err != nil {
			return err
		}
		if reward.StudyEnergy > 0 {
			if err := svc.chars.AddEnergy(tx, c, character.StudyPool, reward.StudyEnergy); err != nil {
				return err
			}
			res.StudyEnergy = reward.StudyEnergy
		}
		if reward.ItemRarity != "" {
			res.Item, err = svc.items.Grant(tx, charID, svc.items.RandomOfRarity(svc.rng, reward.ItemRarity))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrap("claim daily reward", err)
	}
	svc.audit.Log(ctx, audit.Entry{CharID: charID, Action: "daily.claim", Detail: res})
	svc.logger.Info("daily reward claimed", zap.Int64("char_id", charID), zap.Int("day", res.Day))
	return res, nil
}

func (svc *Service) reward(day int) (catalog.DailyReward, bool) {
	for _, r := range svc.cat.DailyRewards() {
		if r.Day == day {
			return r, true
		}
	}
	return catalog.DailyReward{}, false
}

// currentDay is the next day to claim. A fresh character starts at 1.
func currentDay(c *model.Character) int {
	if c.DailyStreak < 1 || c.DailyStreak > cycleDays {
		return 1
	}
	return c.DailyStreak
}

func startOfDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

func canClaim(last *time.Time, now time.Time) bool {
	return last == nil || last.Before(startOfDay(now))
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ge *gameerr.Error
	if errors.As(err, &ge) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
