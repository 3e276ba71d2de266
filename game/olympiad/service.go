// Package olympiad runs olympiad battles against generated opponents.
package olympiad

import (
	"context"
	"errors"
	"fmt"
	"strconv"

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

// Both sides score level*10 plus a swing in [-15, 14].
const (
	levelWeight = 10
	swingMin    = -15
	swingMax    = 14
)

// Service runs olympiads.
type Service struct {
	db     *gorm.DB
	chars  *character.Service
	items  *item.Service
	cat    *catalog.Catalog
	rng    dice.Roller
	logger *zap.Logger
}

// NewService creates an olympiad Service.
func NewService(db *gorm.DB, chars *character.Service, items *item.Service, rng dice.Roller, logger *zap.Logger) *Service {
	return &Service{db: db, chars: chars, items: items, cat: chars.Catalog(), rng: rng, logger: logger}
}

// Entry is an olympiad as seen by one character.
type Entry struct {
	*catalog.Olympiad
	Unlocked  bool `json:"unlocked"`
	CanAfford bool `json:"can_afford"`
}

// Board lists every olympiad with the character's access to it.
type Board struct {
	Energy    int     `json:"energy"`
	MaxEnergy int     `json:"max_energy"`
	Olympiads []Entry `json:"olympiads"`
}

// List returns all olympiads. Olympiad energy is regenerated and saved.
func (svc *Service) List(ctx context.Context, charID int64) (*Board, error) {
	var board *Board
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := svc.chars.Load(tx, charID)
		if err != nil {
			return err
		}
		if err := svc.chars.Regen(tx, c); err != nil {
			return err
		}
		board = &Board{Energy: c.OlympiadEnergy, MaxEnergy: c.OlympiadEnergyMax}
		for _, o := range svc.cat.Olympiads() {
			board.Olympiads = append(board.Olympiads, Entry{
				Olympiad:  o,
				Unlocked:  c.Level >= o.RequiredLevel,
				CanAfford: c.OlympiadEnergy >= o.EnergyCost,
			})
		}
		return nil
	})
	return board, wrap("list olympiads", err)
}

// Rewards are granted only on a win.
type Rewards struct {
	Cash      int64      `json:"cash"`
	XP        int64      `json:"xp"`
	Level     int        `json:"level"`
	LeveledUp bool       `json:"leveled_up"`
	Item      *item.Drop `json:"item,omitempty"`
}

// BattleResult is the outcome of one olympiad.
type BattleResult struct {
	Won            bool     `json:"won"`
	EffectiveLevel int      `json:"effective_level"`
	PlayerScore    int      `json:"player_score"`
	NPCLevel       int      `json:"npc_level"`
	NPCScore       int      `json:"npc_score"`
	Rewards        *Rewards `json:"rewards,omitempty"`
	Energy         int      `json:"energy"`
}

// Battle spends olympiad energy and scores the character against an
// opponent drawn from the olympiad's level range. Ties go to the opponent.
func (svc *Service) Battle(ctx context.Context, charID int64, olympiadID string) (*BattleResult, error) {
	o, ok := svc.cat.Olympiad(olympiadID)
	if !ok {
		return nil, gameerr.NotFound("olympiad %q not found", olympiadID)
	}
	var res *BattleResult
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := svc.chars.Load(tx, charID)
		if err != nil {
			return err
		}
		if c.Level < o.RequiredLevel {
			return gameerr.Precondition(fmt.Sprintf("requires character level %d", o.RequiredLevel), gameerr.Detail{
				Clause:   "character_level",
				Current:  strconv.Itoa(c.Level),
				Required: strconv.Itoa(o.RequiredLevel),
				Message:  fmt.Sprintf("character level %d of %d", c.Level, o.RequiredLevel),
			})
		}
		if err := svc.chars.Spend(tx, c, character.OlympiadPool, o.EnergyCost); err != nil {
			return err
		}
		eff, err := svc.effectiveLevel(tx, c, o)
		if err != nil {
			return err
		}
		bonus, err := svc.items.Bonuses(tx, charID)
		if err != nil {
			return err
		}

		res = &BattleResult{EffectiveLevel: eff, Energy: c.OlympiadEnergy}
		res.NPCLevel = svc.rng.Between(o.NPCLevelMin, o.NPCLevelMax)
		res.PlayerScore = max(0, eff*levelWeight+svc.rng.Between(swingMin, swingMax)+bonus.GradeBonus)
		res.NPCScore = max(0, res.NPCLevel*levelWeight+svc.rng.Between(swingMin, swingMax))
		res.Won = res.PlayerScore > res.NPCScore
		if !res.Won {
			return nil
		}

		r := &Rewards{
			Cash: int64(svc.rng.Between(o.CashMin, o.CashMax)),
			XP:   int64(svc.rng.Between(o.XPMin, o.XPMax)),
		}
		if err := svc.chars.CreditCash(tx, charID, decimal.NewFromInt(r.Cash)); err != nil {
			return err
		}
		p, err := svc.chars.GrantXP(tx, c, decimal.NewFromInt(r.XP))
		if err != nil {
			return err
		}
		r.Level, r.LeveledUp = p.Level, p.LeveledUp
		if svc.rng.Chance(o.ItemChance) {
			if r.Item, err = svc.items.Grant(tx, charID, svc.items.RandomDrop(svc.rng, o.Difficulty)); err != nil {
				return err
			}
		}
		res.Rewards = r
		return nil
	})
	if err != nil {
		return nil, wrap("olympiad battle", err)
	}
	svc.logger.Info("olympiad fought",
		zap.Int64("char_id", charID), zap.String("olympiad_id", olympiadID),
		zap.Bool("won", res.Won), zap.Int("score", res.PlayerScore), zap.Int("npc_score", res.NPCScore))
	return res, nil
}

// effectiveLevel averages the character level with the olympiad subject's
// level, or with the mean subject level for general olympiads.
func (svc *Service) effectiveLevel(tx *gorm.DB, c *model.Character, o *catalog.Olympiad) (int, error) {
	subjects, err := svc.chars.Subjects(tx, c.ID)
	if err != nil {
		return 0, err
	}
	if len(subjects) == 0 {
		return c.Level, nil
	}
	if o.SubjectID != "" {
		for _, s := range subjects {
			if s.SubjectID == o.SubjectID {
				return (c.Level + s.Level) / 2, nil
			}
		}
		return c.Level, nil
	}
	sum := 0
	for _, s := range subjects {
		sum += s.Level
	}
	avg := float64(sum) / float64(len(subjects))
	return int((float64(c.Level) + avg) / 2), nil
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
