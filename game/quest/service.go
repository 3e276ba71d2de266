// Package quest runs tutoring quests: study energy is spent for cash,
// subject XP and a chance at an item, after which the quest cools down.
package quest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/kasuganosora/scholarquest/catalog"
	"github.com/kasuganosora/scholarquest/game/character"
	"github.com/kasuganosora/scholarquest/game/dice"
	"github.com/kasuganosora/scholarquest/game/energy"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/kasuganosora/scholarquest/game/item"
	"github.com/kasuganosora/scholarquest/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const dropTable = "study"

// Service handles all quest operations.
type Service struct {
	db     *gorm.DB
	chars  *character.Service
	items  *item.Service
	cat    *catalog.Catalog
	rng    dice.Roller
	logger *zap.Logger
}

// NewService creates a new quest Service.
func NewService(db *gorm.DB, chars *character.Service, items *item.Service, rng dice.Roller, logger *zap.Logger) *Service {
	return &Service{db: db, chars: chars, items: items, cat: chars.Catalog(), rng: rng, logger: logger}
}

// Offer is a quest as seen by one character.
type Offer struct {
	*catalog.Quest
	OnCooldown        bool       `json:"on_cooldown"`
	CooldownUntil     *time.Time `json:"cooldown_until,omitempty"`
	MeetsRequirements bool       `json:"meets_requirements"`
	CanStart          bool       `json:"can_start"`
}

// Board lists the quests open to a character's level.
type Board struct {
	Energy    int     `json:"energy"`
	MaxEnergy int     `json:"max_energy"`
	Quests    []Offer `json:"quests"`
}

// Available returns quests whose character level gate is met, cheapest first.
func (svc *Service) Available(ctx context.Context, charID int64) (*Board, error) {
	var board *Board
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := svc.chars.Load(tx, charID)
		if err != nil {
			return err
		}
		avg, err := svc.averageLevel(tx, charID)
		if err != nil {
			return err
		}
		var cds []model.QuestCooldown
		if err := tx.Where("char_id = ?", charID).Find(&cds).Error; err != nil {
			return err
		}
		until := make(map[string]time.Time, len(cds))
		for _, cd := range cds {
			until[cd.QuestID] = cd.AvailableAt
		}

		now := svc.chars.Clock().Now()
		pool := energy.Regen(svc.chars.Pool(c, character.StudyPool), now)
		board = &Board{Energy: pool.Value, MaxEnergy: pool.Max}
		for _, q := range svc.cat.Quests() {
			if c.Level < q.RequiredCharacterLevel {
				continue
			}
			o := Offer{Quest: q, MeetsRequirements: avg >= float64(q.RequiredSubjectLevel)}
			if t, ok := until[q.ID]; ok && t.After(now) {
				o.OnCooldown, o.CooldownUntil = true, &t
			}
			o.CanStart = o.MeetsRequirements && !o.OnCooldown && pool.Value >= q.EnergyCost
			board.Quests = append(board.Quests, o)
		}
		sort.SliceStable(board.Quests, func(i, j int) bool {
			return board.Quests[i].EnergyCost < board.Quests[j].EnergyCost
		})
		return nil
	})
	return board, wrap("list quests", err)
}

// Result is the outcome of a finished quest.
type Result struct {
	QuestID       string                `json:"quest_id"`
	Name          string                `json:"name"`
	CashEarned    int64                 `json:"cash_earned"`
	Subject       character.SubjectGain `json:"subject"`
	Item          *item.Drop            `json:"item,omitempty"`
	Energy        int                   `json:"energy"`
	CooldownUntil time.Time             `json:"cooldown_until"`
}

// Start runs a quest to completion.
func (svc *Service) Start(ctx context.Context, charID int64, questID string) (*Result, error) {
	q, ok := svc.cat.Quest(questID)
	if !ok {
		return nil, gameerr.NotFound("quest %q not found", questID)
	}
	var res *Result
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := svc.chars.Load(tx, charID)
		if err != nil {
			return err
		}
		if c.Level < q.RequiredCharacterLevel {
			return gameerr.Precondition("character level too low", gameerr.Detail{
				Clause:   "character_level",
				Current:  strconv.Itoa(c.Level),
				Required: strconv.Itoa(q.RequiredCharacterLevel),
				Message:  fmt.Sprintf("character level %d of %d", c.Level, q.RequiredCharacterLevel),
			})
		}
		avg, err := svc.averageLevel(tx, charID)
		if err != nil {
			return err
		}
		if avg < float64(q.RequiredSubjectLevel) {
			return gameerr.Precondition("subject levels too low", gameerr.Detail{
				Clause:   "average_subject_level",
				Current:  strconv.FormatFloat(avg, 'f', 2, 64),
				Required: strconv.Itoa(q.RequiredSubjectLevel),
				Message:  fmt.Sprintf("average subject level %.2f of %d", avg, q.RequiredSubjectLevel),
			})
		}

		now := svc.chars.Clock().Now()
		var cd model.QuestCooldown
		err = tx.Where("char_id = ? AND quest_id = ?", charID, questID).First(&cd).Error
		switch {
		case err == nil && cd.AvailableAt.After(now):
			return gameerr.Precondition("quest is on cooldown", gameerr.Detail{
				Clause:   "cooldown",
				Subject:  questID,
				Current:  now.Format(time.RFC3339),
				Required: cd.AvailableAt.Format(time.RFC3339),
				Message:  "available again at " + cd.AvailableAt.Format(time.RFC3339),
			})
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if err := svc.chars.Spend(tx, c, character.StudyPool, q.EnergyCost); err != nil {
			return err
		}
		res = &Result{QuestID: q.ID, Name: q.Name, Energy: c.StudyEnergy}

		res.CashEarned = int64(svc.rng.Between(q.CashMin, q.CashMax))
		if err := svc.chars.CreditCash(tx, charID, decimal.NewFromInt(res.CashEarned)); err != nil {
			return err
		}

		subjects := svc.cat.SubjectIDs()
		subjectID := subjects[dice.Pick(svc.rng, len(subjects))]
		xp := int64(svc.rng.Between(q.SubjectXPMin, q.SubjectXPMax))
		if res.Subject, err = svc.chars.GrantSubjectXP(tx, charID, subjectID, xp); err != nil {
			return err
		}

		if svc.rng.Chance(q.ItemChance) {
			if res.Item, err = svc.items.Grant(tx, charID, svc.items.RandomDrop(svc.rng, dropTable)); err != nil {
				return err
			}
		}

		res.CooldownUntil = now.Add(time.Duration(q.CooldownSeconds) * time.Second)
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "char_id"}, {Name: "quest_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"available_at"}),
		}).Create(&model.QuestCooldown{CharID: charID, QuestID: questID, AvailableAt: res.CooldownUntil}).Error
	})
	if err != nil {
		return nil, wrap("start quest", err)
	}
	svc.logger.Info("quest completed",
		zap.Int64("char_id", charID), zap.String("quest_id", questID), zap.Int64("cash", res.CashEarned))
	return res, nil
}

func (svc *Service) averageLevel(tx *gorm.DB, charID int64) (float64, error) {
	subjects, err := svc.chars.Subjects(tx, charID)
	if err != nil || len(subjects) == 0 {
		return 0, err
	}
	sum := 0
	for _, s := range subjects {
		sum += s.Level
	}
	return float64(sum) / float64(len(subjects)), nil
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
