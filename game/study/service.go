// Package study implements the study click: subject and character XP, the
// occasional cash reward, a grade every few clicks and rare item drops.
package study

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kasuganosora/scholarquest/cache"
	"github.com/kasuganosora/scholarquest/catalog"
	"github.com/kasuganosora/scholarquest/config"
	"github.com/kasuganosora/scholarquest/game/character"
	"github.com/kasuganosora/scholarquest/game/debug"
	"github.com/kasuganosora/scholarquest/game/dice"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/kasuganosora/scholarquest/game/grade"
	"github.com/kasuganosora/scholarquest/game/item"
	"github.com/kasuganosora/scholarquest/game/leveling"
	"github.com/kasuganosora/scholarquest/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dropTable = "study"

// Service runs study clicks.
type Service struct {
	db       *gorm.DB
	chars    *character.Service
	items    *item.Service
	cat      *catalog.Catalog
	cache    cache.Cache
	flags    *debug.Flags
	rng      dice.Roller
	cfg      config.StudyConfig
	gradeCfg config.GradeConfig
	logger   *zap.Logger
}

// NewService creates a study Service.
func NewService(db *gorm.DB, chars *character.Service, items *item.Service, c cache.Cache,
	flags *debug.Flags, rng dice.Roller, cfg config.GameConfig, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		chars:    chars,
		items:    items,
		cat:      chars.Catalog(),
		cache:    c,
		flags:    flags,
		rng:      rng,
		cfg:      cfg.Study,
		gradeCfg: cfg.Grade,
		logger:   logger,
	}
}

// GradeResult is the grade earned on a grading click.
type GradeResult struct {
	SubjectID string `json:"subject_id"`
	Name      string `json:"subject_name"`
	Score     int    `json:"score"`
	Display   string `json:"display"`
	BonusXP   int64  `json:"bonus_xp"`
}

// Result is the outcome of one study click.
type Result struct {
	CharacterXPGained int64                   `json:"character_xp_gained"`
	Level             int                     `json:"level"`
	TotalXP           decimal.Decimal         `json:"total_xp"`
	LeveledUp         bool                    `json:"leveled_up"`
	Subjects          []character.SubjectGain `json:"subjects"`
	CashGained        int64                   `json:"cash_gained"`
	Cash              decimal.Decimal         `json:"cash"`
	Grade             *GradeResult            `json:"grade,omitempty"`
	Item              *item.Drop              `json:"item,omitempty"`
	ClassClicks       int                     `json:"class_clicks"`
	ClicksUntilGrade  int                     `json:"clicks_until_grade"`
	CooldownUntil     time.Time               `json:"cooldown_until"`
}

func cooldownKey(charID int64) string {
	return "study:cooldown:" + strconv.FormatInt(charID, 10)
}

// Study performs one click. system picks how the grade, if any, is rendered.
func (svc *Service) Study(ctx context.Context, charID int64, system grade.System) (*Result, error) {
	now := svc.chars.Clock().Now()
	if !svc.flags.CooldownDisabled() {
		ok, err := svc.cache.SetNX(ctx, cooldownKey(charID), "1", svc.cfg.Cooldown)
		if err != nil {
			return nil, fmt.Errorf("study cooldown: %w", err)
		}
		if !ok {
			return nil, gameerr.Precondition("study is on cooldown")
		}
	}

	res := &Result{CooldownUntil: now.Add(svc.cfg.Cooldown)}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := svc.chars.Load(tx, charID)
		if err != nil {
			return err
		}
		bonus, err := svc.items.Bonuses(tx, charID)
		if err != nil {
			return err
		}
		subjects, err := svc.available(tx, c)
		if err != nil {
			return err
		}

		total := svc.rng.Between(svc.cfg.SubjectXPMin, svc.cfg.SubjectXPMax)
		affected := max(1, svc.rng.Between(svc.cfg.SubjectsMin, svc.cfg.SubjectsMax))
		perSubject := int64(total / affected)
		gain := leveling.WithBonusInt(perSubject, bonus.XPBonus)

		picked := dice.Shuffle(svc.rng, ids(subjects))
		picked = picked[:min(affected, len(picked))]
		for _, id := range picked {
			g, err := svc.chars.GrantSubjectXP(tx, charID, id, gain)
			if err != nil {
				return err
			}
			res.Subjects = append(res.Subjects, g)
		}

		charGain := int64(svc.rng.Between(svc.cfg.CharacterXPMin, svc.cfg.CharacterXPMax))
		p, err := svc.chars.GrantXP(tx, c, decimal.NewFromInt(charGain))
		if err != nil {
			return err
		}
		res.CharacterXPGained, res.Level, res.TotalXP, res.LeveledUp = charGain, p.Level, p.XP, p.LeveledUp

		if svc.rng.Chance(svc.cfg.CashChance) {
			cash := int64(svc.rng.Between(svc.cfg.CashMin, svc.cfg.CashMax))
			res.CashGained = leveling.WithBonusInt(cash, bonus.CashBonus)
			if err := svc.chars.CreditCash(tx, charID, decimal.NewFromInt(res.CashGained)); err != nil {
				return err
			}
		}
		res.Cash = c.Cash.Add(decimal.NewFromInt(res.CashGained))

		res.ClassClicks = c.ClassStudyClicks + 1
		err = tx.Model(&model.Character{}).Where("id = ?", charID).Updates(map[string]any{
			"class_study_clicks": gorm.Expr("class_study_clicks + 1"),
			"total_study_clicks": gorm.Expr("total_study_clicks + 1"),
		}).Error
		if err != nil {
			return fmt.Errorf("count click: %w", err)
		}
		per := max(1, svc.cfg.ClicksPerGrade)
		res.ClicksUntilGrade = per - res.ClassClicks%per

		if c.ClassID != nil && res.ClassClicks%per == 0 && len(subjects) > 0 {
			if err := svc.award(tx, c, subjects, perSubject, bonus, system, res); err != nil {
				return err
			}
		}

		if svc.rng.Chance(svc.cfg.ItemDropChance) {
			if res.Item, err = svc.items.Grant(tx, charID, svc.items.RandomDrop(svc.rng, dropTable)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrap("study", err)
	}
	if res.LeveledUp {
		svc.logger.Info("character leveled up", zap.Int64("char_id", charID), zap.Int("level", res.Level))
	}
	return res, nil
}

// award records a grade for a random available subject and grants that
// subject half the per-subject XP on top.
func (svc *Service) award(tx *gorm.DB, c *model.Character, subjects []model.SubjectProgress,
	perSubject int64, bonus catalog.ItemStats, system grade.System, res *Result) error {
	sp := subjects[dice.Pick(svc.rng, len(subjects))]
	score := grade.Generate(svc.rng, sp.Level, bonus.GradeBonus, svc.gradeCfg)
	g := &model.Grade{
		CharID:    c.ID,
		ClassID:   *c.ClassID,
		SubjectID: sp.SubjectID,
		Score:     score,
		CreatedAt: svc.chars.Clock().Now(),
	}
	if err := tx.Create(g).Error; err != nil {
		return fmt.Errorf("record grade: %w", err)
	}

	extra := leveling.WithBonusInt(perSubject, bonus.XPBonus) / 2
	gained, err := svc.chars.GrantSubjectXP(tx, c.ID, sp.SubjectID, extra)
	if err != nil {
		return err
	}
	merged := false
	for i := range res.Subjects {
		if res.Subjects[i].SubjectID == sp.SubjectID {
			prev := res.Subjects[i]
			gained.XPGained += prev.XPGained
			gained.LeveledUp = gained.LeveledUp || prev.LeveledUp
			res.Subjects[i] = gained
			merged = true
			break
		}
	}
	if !merged {
		res.Subjects = append(res.Subjects, gained)
	}

	res.Grade = &GradeResult{
		SubjectID: sp.SubjectID,
		Name:      svc.cat.SubjectName(sp.SubjectID),
		Score:     score,
		Display:   grade.Format(score, system),
		BonusXP:   extra,
	}
	svc.logger.Info("grade earned",
		zap.Int64("char_id", c.ID), zap.String("subject_id", sp.SubjectID),
		zap.Int("score", score), zap.String("grade", grade.Label(score)))
	return nil
}

// available returns the subjects the current class teaches, falling back
// to the location's list and then to every subject.
func (svc *Service) available(tx *gorm.DB, c *model.Character) ([]model.SubjectProgress, error) {
	all, err := svc.chars.Subjects(tx, c.ID)
	if err != nil {
		return nil, err
	}
	var allowed []string
	if c.ClassID != nil {
		if cl, ok := svc.cat.Class(*c.ClassID); ok {
			allowed = cl.AllowedSubjects
		}
	}
	if len(allowed) == 0 {
		if loc, ok := svc.cat.Location(c.LocationID); ok {
			allowed = loc.AllowedSubjects
		}
	}
	if len(allowed) == 0 {
		return all, nil
	}
	set := make(map[string]bool, len(allowed))
	for _, id := range allowed {
		set[id] = true
	}
	out := all[:0]
	for _, sp := range all {
		if set[sp.SubjectID] {
			out = append(out, sp)
		}
	}
	return out, nil
}

func ids(subjects []model.SubjectProgress) []string {
	out := make([]string, len(subjects))
	for i, s := range subjects {
		out[i] = s.SubjectID
	}
	return out
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
