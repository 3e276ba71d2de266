package debug

import (
	"context"
	"errors"
	"fmt"

	"github.com/kasuganosora/scholarquest/audit"
	"github.com/kasuganosora/scholarquest/catalog"
	"github.com/kasuganosora/scholarquest/game/character"
	"github.com/kasuganosora/scholarquest/game/dice"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/kasuganosora/scholarquest/game/grade"
	"github.com/kasuganosora/scholarquest/game/leveling"
	"github.com/kasuganosora/scholarquest/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Granted grades default to a uniform score in this range.
const (
	grantMin = 70
	grantMax = 99
)

// Service runs administrative shortcuts against a character.
type Service struct {
	db     *gorm.DB
	chars  *character.Service
	cat    *catalog.Catalog
	flags  *Flags
	rng    dice.Roller
	audit  audit.Recorder
	logger *zap.Logger
}

// NewService creates a debug Service.
func NewService(db *gorm.DB, chars *character.Service, flags *Flags, rng dice.Roller, rec audit.Recorder, logger *zap.Logger) *Service {
	return &Service{db: db, chars: chars, cat: chars.Catalog(), flags: flags, rng: rng, audit: rec, logger: logger}
}

func (svc *Service) Flags() *Flags { return svc.flags }

// RefillEnergy fills both energy pools.
func (svc *Service) RefillEnergy(ctx context.Context, charID int64) (*model.Character, error) {
	var c *model.Character
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if c, err = svc.chars.Load(tx, charID); err != nil {
			return err
		}
		for _, kind := range []character.PoolKind{character.StudyPool, character.OlympiadPool} {
			if err := svc.chars.Refill(tx, c, kind); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrap("refill energy", err)
	}
	svc.audit.Log(ctx, audit.Entry{CharID: charID, Action: "debug.refill_energy"})
	return c, nil
}

// GrantGrade records a grade in the current class without the study path.
// A nil score draws one uniformly from 70-99.
func (svc *Service) GrantGrade(ctx context.Context, charID int64, subjectID string, score *int) (*model.Grade, error) {
	if _, ok := svc.cat.Subject(subjectID); !ok {
		return nil, gameerr.NotFound("subject %q not found", subjectID)
	}
	if score != nil && (*score < 0 || *score > 100) {
		return nil, gameerr.Invalid("score must be within 0-100")
	}
	var g *model.Grade
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := svc.chars.Load(tx, charID)
		if err != nil {
			return err
		}
		if c.ClassID == nil {
			return gameerr.Precondition("no current class")
		}
		s := grade.Clamp(svc.rng.Between(grantMin, grantMax))
		if score != nil {
			s = *score
		}
		g = &model.Grade{
			CharID:    charID,
			ClassID:   *c.ClassID,
			SubjectID: subjectID,
			Score:     s,
			CreatedAt: svc.chars.Clock().Now(),
		}
		return tx.Create(g).Error
	})
	if err != nil {
		return nil, wrap("grant grade", err)
	}
	svc.audit.Log(ctx, audit.Entry{CharID: charID, Action: "debug.grant_grade", Detail: g})
	svc.logger.Info("grade granted",
		zap.Int64("char_id", charID), zap.String("subject_id", subjectID),
		zap.Int("score", g.Score), zap.String("grade", grade.Label(g.Score)))
	return g, nil
}

// maxXPGrant bounds one admin grant so the level-up loop stays short.
var maxXPGrant = decimal.NewFromInt(1_000_000_000)

// GrantXP applies a character XP gain through the level curve.
func (svc *Service) GrantXP(ctx context.Context, charID int64, amount decimal.Decimal) (*leveling.Progress, error) {
	if !amount.IsPositive() || !amount.IsInteger() {
		return nil, gameerr.Invalid("xp must be a positive whole number")
	}
	if amount.GreaterThan(maxXPGrant) {
		return nil, gameerr.Invalid("xp grant %s exceeds the limit of %s", amount, maxXPGrant)
	}
	var p leveling.Progress
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := svc.chars.Load(tx, charID)
		if err != nil {
			return err
		}
		p, err = svc.chars.GrantXP(tx, c, amount)
		return err
	})
	if err != nil {
		return nil, wrap("grant xp", err)
	}
	svc.audit.Log(ctx, audit.Entry{CharID: charID, Action: "debug.grant_xp", Detail: map[string]any{"xp": amount}})
	return &p, nil
}

// Reset returns the character to a fresh start.
func (svc *Service) Reset(ctx context.Context, charID int64) (*model.Character, error) {
	var c *model.Character
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if c, err = svc.chars.Load(tx, charID); err != nil {
			return err
		}
		return svc.chars.Reset(tx, c)
	})
	if err != nil {
		return nil, wrap("reset", err)
	}
	svc.audit.Log(ctx, audit.Entry{CharID: charID, Action: "debug.reset"})
	svc.logger.Info("character reset", zap.Int64("char_id", charID))
	return c, nil
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
