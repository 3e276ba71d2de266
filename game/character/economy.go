package character

import (
	"errors"
	"fmt"
	"math"

	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/kasuganosora/scholarquest/game/leveling"
	"github.com/kasuganosora/scholarquest/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaxCash is the largest balance or single cash movement. Every driver
// stores whole amounts up to int64 exactly, so nothing above it is accepted.
var MaxCash = decimal.NewFromInt(math.MaxInt64)

// DebitCash removes amount from the balance only if it covers it.
func (svc *Service) DebitCash(tx *gorm.DB, charID int64, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return gameerr.Invalid("negative debit %s", amount)
	}
	if amount.GreaterThan(MaxCash) {
		return gameerr.Invalid("debit %s exceeds the cash limit", amount)
	}
	if amount.IsZero() {
		return nil
	}
	res := tx.Model(&model.Character{}).
		Where("id = ? AND cash >= ?", charID, amount).
		Update("cash", gorm.Expr("cash - ?", amount))
	if res.Error != nil {
		return fmt.Errorf("debit cash: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	c, err := svc.Load(tx, charID)
	if err != nil {
		return err
	}
	return gameerr.Precondition("insufficient cash", gameerr.Detail{
		Clause:   "balance",
		Current:  c.Cash.String(),
		Required: amount.String(),
		Message:  "need " + amount.Sub(c.Cash).String() + " more cash",
	})
}

// CreditCash adds amount to the balance.
func (svc *Service) CreditCash(tx *gorm.DB, charID int64, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return gameerr.Invalid("negative credit %s", amount)
	}
	if amount.GreaterThan(MaxCash) {
		return gameerr.Invalid("credit %s exceeds the cash limit", amount)
	}
	if amount.IsZero() {
		return nil
	}
	res := tx.Model(&model.Character{}).
		Where("id = ? AND cash <= ?", charID, MaxCash.Sub(amount)).
		Update("cash", gorm.Expr("cash + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("credit cash: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	c, err := svc.Load(tx, charID)
	if err != nil {
		return err
	}
	return gameerr.Precondition("balance would exceed the cash limit", gameerr.Detail{
		Clause:   "balance",
		Current:  c.Cash.String(),
		Required: MaxCash.Sub(amount).String(),
		Message:  "balance must stay at or below " + MaxCash.String(),
	})
}

// GrantXP applies a character XP gain through the character curve and
// updates c in place.
func (svc *Service) GrantXP(tx *gorm.DB, c *model.Character, gain decimal.Decimal) (leveling.Progress, error) {
	p := svc.charCurve.Apply(c.Level, c.TotalXP, gain)
	err := tx.Model(&model.Character{}).Where("id = ?", c.ID).
		Updates(map[string]any{"level": p.Level, "total_xp": p.XP}).Error
	if err != nil {
		return p, fmt.Errorf("grant xp: %w", err)
	}
	c.Level, c.TotalXP = p.Level, p.XP
	return p, nil
}

// SubjectGain is the outcome of a subject XP grant.
type SubjectGain struct {
	SubjectID string `json:"subject_id"`
	XPGained  int64  `json:"xp_gained"`
	Level     int    `json:"level"`
	XP        int64  `json:"xp"`
	XPToNext  int64  `json:"xp_to_next"`
	LeveledUp bool   `json:"leveled_up"`
}

// GrantSubjectXP applies a subject XP gain through the subject curve.
func (svc *Service) GrantSubjectXP(tx *gorm.DB, charID int64, subjectID string, gain int64) (SubjectGain, error) {
	if _, ok := svc.cat.Subject(subjectID); !ok {
		return SubjectGain{}, gameerr.NotFound("subject %q not found", subjectID)
	}
	var sp model.SubjectProgress
	err := tx.Where("char_id = ? AND subject_id = ?", charID, subjectID).First(&sp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		sp = model.SubjectProgress{CharID: charID, SubjectID: subjectID, Level: 1}
		err = tx.Create(&sp).Error
	}
	if err != nil {
		return SubjectGain{}, fmt.Errorf("load subject progress: %w", err)
	}
	level, xp, up := svc.subjectCurve.ApplyInt(sp.Level, sp.CurrentXP, gain)
	if err := tx.Model(&sp).Updates(map[string]any{"level": level, "current_xp": xp}).Error; err != nil {
		return SubjectGain{}, fmt.Errorf("grant subject xp: %w", err)
	}
	return SubjectGain{
		SubjectID: subjectID,
		XPGained:  gain,
		Level:     level,
		XP:        xp,
		XPToNext:  svc.subjectCurve.XPToNext(level),
		LeveledUp: up,
	}, nil
}

// Reset returns a character to a fresh start, keeping its ID and name.
// Grades, items, cooldowns and cached progress are removed.
func (svc *Service) Reset(tx *gorm.DB, c *model.Character) error {
	for _, m := range []any{
		&model.SubjectProgress{}, &model.Grade{}, &model.LocationProgress{},
		&model.QuestCooldown{}, &model.Inventory{}, &model.Equipment{},
	} {
		if err := tx.Where("char_id = ?", c.ID).Delete(m).Error; err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	now := svc.clk.Now()
	loc := svc.cat.FirstLocation()
	var classID *string
	if cl := svc.cat.FirstClass(loc.ID); cl != nil {
		classID = &cl.ID
	}
	updates := map[string]any{
		"level":              1,
		"total_xp":           decimal.Zero,
		"cash":               decimal.Zero,
		"study_energy":       c.StudyEnergyMax,
		"study_regen_at":     now,
		"olympiad_energy":    c.OlympiadEnergyMax,
		"olympiad_regen_at":  now,
		"location_id":        loc.ID,
		"class_id":           classID,
		"specialization_id":  nil,
		"total_study_clicks": 0,
		"class_study_clicks": 0,
		"daily_streak":       0,
		"last_daily_at":      nil,
	}
	if err := tx.Model(&model.Character{}).Where("id = ?", c.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if err := svc.seedSubjects(tx, c.ID); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	reloaded, err := svc.Load(tx, c.ID)
	if err != nil {
		return err
	}
	*c = *reloaded
	return nil
}
