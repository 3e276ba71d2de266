package character

import (
	"context"
	"errors"
	"time"

	"github.com/kasuganosora/scholarquest/catalog"
	"github.com/kasuganosora/scholarquest/game/energy"
	"github.com/kasuganosora/scholarquest/game/item"
	"github.com/kasuganosora/scholarquest/game/requirement"
	"github.com/kasuganosora/scholarquest/model"
	"gorm.io/gorm"
)

// PoolView is an energy pool with its next regeneration time.
type PoolView struct {
	Value      int        `json:"value"`
	Max        int        `json:"max"`
	NextUnitAt *time.Time `json:"next_unit_at,omitempty"`
	NextUnitIn string     `json:"next_unit_in,omitempty"`
}

// SubjectView is one subject's progress.
type SubjectView struct {
	SubjectID string `json:"subject_id"`
	Name      string `json:"name"`
	Level     int    `json:"level"`
	XP        int64  `json:"xp"`
	XPToNext  int64  `json:"xp_to_next"`
}

// ClassPreview is the current class and what completing it requires.
type ClassPreview struct {
	ClassID      string             `json:"class_id"`
	GradeNumber  int                `json:"grade_number"`
	Requirements requirement.Result `json:"requirements"`
	CanComplete  bool               `json:"can_complete"`
}

// LocationPreview is the next location and what entering it requires.
type LocationPreview struct {
	LocationID   string             `json:"location_id"`
	Name         string             `json:"name"`
	Requirements requirement.Result `json:"requirements"`
	CanAdvance   bool               `json:"can_advance"`
}

// View is the full character sheet.
type View struct {
	Character       *model.Character  `json:"character"`
	XPToNext        int64             `json:"xp_to_next"`
	StudyEnergy     PoolView          `json:"study_energy"`
	OlympiadEnergy  PoolView          `json:"olympiad_energy"`
	Subjects        []SubjectView     `json:"subjects"`
	Bonuses         catalog.ItemStats `json:"bonuses"`
	LocationPercent float64           `json:"location_percent"`
	CachedPercent   float64           `json:"cached_location_percent"`
	CurrentClass    *ClassPreview     `json:"current_class,omitempty"`
	NextLocation    *LocationPreview  `json:"next_location,omitempty"`
}

func poolView(p energy.Pool, now time.Time) PoolView {
	v := PoolView{Value: p.Value, Max: p.Max}
	if at := energy.NextUnitAt(p); !at.IsZero() {
		v.NextUnitAt = &at
		v.NextUnitIn = energy.FormatCountdown(energy.Countdown(p, now))
	}
	return v
}

// View builds the character sheet after regenerating the energy pools.
// The location percentage is recomputed from grades; the cached one is
// what class completion last stored.
func (svc *Service) View(ctx context.Context, charID int64) (*View, error) {
	var v *View
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := svc.Load(tx, charID)
		if err != nil {
			return err
		}
		if err := svc.Regen(tx, c); err != nil {
			return err
		}
		subjects, err := svc.Subjects(tx, c.ID)
		if err != nil {
			return err
		}
		snap, err := svc.Snapshot(tx, c)
		if err != nil {
			return err
		}
		bonuses, err := item.SumBonuses(tx, svc.cat, c.ID)
		if err != nil {
			return err
		}
		cached, err := svc.cachedPercent(tx, c.ID, c.LocationID)
		if err != nil {
			return err
		}

		v = &View{
			Character:       c,
			XPToNext:        svc.charCurve.XPToNext(c.Level),
			StudyEnergy:     poolView(svc.Pool(c, StudyPool), svc.clk.Now()),
			OlympiadEnergy:  poolView(svc.Pool(c, OlympiadPool), svc.clk.Now()),
			Bonuses:         bonuses,
			LocationPercent: requirement.CompletionPercent(svc.cat, c.LocationID, snap),
			CachedPercent:   cached,
		}
		for _, s := range subjects {
			v.Subjects = append(v.Subjects, SubjectView{
				SubjectID: s.SubjectID,
				Name:      svc.cat.SubjectName(s.SubjectID),
				Level:     s.Level,
				XP:        s.CurrentXP,
				XPToNext:  svc.subjectCurve.XPToNext(s.Level),
			})
		}
		if c.ClassID != nil {
			if cl, ok := svc.cat.Class(*c.ClassID); ok {
				r := requirement.ForClass(svc.cat, snap, cl)
				v.CurrentClass = &ClassPreview{ClassID: cl.ID, GradeNumber: cl.GradeNumber, Requirements: r, CanComplete: r.Satisfied()}
			}
		}
		if next := svc.cat.NextLocation(c.LocationID); next != nil {
			r := requirement.ForLocation(svc.cat, snap, c.LocationID, next)
			v.NextLocation = &LocationPreview{LocationID: next.ID, Name: next.Name, Requirements: r, CanAdvance: r.Satisfied()}
		}
		return nil
	})
	if err != nil {
		return nil, wrap("view character", err)
	}
	return v, nil
}

func (svc *Service) cachedPercent(tx *gorm.DB, charID int64, locationID string) (float64, error) {
	var lp model.LocationProgress
	err := tx.Where("char_id = ? AND location_id = ?", charID, locationID).First(&lp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return lp.CompletionPercent, nil
}
