package academy

import (
	"context"

	"github.com/kasuganosora/scholarquest/catalog"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/kasuganosora/scholarquest/game/requirement"
	"github.com/kasuganosora/scholarquest/model"
	"gorm.io/gorm"
)

// SpecializationOption is one specialization with its evaluated requirements.
type SpecializationOption struct {
	Specialization *catalog.Specialization `json:"specialization"`
	Requirements   requirement.Result      `json:"requirements"`
	Available      bool                    `json:"available"`
}

// SpecializationPreview is what the specialization screen shows.
type SpecializationPreview struct {
	Current *string                `json:"current"`
	Options []SpecializationOption `json:"options"`
}

func (svc *Service) read(ctx context.Context, charID int64, fn func(c *model.Character, snap requirement.Snapshot) error) error {
	return svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := svc.chars.Load(tx, charID)
		if err != nil {
			return err
		}
		snap, err := svc.chars.Snapshot(tx, c)
		if err != nil {
			return err
		}
		return fn(c, snap)
	})
}

// ClassRequirements previews the current class's completion bundle.
func (svc *Service) ClassRequirements(ctx context.Context, charID int64) (requirement.Result, error) {
	var r requirement.Result
	err := svc.read(ctx, charID, func(c *model.Character, snap requirement.Snapshot) error {
		if c.ClassID == nil {
			return gameerr.Precondition("no current class")
		}
		cl, ok := svc.cat.Class(*c.ClassID)
		if !ok {
			return gameerr.NotFound("class %q not found", *c.ClassID)
		}
		r = requirement.ForClass(svc.cat, snap, cl)
		return nil
	})
	return r, wrap("class requirements", err)
}

// LocationRequirements previews entry into the next location.
func (svc *Service) LocationRequirements(ctx context.Context, charID int64) (requirement.Result, error) {
	var r requirement.Result
	err := svc.read(ctx, charID, func(c *model.Character, snap requirement.Snapshot) error {
		next := svc.cat.NextLocation(c.LocationID)
		if next == nil {
			return gameerr.Precondition("no next location available")
		}
		r = requirement.ForLocation(svc.cat, snap, c.LocationID, next)
		return nil
	})
	return r, wrap("location requirements", err)
}

// Specializations previews every specialization offered at the current
// location.
func (svc *Service) Specializations(ctx context.Context, charID int64) (*SpecializationPreview, error) {
	var p SpecializationPreview
	err := svc.read(ctx, charID, func(c *model.Character, snap requirement.Snapshot) error {
		p.Current = c.SpecializationID
		for _, s := range svc.cat.SpecializationsOf(c.LocationID) {
			r := requirement.ForSpecialization(svc.cat, snap, s)
			p.Options = append(p.Options, SpecializationOption{
				Specialization: s,
				Requirements:   r,
				Available:      c.SpecializationID == nil && r.Satisfied(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, wrap("specializations", err)
	}
	return &p, nil
}
