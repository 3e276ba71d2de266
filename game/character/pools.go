package character

import (
	"github.com/kasuganosora/scholarquest/game/energy"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/kasuganosora/scholarquest/model"
	"gorm.io/gorm"
)

type PoolKind string

const (
	StudyPool    PoolKind = "study"
	OlympiadPool PoolKind = "olympiad"
)

// Pool returns a character's pool as an energy.Pool.
func (svc *Service) Pool(c *model.Character, kind PoolKind) energy.Pool {
	if kind == OlympiadPool {
		return energy.Pool{
			Value:     c.OlympiadEnergy,
			Max:       c.OlympiadEnergyMax,
			LastRegen: c.OlympiadRegenAt,
			Interval:  svc.cfg.OlympiadEnergy.Regen,
		}
	}
	return energy.Pool{
		Value:     c.StudyEnergy,
		Max:       c.StudyEnergyMax,
		LastRegen: c.StudyRegenAt,
		Interval:  svc.cfg.StudyEnergy.Regen,
	}
}

func setPool(c *model.Character, kind PoolKind, p energy.Pool) {
	if kind == OlympiadPool {
		c.OlympiadEnergy, c.OlympiadRegenAt = p.Value, p.LastRegen
		return
	}
	c.StudyEnergy, c.StudyRegenAt = p.Value, p.LastRegen
}

func poolColumns(kind PoolKind) (value, regenAt string) {
	if kind == OlympiadPool {
		return "olympiad_energy", "olympiad_regen_at"
	}
	return "study_energy", "study_regen_at"
}

// Regen brings both pools up to the current time and persists any change.
func (svc *Service) Regen(tx *gorm.DB, c *model.Character) error {
	now := svc.clk.Now()
	for _, kind := range []PoolKind{StudyPool, OlympiadPool} {
		before := svc.Pool(c, kind)
		after := energy.Regen(before, now)
		if after == before {
			continue
		}
		if err := svc.writePool(tx, c, kind, before, after); err != nil {
			return err
		}
	}
	return nil
}

// Spend regenerates the pool, checks it covers cost and debits it. The
// write is conditioned on the value read so concurrent spends cannot both
// succeed against the same energy.
func (svc *Service) Spend(tx *gorm.DB, c *model.Character, kind PoolKind, cost int) error {
	before := svc.Pool(c, kind)
	after, err := energy.Spend(before, cost, svc.clk.Now())
	if err != nil {
		return err
	}
	return svc.writePool(tx, c, kind, before, after)
}

// Refill fills a pool and restarts its regen window.
func (svc *Service) Refill(tx *gorm.DB, c *model.Character, kind PoolKind) error {
	before := svc.Pool(c, kind)
	return svc.writePool(tx, c, kind, before, energy.Refill(before, svc.clk.Now()))
}

// AddEnergy credits a pool up to its maximum.
func (svc *Service) AddEnergy(tx *gorm.DB, c *model.Character, kind PoolKind, amount int) error {
	before := energy.Regen(svc.Pool(c, kind), svc.clk.Now())
	return svc.writePool(tx, c, kind, svc.Pool(c, kind), energy.Add(before, amount))
}

func (svc *Service) writePool(tx *gorm.DB, c *model.Character, kind PoolKind, before, after energy.Pool) error {
	valueCol, regenCol := poolColumns(kind)
	res := tx.Model(&model.Character{}).
		Where("id = ? AND "+valueCol+" = ?", c.ID, before.Value).
		Updates(map[string]any{valueCol: after.Value, regenCol: after.LastRegen})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gameerr.Conflict("%s energy changed concurrently", kind)
	}
	setPool(c, kind, after)
	return nil
}
