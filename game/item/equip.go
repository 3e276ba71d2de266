package item

import (
	"context"
	"errors"
	"fmt"

	"github.com/kasuganosora/scholarquest/catalog"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/kasuganosora/scholarquest/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Equip moves one itemID from the bag into its slot. An item already in
// that slot goes back to the bag.
func (svc *Service) Equip(ctx context.Context, charID int64, itemID string) (*model.Equipment, error) {
	def, ok := svc.cat.Item(itemID)
	if !ok {
		return nil, gameerr.NotFound("item %q not found", itemID)
	}
	var eq model.Equipment
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := svc.Remove(tx, charID, itemID, 1); err != nil {
			return err
		}
		err := tx.Where("char_id = ? AND slot = ?", charID, def.Slot).First(&eq).Error
		switch {
		case err == nil:
			if err := svc.Add(tx, charID, eq.ItemID, 1); err != nil {
				return err
			}
			eq.ItemID = itemID
			return tx.Model(&eq).Update("item_id", itemID).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			eq = model.Equipment{CharID: charID, Slot: def.Slot, ItemID: itemID}
			return tx.Create(&eq).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, wrap("equip", err)
	}
	svc.logger.Info("item equipped",
		zap.Int64("char_id", charID), zap.String("item_id", itemID), zap.String("slot", def.Slot))
	return &eq, nil
}

// Unequip returns the item in slot to the bag.
func (svc *Service) Unequip(ctx context.Context, charID int64, slot string) error {
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var eq model.Equipment
		if err := tx.Where("char_id = ? AND slot = ?", charID, slot).First(&eq).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gameerr.NotFound("nothing equipped in %s", slot)
			}
			return err
		}
		if err := tx.Delete(&eq).Error; err != nil {
			return err
		}
		return svc.Add(tx, charID, eq.ItemID, 1)
	})
	return wrap("unequip", err)
}

// Equipment lists the equipped items.
func (svc *Service) Equipment(ctx context.Context, charID int64) ([]model.Equipment, error) {
	var rows []model.Equipment
	err := svc.db.WithContext(ctx).Where("char_id = ?", charID).Order("slot").Find(&rows).Error
	return rows, wrap("list equipment", err)
}

// Bonuses sums the stats of every equipped item.
func (svc *Service) Bonuses(tx *gorm.DB, charID int64) (catalog.ItemStats, error) {
	return SumBonuses(tx, svc.cat, charID)
}

// SumBonuses sums the stats of every item charID has equipped.
func SumBonuses(tx *gorm.DB, cat *catalog.Catalog, charID int64) (catalog.ItemStats, error) {
	var rows []model.Equipment
	if err := tx.Where("char_id = ?", charID).Find(&rows).Error; err != nil {
		return catalog.ItemStats{}, fmt.Errorf("load equipment: %w", err)
	}
	var total catalog.ItemStats
	for _, r := range rows {
		if def, ok := cat.Item(r.ItemID); ok {
			total = total.Add(def.Stats)
		}
	}
	return total, nil
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
