// Package item manages inventories, equipment slots and random item drops.
package item

import (
	"context"
	"fmt"

	"github.com/kasuganosora/scholarquest/catalog"
	"github.com/kasuganosora/scholarquest/game/dice"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/kasuganosora/scholarquest/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxStack caps a single inventory stack.
const maxStack = 9999

// Service handles bag and equipment operations.
type Service struct {
	db     *gorm.DB
	cat    *catalog.Catalog
	logger *zap.Logger
}

// NewService creates a new item Service.
func NewService(db *gorm.DB, cat *catalog.Catalog, logger *zap.Logger) *Service {
	return &Service{db: db, cat: cat, logger: logger}
}

// Stack is an inventory row joined with its definition.
type Stack struct {
	ItemID string        `json:"item_id"`
	Qty    int           `json:"qty"`
	Item   *catalog.Item `json:"item"`
}

// Add puts qty of itemID into charID's bag, stacking with any existing row.
func (svc *Service) Add(tx *gorm.DB, charID int64, itemID string, qty int) error {
	if qty <= 0 {
		return gameerr.Invalid("quantity must be positive")
	}
	if _, ok := svc.cat.Item(itemID); !ok {
		return gameerr.NotFound("item %q not found", itemID)
	}
	row := &model.Inventory{CharID: charID, ItemID: itemID, Qty: qty}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "char_id"}, {Name: "item_id"}},
		DoUpdates: clause.Assignments(map[string]any{"qty": gorm.Expr("inventories.qty + ?", qty)}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("add item: %w", err)
	}
	var n int
	if err := tx.Model(&model.Inventory{}).Select("qty").
		Where("char_id = ? AND item_id = ?", charID, itemID).Scan(&n).Error; err != nil {
		return fmt.Errorf("add item: %w", err)
	}
	if n > maxStack {
		return gameerr.Precondition("inventory stack full", gameerr.Detail{
			Clause:  "stack",
			Subject: itemID,
			Message: fmt.Sprintf("a stack holds at most %d", maxStack),
		})
	}
	return nil
}

// Remove takes qty of itemID out of the bag. The decrement is conditioned
// on the stack still holding qty, and empty stacks are deleted.
func (svc *Service) Remove(tx *gorm.DB, charID int64, itemID string, qty int) error {
	if qty <= 0 {
		return gameerr.Invalid("quantity must be positive")
	}
	res := tx.Model(&model.Inventory{}).
		Where("char_id = ? AND item_id = ? AND qty >= ?", charID, itemID, qty).
		Update("qty", gorm.Expr("qty - ?", qty))
	if res.Error != nil {
		return fmt.Errorf("remove item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		have, err := svc.Count(tx, charID, itemID)
		if err != nil {
			return err
		}
		return gameerr.Precondition("not enough items", gameerr.Detail{
			Clause:   "inventory",
			Subject:  itemID,
			Current:  fmt.Sprint(have),
			Required: fmt.Sprint(qty),
			Message:  fmt.Sprintf("have %d of %s, need %d", have, itemID, qty),
		})
	}
	if err := tx.Where("char_id = ? AND item_id = ? AND qty <= 0", charID, itemID).
		Delete(&model.Inventory{}).Error; err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	return nil
}

// Count returns how many of itemID the bag holds.
func (svc *Service) Count(tx *gorm.DB, charID int64, itemID string) (int, error) {
	var rows []model.Inventory
	if err := tx.Where("char_id = ? AND item_id = ?", charID, itemID).Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	n := 0
	for _, r := range rows {
		n += r.Qty
	}
	return n, nil
}

// List returns the bag contents ordered by item ID.
func (svc *Service) List(ctx context.Context, charID int64) ([]Stack, error) {
	var rows []model.Inventory
	if err := svc.db.WithContext(ctx).Where("char_id = ? AND qty > 0", charID).Order("item_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	out := make([]Stack, 0, len(rows))
	for _, r := range rows {
		def, _ := svc.cat.Item(r.ItemID)
		out = append(out, Stack{ItemID: r.ItemID, Qty: r.Qty, Item: def})
	}
	return out, nil
}

// RandomOfRarity picks a uniform item of the given rarity, or nil if the
// catalog has none.
func (svc *Service) RandomOfRarity(r dice.Roller, rarity catalog.Rarity) *catalog.Item {
	items := svc.cat.ItemsByRarity(rarity)
	if len(items) == 0 {
		return nil
	}
	return items[dice.Pick(r, len(items))]
}

// RandomDrop rolls a rarity from a drop table and picks an item of it.
func (svc *Service) RandomDrop(r dice.Roller, table string) *catalog.Item {
	keys, weights := svc.cat.DropWeights(table)
	rarity := dice.Weighted(r, keys, weights)
	if rarity == "" {
		return nil
	}
	return svc.RandomOfRarity(r, catalog.Rarity(rarity))
}

// Drop is an item granted by a game action.
type Drop struct {
	ItemID string         `json:"item_id"`
	Name   string         `json:"name"`
	Rarity catalog.Rarity `json:"rarity"`
}

// Grant adds one of it to the bag and describes the drop.
func (svc *Service) Grant(tx *gorm.DB, charID int64, it *catalog.Item) (*Drop, error) {
	if it == nil {
		return nil, nil
	}
	if err := svc.Add(tx, charID, it.ID, 1); err != nil {
		return nil, err
	}
	svc.logger.Debug("item dropped", zap.Int64("char_id", charID), zap.String("item_id", it.ID))
	return &Drop{ItemID: it.ID, Name: it.Name, Rarity: it.Rarity}, nil
}
