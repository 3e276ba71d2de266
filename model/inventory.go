package model

import "time"

// Inventory is one item stack in a character's bag.
type Inventory struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CharID    int64     `gorm:"uniqueIndex:idx_char_item;not null" json:"char_id"`
	ItemID    string    `gorm:"uniqueIndex:idx_char_item;size:64;not null" json:"item_id"`
	Qty       int       `gorm:"not null" json:"qty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Equipment is the item worn in one slot. Equipped items leave the bag.
type Equipment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CharID    int64     `gorm:"uniqueIndex:idx_char_slot;not null" json:"char_id"`
	Slot      string    `gorm:"uniqueIndex:idx_char_slot;size:32;not null" json:"slot"`
	ItemID    string    `gorm:"size:64;not null" json:"item_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
