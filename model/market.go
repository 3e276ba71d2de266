package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketListing is an item stack offered for sale. The listed quantity is
// removed from the seller's inventory while the listing exists.
type MarketListing struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID     int64           `gorm:"index:idx_listing_seller;not null" json:"seller_id"`
	ItemID       string          `gorm:"size:64;not null" json:"item_id"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	PricePerUnit decimal.Decimal `gorm:"type:decimal(38,0);not null" json:"price_per_unit"`
	ExpiresAt    time.Time       `gorm:"index:idx_listing_browse;not null" json:"expires_at"`
	IsActive     bool            `gorm:"index:idx_listing_browse;not null" json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// MarketTransaction is an immutable ledger entry for one completed purchase.
type MarketTransaction struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID  int64           `gorm:"index;not null" json:"listing_id"`
	BuyerID    int64           `gorm:"index:idx_tx_buyer;not null" json:"buyer_id"`
	SellerID   int64           `gorm:"index:idx_tx_seller;not null" json:"seller_id"`
	ItemID     string          `gorm:"size:64;not null" json:"item_id"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(38,0);not null" json:"total_price"`
	Fee        decimal.Decimal `gorm:"type:decimal(38,0);not null" json:"fee"`
	CreatedAt  time.Time       `json:"created_at"`
}
