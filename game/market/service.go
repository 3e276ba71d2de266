// Package market is the player-to-player item exchange. Listed quantity
// leaves the seller's bag when the listing is created and only comes back
// through cancellation.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kasuganosora/scholarquest/audit"
	"github.com/kasuganosora/scholarquest/cache"
	"github.com/kasuganosora/scholarquest/catalog"
	"github.com/kasuganosora/scholarquest/config"
	"github.com/kasuganosora/scholarquest/game/character"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/kasuganosora/scholarquest/game/item"
	"github.com/kasuganosora/scholarquest/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SoldChannel receives a SaleNotice for every completed purchase.
const SoldChannel = "market.sold"

var hundred = decimal.NewFromInt(100)

// Service handles listings and purchases.
type Service struct {
	db     *gorm.DB
	chars  *character.Service
	items  *item.Service
	cat    *catalog.Catalog
	pubsub cache.PubSub
	audit  audit.Recorder
	cfg    config.MarketConfig
	logger *zap.Logger
}

// NewService creates a market Service. pubsub may be nil.
func NewService(db *gorm.DB, chars *character.Service, items *item.Service, ps cache.PubSub,
	rec audit.Recorder, cfg config.MarketConfig, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		chars:  chars,
		items:  items,
		cat:    chars.Catalog(),
		pubsub: ps,
		audit:  rec,
		cfg:    cfg,
		logger: logger,
	}
}

// Fee returns ceil(total * feePercent / 100).
func Fee(total decimal.Decimal, feePercent int) decimal.Decimal {
	return total.Mul(decimal.NewFromInt(int64(feePercent))).Div(hundred).Ceil()
}

// Create moves qty of a tradeable item from the seller's bag into a new
// listing that expires after the configured number of days.
func (svc *Service) Create(ctx context.Context, sellerID int64, itemID string, qty int, price decimal.Decimal) (*model.MarketListing, error) {
	if qty <= 0 {
		return nil, gameerr.Invalid("quantity must be positive")
	}
	if !price.IsPositive() || !price.Equal(price.Floor()) {
		return nil, gameerr.Invalid("price must be a positive whole amount")
	}
	if price.Mul(decimal.NewFromInt(int64(qty))).GreaterThan(character.MaxCash) {
		return nil, gameerr.Invalid("listing total exceeds the cash limit")
	}
	def, ok := svc.cat.Item(itemID)
	if !ok {
		return nil, gameerr.NotFound("item %q not found", itemID)
	}
	if !def.Tradeable {
		return nil, gameerr.Precondition("item cannot be traded", gameerr.Detail{
			Clause:  "tradeable",
			Subject: itemID,
			Message: def.Name + " cannot be traded",
		})
	}

	now := svc.chars.Clock().Now()
	l := &model.MarketListing{
		SellerID:     sellerID,
		ItemID:       itemID,
		Quantity:     qty,
		PricePerUnit: price,
		ExpiresAt:    now.AddDate(0, 0, svc.cfg.ListingDays),
		IsActive:     true,
		CreatedAt:    now,
	}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := svc.chars.Load(tx, sellerID); err != nil {
			return err
		}
		if err := svc.items.Remove(tx, sellerID, itemID, qty); err != nil {
			return err
		}
		return tx.Create(l).Error
	})
	if err != nil {
		return nil, wrap("create listing", err)
	}
	svc.audit.Log(ctx, audit.Entry{CharID: sellerID, Action: "market.create", Detail: l})
	svc.logger.Info("listing created",
		zap.Int64("char_id", sellerID), zap.Int64("listing_id", l.ID),
		zap.String("item_id", itemID), zap.Int("qty", qty), zap.String("price", price.String()))
	return l, nil
}

// Purchase is the outcome of a buy.
type Purchase struct {
	Transaction    *model.MarketTransaction `json:"transaction"`
	SellerReceived decimal.Decimal          `json:"seller_received"`
	Remaining      int                      `json:"remaining"`
	ListingClosed  bool                     `json:"listing_closed"`
}

// SaleNotice is published on SoldChannel.
type SaleNotice struct {
	ListingID  int64           `json:"listing_id"`
	SellerID   int64           `json:"seller_id"`
	BuyerID    int64           `json:"buyer_id"`
	ItemID     string          `json:"item_id"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Fee        decimal.Decimal `json:"fee"`
}

// Buy purchases qty units of a listing; qty 0 buys everything left. The
// buyer is debited the total, the seller credited the total minus the fee
// and the listing decremented only if it still holds qty at commit.
func (svc *Service) Buy(ctx context.Context, buyerID, listingID int64, qty int) (*Purchase, error) {
	if qty < 0 {
		return nil, gameerr.Invalid("quantity must be positive")
	}
	var p *Purchase
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := svc.load(tx, listingID)
		if err != nil {
			return err
		}
		if !l.IsActive {
			return gameerr.NotFound("listing %d is no longer active", listingID)
		}
		if expired(l, svc.chars.Clock().Now()) {
			return gameerr.Expired("listing %d has expired", listingID)
		}
		if l.SellerID == buyerID {
			return gameerr.Conflict("cannot buy your own listing")
		}
		if qty == 0 {
			qty = l.Quantity
		}
		if qty > l.Quantity {
			return quantityErr(l.Quantity, qty)
		}
		if _, err := svc.chars.Load(tx, buyerID); err != nil {
			return err
		}

		total := l.PricePerUnit.Mul(decimal.NewFromInt(int64(qty)))
		fee := Fee(total, svc.cfg.FeePercent)
		if err := svc.chars.DebitCash(tx, buyerID, total); err != nil {
			return err
		}
		if err := svc.chars.CreditCash(tx, l.SellerID, total.Sub(fee)); err != nil {
			return err
		}
		if err := svc.items.Add(tx, buyerID, l.ItemID, qty); err != nil {
			return err
		}

		res := tx.Model(&model.MarketListing{}).
			Where("id = ? AND is_active = ? AND quantity >= ?", l.ID, true, qty).
			Update("quantity", gorm.Expr("quantity - ?", qty))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gameerr.Conflict("listing %d changed, try again", listingID)
		}
		remaining := l.Quantity - qty
		if remaining == 0 {
			if err := tx.Model(&model.MarketListing{}).Where("id = ? AND quantity = 0", l.ID).
				Update("is_active", false).Error; err != nil {
				return err
			}
		}

		t := &model.MarketTransaction{
			ListingID:  l.ID,
			BuyerID:    buyerID,
			SellerID:   l.SellerID,
			ItemID:     l.ItemID,
			Quantity:   qty,
			TotalPrice: total,
			Fee:        fee,
			CreatedAt:  svc.chars.Clock().Now(),
		}
		if err := tx.Create(t).Error; err != nil {
			return err
		}
		p = &Purchase{Transaction: t, SellerReceived: total.Sub(fee), Remaining: remaining, ListingClosed: remaining == 0}
		return nil
	})
	if err != nil {
		return nil, wrap("buy listing", err)
	}

	t := p.Transaction
	svc.audit.Log(ctx, audit.Entry{CharID: buyerID, Action: "market.buy", Detail: t})
	svc.notify(ctx, SaleNotice{
		ListingID:  t.ListingID,
		SellerID:   t.SellerID,
		BuyerID:    t.BuyerID,
		ItemID:     t.ItemID,
		Quantity:   t.Quantity,
		TotalPrice: t.TotalPrice,
		Fee:        t.Fee,
	})
	svc.logger.Info("listing sold",
		zap.Int64("char_id", buyerID), zap.Int64("seller_id", t.SellerID), zap.Int64("listing_id", t.ListingID),
		zap.Int("qty", t.Quantity), zap.String("total", t.TotalPrice.String()), zap.String("fee", t.Fee.String()))
	return p, nil
}

// Cancel closes an active listing owned by sellerID and returns the
// remaining quantity to the seller's bag. Expired listings can still be
// cancelled.
func (svc *Service) Cancel(ctx context.Context, sellerID, listingID int64) (*model.MarketListing, error) {
	var l *model.MarketListing
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if l, err = svc.load(tx, listingID); err != nil {
			return err
		}
		if l.SellerID != sellerID {
			return gameerr.Conflict("listing %d is not yours", listingID)
		}
		if !l.IsActive {
			return gameerr.Conflict("listing %d is already inactive", listingID)
		}
		res := tx.Model(&model.MarketListing{}).
			Where("id = ? AND is_active = ? AND quantity = ?", l.ID, true, l.Quantity).
			Updates(map[string]any{"is_active": false, "quantity": 0})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gameerr.Conflict("listing %d changed, try again", listingID)
		}
		if l.Quantity > 0 {
			if err := svc.items.Add(tx, sellerID, l.ItemID, l.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrap("cancel listing", err)
	}
	returned := l.Quantity
	l.IsActive, l.Quantity = false, 0
	svc.audit.Log(ctx, audit.Entry{CharID: sellerID, Action: "market.cancel", Detail: map[string]any{
		"listing_id": listingID, "item_id": l.ItemID, "returned": returned,
	}})
	svc.logger.Info("listing cancelled",
		zap.Int64("char_id", sellerID), zap.Int64("listing_id", listingID), zap.Int("returned", returned))
	return l, nil
}

func (svc *Service) load(tx *gorm.DB, listingID int64) (*model.MarketListing, error) {
	var l model.MarketListing
	if err := tx.First(&l, listingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gameerr.NotFound("listing %d not found", listingID)
		}
		return nil, err
	}
	return &l, nil
}

func (svc *Service) notify(ctx context.Context, n SaleNotice) {
	if svc.pubsub == nil {
		return
	}
	payload, err := json.Marshal(n)
	if err == nil {
		err = svc.pubsub.Publish(ctx, SoldChannel, string(payload))
	}
	if err != nil {
		svc.logger.Warn("publish sale failed", zap.Int64("listing_id", n.ListingID), zap.Error(err))
	}
}

func quantityErr(have, want int) error {
	return gameerr.Precondition("not enough items available", gameerr.Detail{
		Clause:   "listing_quantity",
		Current:  strconv.Itoa(have),
		Required: strconv.Itoa(want),
		Message:  fmt.Sprintf("only %d left, wanted %d", have, want),
	})
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

func expired(l *model.MarketListing, now time.Time) bool {
	return !l.ExpiresAt.After(now)
}
