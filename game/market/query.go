package market

import (
	"context"

	"github.com/kasuganosora/scholarquest/catalog"
	"github.com/kasuganosora/scholarquest/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Listing is a listing joined with its item definition and seller name.
type Listing struct {
	model.MarketListing
	Item       *catalog.Item   `json:"item"`
	SellerName string          `json:"seller_name"`
	TotalPrice decimal.Decimal `json:"total_price"`
	IsOwn      bool            `json:"is_own"`
	Expired    bool            `json:"expired"`
}

// Filter narrows Browse.
type Filter struct {
	ItemID string         `form:"item_id"`
	Rarity catalog.Rarity `form:"rarity"`
	Limit  int            `form:"limit"`
	Offset int            `form:"offset"`
}

// Page is one page of browse results.
type Page struct {
	Listings []Listing `json:"listings"`
	Total    int64     `json:"total"`
}

// Browse lists active, unexpired, non-empty listings from every seller,
// newest first. viewerID only marks the viewer's own listings.
func (svc *Service) Browse(ctx context.Context, viewerID int64, f Filter) (*Page, error) {
	now := svc.chars.Clock().Now()
	q := svc.db.WithContext(ctx).Model(&model.MarketListing{}).
		Where("is_active = ? AND expires_at > ? AND quantity > 0", true, now)
	if f.ItemID != "" {
		q = q.Where("item_id = ?", f.ItemID)
	}
	if f.Rarity != "" {
		items := svc.cat.ItemsByRarity(f.Rarity)
		ids := make([]string, len(items))
		for i, it := range items {
			ids[i] = it.ID
		}
		if len(ids) == 0 {
			return &Page{Listings: []Listing{}}, nil
		}
		q = q.Where("item_id IN ?", ids)
	}

	q = q.Session(&gorm.Session{})
	page := &Page{}
	if err := q.Count(&page.Total).Error; err != nil {
		return nil, wrap("browse listings", err)
	}
	limit := f.Limit
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	var rows []model.MarketListing
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(max(0, f.Offset)).Find(&rows).Error; err != nil {
		return nil, wrap("browse listings", err)
	}
	listings, err := svc.decorate(ctx, rows, viewerID)
	if err != nil {
		return nil, err
	}
	page.Listings = listings
	return page, nil
}

// Mine lists every listing sellerID created, newest first, flagging
// those past their expiry.
func (svc *Service) Mine(ctx context.Context, sellerID int64) ([]Listing, error) {
	var rows []model.MarketListing
	if err := svc.db.WithContext(ctx).Where("seller_id = ?", sellerID).
		Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, wrap("my listings", err)
	}
	return svc.decorate(ctx, rows, sellerID)
}

func (svc *Service) decorate(ctx context.Context, rows []model.MarketListing, viewerID int64) ([]Listing, error) {
	names, err := svc.sellerNames(ctx, rows)
	if err != nil {
		return nil, err
	}
	now := svc.chars.Clock().Now()
	out := make([]Listing, 0, len(rows))
	for _, r := range rows {
		def, _ := svc.cat.Item(r.ItemID)
		out = append(out, Listing{
			MarketListing: r,
			Item:          def,
			SellerName:    names[r.SellerID],
			TotalPrice:    r.PricePerUnit.Mul(decimal.NewFromInt(int64(r.Quantity))),
			IsOwn:         r.SellerID == viewerID,
			Expired:       expired(&r, now),
		})
	}
	return out, nil
}

func (svc *Service) sellerNames(ctx context.Context, rows []model.MarketListing) (map[int64]string, error) {
	names := make(map[int64]string)
	if len(rows) == 0 {
		return names, nil
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.SellerID)
	}
	var chars []model.Character
	if err := svc.db.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&chars).Error; err != nil {
		return nil, wrap("load sellers", err)
	}
	for _, c := range chars {
		names[c.ID] = c.Name
	}
	return names, nil
}

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// HistoryEntry is a transaction from one character's side. NetCash is
// negative for purchases and the amount received after the fee for sales.
type HistoryEntry struct {
	model.MarketTransaction
	Role     Role            `json:"role"`
	ItemName string          `json:"item_name"`
	NetCash  decimal.Decimal `json:"net_cash"`
}

// History returns the most recent transactions charID took part in.
func (svc *Service) History(ctx context.Context, charID int64) ([]HistoryEntry, error) {
	limit := svc.cfg.HistoryLimit
	if limit <= 0 {
		limit = 50
	}
	var rows []model.MarketTransaction
	if err := svc.db.WithContext(ctx).
		Where("buyer_id = ? OR seller_id = ?", charID, charID).
		Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, wrap("market history", err)
	}
	out := make([]HistoryEntry, 0, len(rows))
	for _, t := range rows {
		e := HistoryEntry{MarketTransaction: t, ItemName: t.ItemID}
		if def, ok := svc.cat.Item(t.ItemID); ok {
			e.ItemName = def.Name
		}
		if t.BuyerID == charID {
			e.Role, e.NetCash = RoleBuyer, t.TotalPrice.Neg()
		} else {
			e.Role, e.NetCash = RoleSeller, t.TotalPrice.Sub(t.Fee)
		}
		out = append(out, e)
	}
	return out, nil
}
