package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/scholarquest/game/market"
	mw "github.com/kasuganosora/scholarquest/middleware"
	"github.com/shopspring/decimal"
)

// MarketHandler handles player market endpoints.
type MarketHandler struct {
	responder
	market *market.Service
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(r responder, m *market.Service) *MarketHandler {
	return &MarketHandler{responder: r, market: m}
}

// Browse handles GET /api/market?item_id=&rarity=&limit=&offset=.
func (h *MarketHandler) Browse(c *gin.Context) {
	var f market.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err.Error())
		return
	}
	page, err := h.market.Browse(c.Request.Context(), mw.GetCharID(c), f)
	h.reply(c, "market.browse", http.StatusOK, page, err)
}

// Mine handles GET /api/market/mine.
func (h *MarketHandler) Mine(c *gin.Context) {
	ls, err := h.market.Mine(c.Request.Context(), mw.GetCharID(c))
	h.reply(c, "market.mine", http.StatusOK, gin.H{"listings": ls}, err)
}

// History handles GET /api/market/history.
func (h *MarketHandler) History(c *gin.Context) {
	hist, err := h.market.History(c.Request.Context(), mw.GetCharID(c))
	h.reply(c, "market.history", http.StatusOK, gin.H{"transactions": hist}, err)
}

type createListingRequest struct {
	ItemID       string          `json:"item_id" binding:"required"`
	Quantity     int             `json:"quantity" binding:"required"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

// Create handles POST /api/market.
func (h *MarketHandler) Create(c *gin.Context) {
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	l, err := h.market.Create(c.Request.Context(), mw.GetCharID(c), req.ItemID, req.Quantity, req.PricePerUnit)
	h.reply(c, "market.create", http.StatusCreated, l, err)
}

type buyRequest struct {
	// Zero buys everything left on the listing.
	Quantity int `json:"quantity"`
}

// Buy handles POST /api/market/:id/buy.
func (h *MarketHandler) Buy(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req buyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	p, err := h.market.Buy(c.Request.Context(), mw.GetCharID(c), id, req.Quantity)
	h.reply(c, "market.buy", http.StatusOK, p, err)
}

// Cancel handles DELETE /api/market/:id.
func (h *MarketHandler) Cancel(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	l, err := h.market.Cancel(c.Request.Context(), mw.GetCharID(c), id)
	h.reply(c, "market.cancel", http.StatusOK, l, err)
}
