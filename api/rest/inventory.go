package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/scholarquest/game/item"
	mw "github.com/kasuganosora/scholarquest/middleware"
)

// InventoryHandler handles bag and equipment endpoints.
type InventoryHandler struct {
	responder
	items *item.Service
}

// NewInventoryHandler creates an InventoryHandler.
func NewInventoryHandler(r responder, items *item.Service) *InventoryHandler {
	return &InventoryHandler{responder: r, items: items}
}

// List handles GET /api/inventory.
func (h *InventoryHandler) List(c *gin.Context) {
	stacks, err := h.items.List(c.Request.Context(), mw.GetCharID(c))
	h.reply(c, "inventory.list", http.StatusOK, gin.H{"items": stacks}, err)
}

// Equipment handles GET /api/equipment.
func (h *InventoryHandler) Equipment(c *gin.Context) {
	eq, err := h.items.Equipment(c.Request.Context(), mw.GetCharID(c))
	h.reply(c, "equipment.list", http.StatusOK, gin.H{"equipment": eq}, err)
}

type equipRequest struct {
	ItemID string `json:"item_id" binding:"required"`
}

// Equip handles POST /api/equipment.
func (h *InventoryHandler) Equip(c *gin.Context) {
	var req equipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	eq, err := h.items.Equip(c.Request.Context(), mw.GetCharID(c), req.ItemID)
	h.reply(c, "equipment.equip", http.StatusOK, eq, err)
}

// Unequip handles DELETE /api/equipment/:slot.
func (h *InventoryHandler) Unequip(c *gin.Context) {
	err := h.items.Unequip(c.Request.Context(), mw.GetCharID(c), c.Param("slot"))
	h.reply(c, "equipment.unequip", http.StatusOK, gin.H{"message": "unequipped"}, err)
}
