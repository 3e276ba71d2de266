package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/scholarquest/game/craft"
	mw "github.com/kasuganosora/scholarquest/middleware"
)

// CraftHandler handles recipe endpoints.
type CraftHandler struct {
	responder
	craft *craft.Service
}

// NewCraftHandler creates a CraftHandler.
func NewCraftHandler(r responder, svc *craft.Service) *CraftHandler {
	return &CraftHandler{responder: r, craft: svc}
}

// Recipes handles GET /api/crafting/recipes.
func (h *CraftHandler) Recipes(c *gin.Context) {
	list, err := h.craft.Recipes(c.Request.Context(), mw.GetCharID(c))
	h.reply(c, "craft.recipes", http.StatusOK, gin.H{"recipes": list}, err)
}

type craftRequest struct {
	RecipeID string `json:"recipe_id" binding:"required"`
	Quantity int    `json:"quantity"`
}

// Craft handles POST /api/crafting/craft. Quantity defaults to 1.
func (h *CraftHandler) Craft(c *gin.Context) {
	var req craftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	res, err := h.craft.Craft(c.Request.Context(), mw.GetCharID(c), req.RecipeID, req.Quantity)
	h.reply(c, "craft.craft", http.StatusOK, res, err)
}
