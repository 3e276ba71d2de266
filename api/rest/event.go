package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/scholarquest/game/event"
	mw "github.com/kasuganosora/scholarquest/middleware"
)

// EventHandler handles ranked event endpoints.
type EventHandler struct {
	responder
	events *event.Service
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(r responder, ev *event.Service) *EventHandler {
	return &EventHandler{responder: r, events: ev}
}

// Current handles GET /api/events/current.
func (h *EventHandler) Current(c *gin.Context) {
	v, err := h.events.Current(c.Request.Context(), mw.GetCharID(c))
	h.reply(c, "event.current", http.StatusOK, gin.H{"event": v}, err)
}

// Get handles GET /api/events/:id.
func (h *EventHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	v, err := h.events.Get(c.Request.Context(), id, mw.GetCharID(c))
	h.reply(c, "event.get", http.StatusOK, v, err)
}

// Join handles POST /api/events/:id/join.
func (h *EventHandler) Join(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p, err := h.events.Join(c.Request.Context(), mw.GetCharID(c), id)
	h.reply(c, "event.join", http.StatusCreated, p, err)
}

// Rank handles GET /api/events/:id/rank.
func (h *EventHandler) Rank(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	st, err := h.events.Rank(c.Request.Context(), mw.GetCharID(c), id)
	h.reply(c, "event.rank", http.StatusOK, st, err)
}

// Claim handles POST /api/events/:id/claim.
func (h *EventHandler) Claim(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := h.events.Claim(c.Request.Context(), mw.GetCharID(c), id)
	h.reply(c, "event.claim", http.StatusOK, res, err)
}

// Leaderboard handles GET /api/events/:id/leaderboard?limit=&offset=.
func (h *EventHandler) Leaderboard(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	lb, err := h.events.Leaderboard(c.Request.Context(), id, limit, offset)
	h.reply(c, "event.leaderboard", http.StatusOK, lb, err)
}
