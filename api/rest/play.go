package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/scholarquest/game/daily"
	"github.com/kasuganosora/scholarquest/game/grade"
	"github.com/kasuganosora/scholarquest/game/olympiad"
	"github.com/kasuganosora/scholarquest/game/quest"
	"github.com/kasuganosora/scholarquest/game/study"
	mw "github.com/kasuganosora/scholarquest/middleware"
)

// PlayHandler handles the repeatable actions: study, quests, olympiads
// and the daily reward.
type PlayHandler struct {
	responder
	study     *study.Service
	quests    *quest.Service
	olympiads *olympiad.Service
	daily     *daily.Service
}

// NewPlayHandler creates a PlayHandler.
func NewPlayHandler(r responder, st *study.Service, q *quest.Service, o *olympiad.Service, d *daily.Service) *PlayHandler {
	return &PlayHandler{responder: r, study: st, quests: q, olympiads: o, daily: d}
}

// Study handles POST /api/study?system=.
func (h *PlayHandler) Study(c *gin.Context) {
	system, err := grade.ParseSystem(c.Query("system"))
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.study.Study(c.Request.Context(), mw.GetCharID(c), system)
	h.reply(c, "study", http.StatusOK, res, err)
}

// Quests handles GET /api/quests.
func (h *PlayHandler) Quests(c *gin.Context) {
	b, err := h.quests.Available(c.Request.Context(), mw.GetCharID(c))
	h.reply(c, "quest.list", http.StatusOK, b, err)
}

// StartQuest handles POST /api/quests/:id/start.
func (h *PlayHandler) StartQuest(c *gin.Context) {
	res, err := h.quests.Start(c.Request.Context(), mw.GetCharID(c), c.Param("id"))
	h.reply(c, "quest.start", http.StatusOK, res, err)
}

// Olympiads handles GET /api/olympiads.
func (h *PlayHandler) Olympiads(c *gin.Context) {
	b, err := h.olympiads.List(c.Request.Context(), mw.GetCharID(c))
	h.reply(c, "olympiad.list", http.StatusOK, b, err)
}

// Battle handles POST /api/olympiads/:id/battle.
func (h *PlayHandler) Battle(c *gin.Context) {
	res, err := h.olympiads.Battle(c.Request.Context(), mw.GetCharID(c), c.Param("id"))
	h.reply(c, "olympiad.battle", http.StatusOK, res, err)
}

// DailyStatus handles GET /api/daily.
func (h *PlayHandler) DailyStatus(c *gin.Context) {
	st, err := h.daily.Status(c.Request.Context(), mw.GetCharID(c))
	h.reply(c, "daily.status", http.StatusOK, st, err)
}

// ClaimDaily handles POST /api/daily/claim.
func (h *PlayHandler) ClaimDaily(c *gin.Context) {
	res, err := h.daily.Claim(c.Request.Context(), mw.GetCharID(c))
	h.reply(c, "daily.claim", http.StatusOK, res, err)
}
