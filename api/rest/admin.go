package rest

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/scholarquest/game/debug"
	"github.com/kasuganosora/scholarquest/game/event"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/kasuganosora/scholarquest/scheduler"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	responder
	debug   *debug.Service
	events  *event.Service
	rotator *event.Rotator
	sched   *scheduler.Scheduler
}

// NewAdminHandler creates an AdminHandler. sched may be nil.
func NewAdminHandler(r responder, dbg *debug.Service, ev *event.Service, rot *event.Rotator, sched *scheduler.Scheduler) *AdminHandler {
	return &AdminHandler{responder: r, debug: dbg, events: ev, rotator: rot, sched: sched}
}

// Config reports the runtime toggles and scheduled jobs.
// GET /api/admin/config
func (h *AdminHandler) Config(c *gin.Context) {
	tasks := []scheduler.TaskStatus{}
	if h.sched != nil {
		tasks = h.sched.Tasks()
	}
	c.JSON(http.StatusOK, gin.H{
		"cooldown_disabled": h.debug.Flags().CooldownDisabled(),
		"scheduler_tasks":   tasks,
	})
}

// ToggleCooldown flips the study cooldown bypass.
// POST /api/admin/cooldown/toggle
func (h *AdminHandler) ToggleCooldown(c *gin.Context) {
	disabled := h.debug.Flags().ToggleCooldown()
	h.logger.Info("study cooldown toggled", zap.Bool("disabled", disabled))
	c.JSON(http.StatusOK, gin.H{"cooldown_disabled": disabled})
}

// RefillEnergy handles POST /api/admin/characters/:id/refill.
func (h *AdminHandler) RefillEnergy(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	char, err := h.debug.RefillEnergy(c.Request.Context(), id)
	h.reply(c, "admin.refill_energy", http.StatusOK, char, err)
}

type grantGradeRequest struct {
	SubjectID string `json:"subject_id" binding:"required"`
	Score     *int   `json:"score"`
}

// GrantGrade handles POST /api/admin/characters/:id/grade.
func (h *AdminHandler) GrantGrade(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req grantGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	g, err := h.debug.GrantGrade(c.Request.Context(), id, req.SubjectID, req.Score)
	h.reply(c, "admin.grant_grade", http.StatusCreated, g, err)
}

type grantXPRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// GrantXP handles POST /api/admin/characters/:id/xp.
func (h *AdminHandler) GrantXP(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req grantXPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := h.debug.GrantXP(c.Request.Context(), id, req.Amount)
	h.reply(c, "admin.grant_xp", http.StatusOK, p, err)
}

// Reset handles POST /api/admin/characters/:id/reset.
func (h *AdminHandler) Reset(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	char, err := h.debug.Reset(c.Request.Context(), id)
	h.reply(c, "admin.reset", http.StatusOK, char, err)
}

// RotateEvent opens the current week's event if it is missing.
// POST /api/admin/events/rotate
func (h *AdminHandler) RotateEvent(c *gin.Context) {
	e, err := h.rotator.Rotate(c.Request.Context())
	h.reply(c, "admin.rotate_event", http.StatusOK, gin.H{"event": e}, err)
}

// FinalizeEvent handles POST /api/admin/events/:id/finalize.
func (h *AdminHandler) FinalizeEvent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := h.events.Finalize(c.Request.Context(), id)
	h.reply(c, "admin.finalize_event", http.StatusOK, res, err)
}

// RunTask runs a scheduled job immediately and reports its status.
// POST /api/admin/scheduler/:name/run
func (h *AdminHandler) RunTask(c *gin.Context) {
	if h.sched == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not running"})
		return
	}
	name := c.Param("name")
	err := h.sched.RunNow(name)
	if errors.Is(err, scheduler.ErrUnknownTask) {
		err = gameerr.NotFound("task %q not found", name)
	}
	h.reply(c, "admin.run_task", http.StatusOK, gin.H{"tasks": h.sched.Tasks()}, err)
}

// AdminAuth returns a middleware that checks the X-Admin-Key header.
// If adminKey is empty all admin endpoints are disabled (503) so the
// server cannot be deployed without protection by accident.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		key := c.GetHeader("X-Admin-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
