package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/scholarquest/game/academy"
	"github.com/kasuganosora/scholarquest/game/character"
	"github.com/kasuganosora/scholarquest/game/grade"
	mw "github.com/kasuganosora/scholarquest/middleware"
)

// CharacterHandler handles character and progression endpoints.
type CharacterHandler struct {
	responder
	chars   *character.Service
	academy *academy.Service
}

// NewCharacterHandler creates a CharacterHandler.
func NewCharacterHandler(r responder, chars *character.Service, ac *academy.Service) *CharacterHandler {
	return &CharacterHandler{responder: r, chars: chars, academy: ac}
}

type createCharacterRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create handles POST /api/characters.
func (h *CharacterHandler) Create(c *gin.Context) {
	var req createCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	char, err := h.chars.Create(c.Request.Context(), req.Name)
	h.reply(c, "character.create", http.StatusCreated, char, err)
}

// Me handles GET /api/me.
func (h *CharacterHandler) Me(c *gin.Context) {
	v, err := h.chars.View(c.Request.Context(), mw.GetCharID(c))
	h.reply(c, "character.view", http.StatusOK, v, err)
}

// Grades handles GET /api/me/grades?class_id=&system=.
func (h *CharacterHandler) Grades(c *gin.Context) {
	system, err := grade.ParseSystem(c.Query("system"))
	if err != nil {
		h.fail(c, err)
		return
	}
	rep, err := h.chars.Grades(c.Request.Context(), mw.GetCharID(c), c.Query("class_id"), system)
	h.reply(c, "character.grades", http.StatusOK, rep, err)
}

// ClassRequirements handles GET /api/me/requirements/class.
func (h *CharacterHandler) ClassRequirements(c *gin.Context) {
	res, err := h.academy.ClassRequirements(c.Request.Context(), mw.GetCharID(c))
	h.reply(c, "academy.class_requirements", http.StatusOK, res, err)
}

// LocationRequirements handles GET /api/me/requirements/location.
func (h *CharacterHandler) LocationRequirements(c *gin.Context) {
	res, err := h.academy.LocationRequirements(c.Request.Context(), mw.GetCharID(c))
	h.reply(c, "academy.location_requirements", http.StatusOK, res, err)
}

// Specializations handles GET /api/me/specializations.
func (h *CharacterHandler) Specializations(c *gin.Context) {
	res, err := h.academy.Specializations(c.Request.Context(), mw.GetCharID(c))
	h.reply(c, "academy.specializations", http.StatusOK, res, err)
}

// CompleteClass handles POST /api/me/class/complete.
func (h *CharacterHandler) CompleteClass(c *gin.Context) {
	res, err := h.academy.CompleteClass(c.Request.Context(), mw.GetCharID(c))
	h.reply(c, "academy.complete_class", http.StatusOK, res, err)
}

// AdvanceLocation handles POST /api/me/location/advance.
func (h *CharacterHandler) AdvanceLocation(c *gin.Context) {
	res, err := h.academy.AdvanceLocation(c.Request.Context(), mw.GetCharID(c))
	h.reply(c, "academy.advance_location", http.StatusOK, res, err)
}

type selectSpecializationRequest struct {
	SpecializationID string `json:"specialization_id" binding:"required"`
}

// SelectSpecialization handles POST /api/me/specialization.
func (h *CharacterHandler) SelectSpecialization(c *gin.Context) {
	var req selectSpecializationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.academy.SelectSpecialization(c.Request.Context(), mw.GetCharID(c), req.SpecializationID)
	h.reply(c, "academy.select_specialization", http.StatusOK, res, err)
}
