// Package rest is the HTTP surface over the game services.
package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/kasuganosora/scholarquest/metrics"
	mw "github.com/kasuganosora/scholarquest/middleware"
	"go.uber.org/zap"
)

// StatusOf maps a game error kind to its HTTP status.
func StatusOf(k gameerr.Kind) int {
	switch k {
	case gameerr.KindNotFound:
		return http.StatusNotFound
	case gameerr.KindPrecondition:
		return http.StatusUnprocessableEntity
	case gameerr.KindConflict:
		return http.StatusConflict
	case gameerr.KindExpired:
		return http.StatusGone
	case gameerr.KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// responder writes results and errors for one handler group.
type responder struct {
	metrics *metrics.Manager
	logger  *zap.Logger
}

// reply records the action outcome and writes either v with status or
// the error.
func (r responder) reply(c *gin.Context, action string, status int, v any, err error) {
	r.metrics.Action(action, err)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(status, v)
}

func (r responder) fail(c *gin.Context, err error) {
	var ge *gameerr.Error
	if errors.As(err, &ge) {
		body := gin.H{"error": ge.Msg, "kind": ge.Kind.String()}
		if len(ge.Details) > 0 {
			body["details"] = ge.Details
		}
		c.JSON(StatusOf(ge.Kind), body)
		return
	}
	r.logger.Error("request failed",
		zap.Error(err),
		zap.String("trace_id", mw.GetTraceID(c)),
		zap.Int64("char_id", mw.GetCharID(c)),
		zap.String("route", c.FullPath()))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "trace_id": mw.GetTraceID(c)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "kind": gameerr.KindInvalid.String()})
}

// paramID parses a positive integer path parameter, writing 400 if it is
// not one.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
