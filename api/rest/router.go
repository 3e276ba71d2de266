package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/scholarquest/cache"
	"github.com/kasuganosora/scholarquest/game/academy"
	"github.com/kasuganosora/scholarquest/game/character"
	"github.com/kasuganosora/scholarquest/game/craft"
	"github.com/kasuganosora/scholarquest/game/daily"
	"github.com/kasuganosora/scholarquest/game/debug"
	"github.com/kasuganosora/scholarquest/game/event"
	"github.com/kasuganosora/scholarquest/game/item"
	"github.com/kasuganosora/scholarquest/game/market"
	"github.com/kasuganosora/scholarquest/game/olympiad"
	"github.com/kasuganosora/scholarquest/game/quest"
	"github.com/kasuganosora/scholarquest/game/study"
	"github.com/kasuganosora/scholarquest/metrics"
	mw "github.com/kasuganosora/scholarquest/middleware"
	"github.com/kasuganosora/scholarquest/scheduler"
	"go.uber.org/zap"
)

// Services bundles the game services the REST surface exposes.
type Services struct {
	Chars     *character.Service
	Academy   *academy.Service
	Study     *study.Service
	Quests    *quest.Service
	Olympiads *olympiad.Service
	Daily     *daily.Service
	Items     *item.Service
	Craft     *craft.Service
	Market    *market.Service
	Events    *event.Service
	Rotator   *event.Rotator
	Debug     *debug.Service
	Scheduler *scheduler.Scheduler
}

// Options configures Register. Metrics may be nil.
type Options struct {
	Cache    cache.Cache
	AdminKey string
	Metrics  *metrics.Manager
	Logger   *zap.Logger
}

// Register mounts every /api route on r.
func Register(r gin.IRouter, s Services, opts Options) {
	resp := responder{metrics: opts.Metrics, logger: opts.Logger}
	charH := NewCharacterHandler(resp, s.Chars, s.Academy)
	playH := NewPlayHandler(resp, s.Study, s.Quests, s.Olympiads, s.Daily)
	invH := NewInventoryHandler(resp, s.Items)
	craftH := NewCraftHandler(resp, s.Craft)
	marketH := NewMarketHandler(resp, s.Market)
	eventH := NewEventHandler(resp, s.Events)
	adminH := NewAdminHandler(resp, s.Debug, s.Events, s.Rotator, s.Scheduler)

	api := r.Group("/api")
	api.POST("/characters", charH.Create)

	auth := api.Group("")
	auth.Use(mw.Auth(opts.Cache, s.Chars.Exists))
	{
		me := auth.Group("/me")
		me.GET("", charH.Me)
		me.GET("/grades", charH.Grades)
		me.GET("/requirements/class", charH.ClassRequirements)
		me.GET("/requirements/location", charH.LocationRequirements)
		me.GET("/specializations", charH.Specializations)
		me.POST("/class/complete", charH.CompleteClass)
		me.POST("/location/advance", charH.AdvanceLocation)
		me.POST("/specialization", charH.SelectSpecialization)

		auth.POST("/study", playH.Study)
		auth.GET("/quests", playH.Quests)
		auth.POST("/quests/:id/start", playH.StartQuest)
		auth.GET("/olympiads", playH.Olympiads)
		auth.POST("/olympiads/:id/battle", playH.Battle)
		auth.GET("/daily", playH.DailyStatus)
		auth.POST("/daily/claim", playH.ClaimDaily)

		auth.GET("/inventory", invH.List)
		auth.GET("/equipment", invH.Equipment)
		auth.POST("/equipment", invH.Equip)
		auth.DELETE("/equipment/:slot", invH.Unequip)

		auth.GET("/crafting/recipes", craftH.Recipes)
		auth.POST("/crafting/craft", craftH.Craft)

		mk := auth.Group("/market")
		mk.GET("", marketH.Browse)
		mk.GET("/mine", marketH.Mine)
		mk.GET("/history", marketH.History)
		mk.POST("", marketH.Create)
		mk.POST("/:id/buy", marketH.Buy)
		mk.DELETE("/:id", marketH.Cancel)

		ev := auth.Group("/events")
		ev.GET("/current", eventH.Current)
		ev.GET("/:id", eventH.Get)
		ev.POST("/:id/join", eventH.Join)
		ev.GET("/:id/rank", eventH.Rank)
		ev.POST("/:id/claim", eventH.Claim)
		ev.GET("/:id/leaderboard", eventH.Leaderboard)
	}

	admin := api.Group("/admin")
	admin.Use(AdminAuth(opts.AdminKey))
	{
		admin.GET("/config", adminH.Config)
		admin.POST("/cooldown/toggle", adminH.ToggleCooldown)
		admin.POST("/characters/:id/refill", adminH.RefillEnergy)
		admin.POST("/characters/:id/grade", adminH.GrantGrade)
		admin.POST("/characters/:id/xp", adminH.GrantXP)
		admin.POST("/characters/:id/reset", adminH.Reset)
		admin.POST("/events/rotate", adminH.RotateEvent)
		admin.POST("/events/:id/finalize", adminH.FinalizeEvent)
		admin.POST("/scheduler/:name/run", adminH.RunTask)
	}
}
