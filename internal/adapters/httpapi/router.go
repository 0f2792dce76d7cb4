package httpapi

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aaron777collins/haos-rtc/internal/adapters/wsevents"
	"github.com/aaron777collins/haos-rtc/internal/app"
	"github.com/aaron777collins/haos-rtc/internal/config"
)

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, manager *app.Manager) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("RTCSessions", store))
	r.Use(ClientTokenMiddleware())

	log.Info().Str("module", "adapters.httpapi").Msg("router setup")

	h := &handlers{manager: manager}
	events := wsevents.NewController(manager.Bus(), cfg.PingPeriod)

	api := r.Group("/api")
	api.GET("/sessions", h.activeSessions)

	room := api.Group("/rooms/:room")
	room.POST("/session", h.createSession)
	room.GET("/session", h.sessionState)
	room.DELETE("/session", h.destroySession)
	room.POST("/session/join", h.joinSession)
	room.POST("/session/leave", h.leaveSession)

	api.GET("/ws/events", func(c *gin.Context) {
		log.Info().Str("module", "adapters.httpapi").Str("sid", c.GetString("client_token")).Msg("ws events endpoint hit")
		events.HandleEvents(ctx, c)
	})

	return r
}
