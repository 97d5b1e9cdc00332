package relay

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bholsinger09/layover/internal/config"
)

// ClientTokenMiddleware assigns every agent a stable identity cookie.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, hub *Hub) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(ClientTokenMiddleware())

	log.Info().Str("module", "relay.router").Msg("router setup")

	ctl := NewWSController(hub, cfg.Relay.ReadLimit)
	r.GET("/ws/group", func(c *gin.Context) {
		// Agents pass their token explicitly; cookies are a browser thing.
		if q := c.Query("token"); q != "" {
			c.Set("client_token", q)
		}
		ctl.HandleWS(ctx, c)
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"sessions": len(hub.Sessions.List())})
	})

	return r
}
