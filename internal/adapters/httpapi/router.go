// Package httpapi is the agent's local control surface: the device UI
// drives session activation, rooms and the content library through it.
package httpapi

import (
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/bholsinger09/layover/internal/config"
	"github.com/bholsinger09/layover/internal/domain"
	"github.com/bholsinger09/layover/internal/library"
	"github.com/bholsinger09/layover/internal/session"
)

// Server bundles what the handlers need.
type Server struct {
	Tracker    *session.Tracker
	Reconciler *session.Reconciler
	Library    *library.Store
	User       *domain.User
	Grace      time.Duration
}

func SetupRouter(cfg *config.Config, s *Server) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("LayoverSessions", store))

	log.Info().Str("module", "httpapi").Msg("router setup")

	api := r.Group("/api")

	api.GET("/status", s.handleStatus)
	api.POST("/session/start", s.handleStartSession)
	api.POST("/session/leave", s.handleLeaveSession)

	api.GET("/rooms", s.handleListRooms)
	api.POST("/rooms", s.handleCreateRoom)
	api.POST("/rooms/:id/join", s.handleJoinRoom)
	api.POST("/rooms/:id/content", s.handleSelectContent)

	api.GET("/library", s.handleListLibrary)
	api.GET("/library/favorites", s.handleListFavorites)
	api.POST("/library", s.handleAddContent)
	api.PUT("/library/:id/favorite", s.handleSetFavorite)
	api.DELETE("/library/:id", s.handleRemoveContent)

	return r
}
