package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/bholsinger09/layover/internal/domain"
	"github.com/bholsinger09/layover/internal/library"
	"github.com/bholsinger09/layover/internal/session"
)

type statusResponse struct {
	Active bool   `json:"active"`
	Role   string `json:"role"`
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, statusResponse{
		Active: s.Tracker.Active(),
		Role:   s.Tracker.Role().String(),
	})
}

type startSessionRequest struct {
	RoomID      string `json:"room_id"`
	Kind        string `json:"kind"`
	DisplayName string `json:"display_name"`
	ContentID   string `json:"content_id"`
}

type startSessionResponse struct {
	Established bool   `json:"established"`
	Role        string `json:"role,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// handleStartSession requests activation and waits a bounded grace
// period for the session to come up. Timing out is reported, not
// treated as failure: activation is asynchronous by contract.
func (s *Server) handleStartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var content *domain.MediaContent
	if req.ContentID != "" {
		got, err := s.Library.Get(c.Request.Context(), domain.ContentID(req.ContentID))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
			return
		}
		content = &got
	}

	roomID := domain.RoomID(req.RoomID)
	if roomID == "" {
		room, err := domain.NewRoom(domain.RoomName(req.DisplayName), domain.ActivityKind(req.Kind))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		roomID = room.ID
	}

	desc, err := domain.NewActivityDescriptor(roomID, domain.ActivityKind(req.Kind), req.DisplayName, content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.Tracker.RequestActivation(c.Request.Context(), desc); err != nil {
		s.writeActivationError(c, err)
		return
	}

	if !s.Tracker.AwaitActive(c.Request.Context(), s.Grace) {
		c.JSON(http.StatusAccepted, startSessionResponse{
			Established: false,
			Detail:      "session not yet established",
		})
		return
	}
	c.JSON(http.StatusOK, startSessionResponse{
		Established: true,
		Role:        s.Tracker.Role().String(),
	})
}

// Activation-path errors reach the user with a recovery suggestion;
// message-path failures are only logged.
func (s *Server) writeActivationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrActivationDisabled):
		c.JSON(http.StatusConflict, gin.H{
			"error":      err.Error(),
			"suggestion": "connect this device to a group first, then retry",
		})
	case errors.Is(err, session.ErrActivationCancelled):
		c.JSON(http.StatusConflict, gin.H{
			"error":      err.Error(),
			"suggestion": "try again",
		})
	case errors.Is(err, session.ErrNoActiveSession):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("module", "httpapi").Msg("activation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

func (s *Server) handleLeaveSession(c *gin.Context) {
	if err := s.Tracker.Leave(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"left": true})
}

func (s *Server) handleListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": s.Reconciler.Rooms()})
}

type createRoomRequest struct {
	Name     string `json:"name"`
	Activity string `json:"activity"`
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	room, err := domain.NewRoom(domain.RoomName(req.Name), domain.ActivityKind(req.Activity))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.Reconciler.CreateRoom(c.Request.Context(), *room)
	c.JSON(http.StatusCreated, gin.H{"room": room})
}

func (s *Server) handleJoinRoom(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))
	if err := s.Reconciler.JoinRoom(c.Request.Context(), *s.User, roomID); err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"joined": true})
}

type selectContentRequest struct {
	ContentID string `json:"content_id"`
}

func (s *Server) handleSelectContent(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))
	if _, ok := s.Reconciler.Room(roomID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	var req selectContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	content, err := s.Library.Get(c.Request.Context(), domain.ContentID(req.ContentID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
		return
	}
	s.Reconciler.SelectContent(c.Request.Context(), content)
	c.JSON(http.StatusOK, gin.H{"selected": content.ID})
}

func (s *Server) handleListLibrary(c *gin.Context) {
	list, err := s.Library.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": list})
}

func (s *Server) handleListFavorites(c *gin.Context) {
	list, err := s.Library.Favorites(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": list})
}

func (s *Server) handleAddContent(c *gin.Context) {
	var content domain.MediaContent
	if err := c.ShouldBindJSON(&content); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := s.Library.Add(c.Request.Context(), content); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"content": content})
}

type favoriteRequest struct {
	Favorite bool `json:"favorite"`
}

func (s *Server) handleSetFavorite(c *gin.Context) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	err := s.Library.SetFavorite(c.Request.Context(), domain.ContentID(c.Param("id")), req.Favorite)
	if errors.Is(err, library.ErrContentNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorite": req.Favorite})
}

func (s *Server) handleRemoveContent(c *gin.Context) {
	if err := s.Library.Remove(c.Request.Context(), domain.ContentID(c.Param("id"))); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true})
}
