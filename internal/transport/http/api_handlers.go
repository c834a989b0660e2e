package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// APIHandlers provides read-only HTTP handlers over presence and history.
type APIHandlers struct {
	hub      Hub
	messages core.MessageLog
	log      *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(hub Hub, messages core.MessageLog, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		hub:      hub,
		messages: messages,
		log:      logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RoomsResponse lists rooms that currently have members.
type RoomsResponse struct {
	Rooms []string `json:"rooms"`
}

// MembersResponse is a room's member list.
type MembersResponse struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

// MessagesResponse is a room's stored history.
type MessagesResponse struct {
	Room     string          `json:"room"`
	Messages []proto.Message `json:"messages"`
}

type roomURI struct {
	Room string `uri:"room" binding:"required,max=64"`
}

// ListRooms handles GET /api/rooms
func (h *APIHandlers) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, RoomsResponse{Rooms: h.hub.Members().Rooms()})
}

// ListMembers handles GET /api/rooms/:room/members
func (h *APIHandlers) ListMembers(c *gin.Context) {
	var uri roomURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room"})
		return
	}
	c.JSON(http.StatusOK, MembersResponse{Room: uri.Room, Users: h.hub.Members().ListMembers(uri.Room)})
}

// ListMessages handles GET /api/rooms/:room/messages
func (h *APIHandlers) ListMessages(c *gin.Context) {
	var uri roomURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room"})
		return
	}

	stored, err := h.messages.ListMessagesByRoom(c.Request.Context(), uri.Room)
	if err != nil {
		h.log.Error().Err(err).Str("room", uri.Room).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, MessagesResponse{
		Room: uri.Room,
		Messages: lo.Map(stored, func(m *store.Message, _ int) proto.Message {
			return proto.Message{
				ID:        m.ID,
				Chat:      m.Room,
				Username:  m.Username,
				Message:   m.Body,
				Timestamp: m.CreatedAt,
			}
		}),
	})
}
