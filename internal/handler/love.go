package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lovealarm/internal/domain"
	"lovealarm/internal/service"
)

// LoveHandler handles HTTP requests for interactions and love checks.
type LoveHandler struct {
	loveService *service.LoveService
}

// NewLoveHandler creates a new LoveHandler.
func NewLoveHandler(loveService *service.LoveService) *LoveHandler {
	return &LoveHandler{loveService: loveService}
}

// InteractionRequest is the HTTP request body for recording an interaction.
type InteractionRequest struct {
	UserID          string `json:"user_id"`
	TargetID        string `json:"target_id"`
	InteractionType string `json:"interaction_type,omitempty"`
}

// InteractionResponse is the HTTP response for a recorded interaction.
type InteractionResponse struct {
	ID              string                 `json:"id,omitempty"`
	UserID          string                 `json:"user_id"`
	TargetID        string                 `json:"target_id"`
	InteractionType domain.InteractionKind `json:"interaction_type"`
	Created         bool                   `json:"created"`
}

// CheckLoveResponse is the HTTP response for a love check.
type CheckLoveResponse struct {
	UserID         string   `json:"user_id"`
	LoveCount      int      `json:"love_count"`
	MatchedUserIDs []string `json:"matched_user_ids"`
	Message        string   `json:"message"`
}

// RecordInteraction handles POST /v1/interactions
func (h *LoveHandler) RecordInteraction(c *gin.Context) {
	var req InteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.loveService.RecordInteraction(c.Request.Context(), service.RecordInteractionRequest{
		UserID:   req.UserID,
		TargetID: req.TargetID,
		Type:     req.InteractionType,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := InteractionResponse{
		UserID:          result.Interaction.UserID,
		TargetID:        result.Interaction.TargetID,
		InteractionType: result.Interaction.Kind,
		Created:         result.Created,
	}
	code := http.StatusOK
	if result.Created {
		resp.ID = result.Interaction.ID
		code = http.StatusCreated
	}

	respondJSON(c, code, resp)
}

// CheckLove handles GET /v1/check-love/:id
func (h *LoveHandler) CheckLove(c *gin.Context) {
	report, err := h.loveService.CheckLove(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	matched := report.Matched
	if matched == nil {
		matched = []string{}
	}

	c.JSON(http.StatusOK, CheckLoveResponse{
		UserID:         report.UserID,
		LoveCount:      report.LoveCount,
		MatchedUserIDs: matched,
		Message:        service.LoveMessage(report.LoveCount),
	})
}
