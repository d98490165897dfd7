package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lovealarm/internal/geo"
	"lovealarm/internal/service"
)

// SignalHandler handles HTTP requests for the love signal.
type SignalHandler struct {
	signalService *service.SignalService
}

// NewSignalHandler creates a new SignalHandler.
func NewSignalHandler(signalService *service.SignalService) *SignalHandler {
	return &SignalHandler{signalService: signalService}
}

// NearbyUserResponse is one entry of the nearby list.
type NearbyUserResponse struct {
	UserID   string   `json:"user_id"`
	Distance float64  `json:"distance"`
	Unit     geo.Unit `json:"unit"`
}

// Activate handles POST /v1/users/:id/signal
func (h *SignalHandler) Activate(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Latitude == nil || req.Longitude == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "latitude and longitude are required"})
		return
	}

	user, err := h.signalService.Activate(c.Request.Context(), service.ActivateSignalRequest{
		UserID: c.Param("id"),
		Lat:    *req.Latitude,
		Lng:    *req.Longitude,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// Deactivate handles DELETE /v1/users/:id/signal
func (h *SignalHandler) Deactivate(c *gin.Context) {
	if err := h.signalService.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Nearby handles GET /v1/users/:id/nearby
func (h *SignalHandler) Nearby(c *gin.Context) {
	results, err := h.signalService.Nearby(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]NearbyUserResponse, 0, len(results))
	for _, r := range results {
		response = append(response, NearbyUserResponse{
			UserID:   r.UserID,
			Distance: r.Distance,
			Unit:     r.Unit,
		})
	}

	c.JSON(http.StatusOK, response)
}
