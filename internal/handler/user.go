package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lovealarm/internal/domain"
	"lovealarm/internal/service"
)

// UserHandler handles HTTP requests for users.
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRequest is the HTTP request body for user registration.
type RegisterRequest struct {
	Username     string   `json:"username"`
	Name         string   `json:"name"`
	Surname      string   `json:"surname"`
	Email        string   `json:"email"`
	Password     string   `json:"password"`
	ProfilePhoto string   `json:"profile_photo,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

// LocationRequest is the HTTP request body carrying a position.
type LocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// UserResponse is the HTTP response for user data. The password hash is never included.
type UserResponse struct {
	ID              string   `json:"id"`
	Username        string   `json:"username"`
	Name            string   `json:"name"`
	Surname         string   `json:"surname"`
	Email           string   `json:"email"`
	ProfilePhoto    string   `json:"profile_photo,omitempty"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	Signaling       bool     `json:"signaling"`
	SignalExpiresAt string   `json:"signal_expires_at,omitempty"`
	CreatedAt       string   `json:"created_at,omitempty"`
}

// Register handles POST /v1/users/register
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.userService.Register(c.Request.Context(), service.RegisterRequest{
		Username:     req.Username,
		Name:         req.Name,
		Surname:      req.Surname,
		Email:        req.Email,
		Password:     req.Password,
		ProfilePhoto: req.ProfilePhoto,
		Lat:          req.Latitude,
		Lng:          req.Longitude,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toUserResponse(user))
}

// GetAll handles GET /v1/users
func (h *UserHandler) GetAll(c *gin.Context) {
	users, err := h.userService.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]UserResponse, 0, len(users))
	for _, u := range users {
		response = append(response, toUserResponse(u))
	}

	c.JSON(http.StatusOK, response)
}

// GetUser handles GET /v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// UpdateLocation handles PUT /v1/users/:id/location
func (h *UserHandler) UpdateLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Latitude == nil || req.Longitude == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "latitude and longitude are required"})
		return
	}

	user, err := h.userService.UpdateLocation(c.Request.Context(), service.UpdateLocationRequest{
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

func toUserResponse(u *domain.User) UserResponse {
	resp := UserResponse{
		ID:           u.ID,
		Username:     u.Username,
		Name:         u.Name,
		Surname:      u.Surname,
		Email:        u.Email,
		ProfilePhoto: u.ProfilePhoto,
		Signaling:    u.Signaling,
	}
	if u.Location != nil {
		lat, lng := u.Location.Lat, u.Location.Lng
		resp.Latitude = &lat
		resp.Longitude = &lng
	}
	if u.Signaling && !u.SignalExpiresAt.IsZero() {
		resp.SignalExpiresAt = u.SignalExpiresAt.UTC().Format(time.RFC3339)
	}
	if !u.CreatedAt.IsZero() {
		resp.CreatedAt = u.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
