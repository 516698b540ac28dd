package infrastructure

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"user-lifecycle/internal/users/application"
	"user-lifecycle/internal/users/domain"
	"user-lifecycle/pkg/breaker"
	"user-lifecycle/pkg/errors"
	"user-lifecycle/pkg/middleware"
)

// HTTPHandler handles HTTP requests for users
type HTTPHandler struct {
	useCase  *application.UserUseCase
	breakers *breaker.Registry
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(useCase *application.UserUseCase, breakers *breaker.Registry) *HTTPHandler {
	return &HTTPHandler{useCase: useCase, breakers: breakers}
}

// RegisterRoutes registers the user routes
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.GET("", h.Info)
		users.POST("", h.CreateUser)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id", h.UpdateUser)
		users.DELETE("/:id", h.DeleteUser)
	}
}

// Health reports liveness and the breaker states
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  "user-service",
		"breakers": h.breakers.Snapshot(),
	})
}

// UserRequest is the request body for creating or updating a user.
// Field rules are enforced by the domain so the first violation is reported.
type UserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   int    `json:"age"`
}

// UserResponse is the response body for user operations
type UserResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Age       int    `json:"age"`
	CreatedAt string `json:"created_at"`
}

func toResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Age:       u.Age,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// Info handles GET /users
func (h *HTTPHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, h.useCase.Info())
}

// CreateUser handles POST /users
func (h *HTTPHandler) CreateUser(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.useCase.CreateUser(c.Request.Context(), application.CreateUserInput{
		Name:  req.Name,
		Email: req.Email,
		Age:   req.Age,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data":     toResponse(output.User),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// GetUser handles GET /users/:id. A placeholder served while the store is
// unreachable is still a 200, flagged with "degraded".
func (h *HTTPHandler) GetUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	output, err := h.useCase.GetUser(c.Request.Context(), application.GetUserInput{ID: id})
	if err != nil {
		c.Error(err)
		return
	}

	body := gin.H{
		"data":     toResponse(output.User),
		"trace_id": c.GetString(middleware.TraceIDKey),
	}
	if output.Degraded {
		body["degraded"] = true
	}
	c.JSON(http.StatusOK, body)
}

// UpdateUser handles PUT /users/:id
func (h *HTTPHandler) UpdateUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.useCase.UpdateUser(c.Request.Context(), application.UpdateUserInput{
		ID:    id,
		Name:  req.Name,
		Email: req.Email,
		Age:   req.Age,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     toResponse(output.User),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// DeleteUser handles DELETE /users/:id
func (h *HTTPHandler) DeleteUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	if err := h.useCase.DeleteUser(c.Request.Context(), application.DeleteUserInput{ID: id}); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func userID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.Error(errors.NewValidation("invalid user id", map[string]string{"field": "id"}))
		return 0, false
	}
	return uint(id), true
}
