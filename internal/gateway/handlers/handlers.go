package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	notificationsv1 "user-lifecycle/api/notifications/v1"
	usersv1 "user-lifecycle/api/users/v1"
	"user-lifecycle/pkg/breaker"
	"user-lifecycle/pkg/errors"
	"user-lifecycle/pkg/logger"
	"user-lifecycle/pkg/middleware"
)

// Upstream breaker names
const (
	BreakerUsersUpstream         = "usersUpstream"
	BreakerNotificationsUpstream = "notificationsUpstream"
)

// Fallback messages returned with 503
const (
	UsersUnavailableMessage         = "User service is temporarily unavailable"
	NotificationsUnavailableMessage = "Notification service is temporarily unavailable"
)

// Handler handles all gateway HTTP requests
type Handler struct {
	usersClient         usersv1.UserServiceClient
	notificationsClient notificationsv1.NotificationServiceClient
	breakers            *breaker.Registry
	log                 *logger.Logger
}

// NewHandler creates a new gateway handler
func NewHandler(
	usersClient usersv1.UserServiceClient,
	notificationsClient notificationsv1.NotificationServiceClient,
	breakers *breaker.Registry,
	log *logger.Logger,
) *Handler {
	return &Handler{
		usersClient:         usersClient,
		notificationsClient: notificationsClient,
		breakers:            breakers,
		log:                 log,
	}
}

// RegisterRoutes registers all gateway routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.POST("", h.CreateUser)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id", h.UpdateUser)
		users.DELETE("/:id", h.DeleteUser)
	}

	notifications := r.Group("/notifications")
	{
		notifications.POST("/email", h.SendEmail)
		notifications.POST("/user-created", h.NotifyUserCreated)
		notifications.POST("/user-deleted", h.NotifyUserDeleted)
	}
}

// call runs one upstream request through the breaker named name. Client
// errors from the upstream pass through; anything else becomes a 503.
func call[T any](ctx context.Context, h *Handler, name, unavailable string, work func() (T, error)) (T, error) {
	return breaker.Run(h.breakers.Get(name), work, func(cause error) (T, error) {
		var zero T
		if errors.IsClientError(cause) {
			return zero, cause
		}
		h.log.WithContext(ctx).Warn("upstream unavailable",
			zap.String("breaker", name),
			zap.Error(cause),
		)
		return zero, errors.NewServiceUnavailable(unavailable, cause)
	})
}

// =============================================================================
// Request/Response DTOs
// =============================================================================

// UserRequest represents the request body for creating or updating a user
type UserRequest struct {
	Name  string `json:"name" example:"John Doe"`
	Email string `json:"email" example:"john@example.com"`
	Age   int32  `json:"age" example:"30"`
}

// UserResponse represents a user in responses
type UserResponse struct {
	ID        uint   `json:"id" example:"1"`
	Name      string `json:"name" example:"John Doe"`
	Email     string `json:"email" example:"john@example.com"`
	Age       int32  `json:"age" example:"30"`
	CreatedAt string `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// EmailRequest represents the request body for a direct email
type EmailRequest struct {
	To      string `json:"to" example:"john@example.com"`
	Subject string `json:"subject" example:"Hello"`
	Body    string `json:"body" example:"Hello, John!"`
}

// SendResponse reports whether the mail left the notification service
type SendResponse struct {
	Delivered bool `json:"delivered" example:"true"`
}

// SuccessResponse is the standard success response
type SuccessResponse struct {
	Data    interface{} `json:"data"`
	TraceID string      `json:"trace_id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error   ErrorBody `json:"error"`
	TraceID string    `json:"trace_id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// ErrorBody contains error details
type ErrorBody struct {
	Code    string      `json:"code" example:"SERVICE_UNAVAILABLE"`
	Message string      `json:"message" example:"User service is temporarily unavailable"`
	Details interface{} `json:"details,omitempty"`
}

func toUserResponse(resp *usersv1.UserResponse) UserResponse {
	return UserResponse{
		ID:        uint(resp.Id),
		Name:      resp.Name,
		Email:     resp.Email,
		Age:       resp.Age,
		CreatedAt: resp.CreatedAt,
	}
}

func (h *Handler) success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{
		Data:    data,
		TraceID: c.GetString(middleware.TraceIDKey),
	})
}

// =============================================================================
// Users Handlers
// =============================================================================

// CreateUser creates a new user
// @Summary Create a new user
// @Description Create a new user; a welcome email follows asynchronously
// @Tags users
// @Accept json
// @Produce json
// @Param request body UserRequest true "User creation request"
// @Success 201 {object} SuccessResponse{data=UserResponse} "User created successfully"
// @Failure 400 {object} ErrorResponse "Validation error"
// @Failure 409 {object} ErrorResponse "Email already exists"
// @Failure 503 {object} ErrorResponse "User service unavailable"
// @Router /api/v1/users [post]
func (h *Handler) CreateUser(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	ctx := c.Request.Context()
	resp, err := call(ctx, h, BreakerUsersUpstream, UsersUnavailableMessage, func() (*usersv1.UserResponse, error) {
		return h.usersClient.CreateUser(ctx, &usersv1.CreateUserRequest{
			Name:  req.Name,
			Email: req.Email,
			Age:   req.Age,
		})
	})
	if err != nil {
		c.Error(err)
		return
	}

	h.success(c, http.StatusCreated, toUserResponse(resp))
}

// GetUser retrieves a user by ID
// @Summary Get a user by ID
// @Description Retrieve user details by ID. While the user store is unreachable a placeholder user is returned.
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} SuccessResponse{data=UserResponse} "User retrieved successfully"
// @Failure 400 {object} ErrorResponse "Invalid user ID"
// @Failure 404 {object} ErrorResponse "User not found"
// @Failure 503 {object} ErrorResponse "User service unavailable"
// @Router /api/v1/users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	resp, err := call(ctx, h, BreakerUsersUpstream, UsersUnavailableMessage, func() (*usersv1.UserResponse, error) {
		return h.usersClient.GetUser(ctx, &usersv1.GetUserRequest{Id: id})
	})
	if err != nil {
		c.Error(err)
		return
	}

	h.success(c, http.StatusOK, toUserResponse(resp))
}

// UpdateUser replaces name, email and age of a user
// @Summary Update a user
// @Tags users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body UserRequest true "User update request"
// @Success 200 {object} SuccessResponse{data=UserResponse} "User updated successfully"
// @Failure 400 {object} ErrorResponse "Validation error"
// @Failure 404 {object} ErrorResponse "User not found"
// @Failure 409 {object} ErrorResponse "Email already exists"
// @Failure 503 {object} ErrorResponse "User service unavailable"
// @Router /api/v1/users/{id} [put]
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	ctx := c.Request.Context()
	resp, err := call(ctx, h, BreakerUsersUpstream, UsersUnavailableMessage, func() (*usersv1.UserResponse, error) {
		return h.usersClient.UpdateUser(ctx, &usersv1.UpdateUserRequest{
			Id:    id,
			Name:  req.Name,
			Email: req.Email,
			Age:   req.Age,
		})
	})
	if err != nil {
		c.Error(err)
		return
	}

	h.success(c, http.StatusOK, toUserResponse(resp))
}

// DeleteUser deletes a user
// @Summary Delete a user
// @Description Delete a user; an account deleted email follows asynchronously
// @Tags users
// @Param id path int true "User ID"
// @Success 204 "User deleted"
// @Failure 404 {object} ErrorResponse "User not found"
// @Failure 503 {object} ErrorResponse "User service unavailable"
// @Router /api/v1/users/{id} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	_, err := call(ctx, h, BreakerUsersUpstream, UsersUnavailableMessage, func() (*usersv1.DeleteUserResponse, error) {
		return h.usersClient.DeleteUser(ctx, &usersv1.DeleteUserRequest{Id: id})
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func userID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.NewValidation("invalid user id", nil))
		return 0, false
	}
	return id, true
}

// =============================================================================
// Notifications Handlers
// =============================================================================

// SendEmail sends a plain email
// @Summary Send an email
// @Tags notifications
// @Accept json
// @Produce json
// @Param request body EmailRequest true "Email"
// @Success 200 {object} SuccessResponse{data=SendResponse} "Send attempted; delivered is false when the mail transport is unavailable"
// @Failure 400 {object} ErrorResponse "Validation error"
// @Failure 503 {object} ErrorResponse "Notification service unavailable"
// @Router /api/v1/notifications/email [post]
func (h *Handler) SendEmail(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	h.notify(c, func(ctx context.Context) (*notificationsv1.SendResponse, error) {
		return h.notificationsClient.SendEmail(ctx, &notificationsv1.SendEmailRequest{
			To:      req.To,
			Subject: req.Subject,
			Body:    req.Body,
		})
	})
}

// NotifyUserCreated sends the welcome email
// @Summary Send the welcome email
// @Tags notifications
// @Produce json
// @Param email query string true "Recipient"
// @Param userName query string false "User name"
// @Success 200 {object} SuccessResponse{data=SendResponse}
// @Failure 400 {object} ErrorResponse "Validation error"
// @Failure 503 {object} ErrorResponse "Notification service unavailable"
// @Router /api/v1/notifications/user-created [post]
func (h *Handler) NotifyUserCreated(c *gin.Context) {
	req := &notificationsv1.UserNotificationRequest{Email: c.Query("email"), UserName: c.Query("userName")}
	h.notify(c, func(ctx context.Context) (*notificationsv1.SendResponse, error) {
		return h.notificationsClient.NotifyUserCreated(ctx, req)
	})
}

// NotifyUserDeleted sends the account deleted email
// @Summary Send the account deleted email
// @Tags notifications
// @Produce json
// @Param email query string true "Recipient"
// @Param userName query string false "User name"
// @Success 200 {object} SuccessResponse{data=SendResponse}
// @Failure 400 {object} ErrorResponse "Validation error"
// @Failure 503 {object} ErrorResponse "Notification service unavailable"
// @Router /api/v1/notifications/user-deleted [post]
func (h *Handler) NotifyUserDeleted(c *gin.Context) {
	req := &notificationsv1.UserNotificationRequest{Email: c.Query("email"), UserName: c.Query("userName")}
	h.notify(c, func(ctx context.Context) (*notificationsv1.SendResponse, error) {
		return h.notificationsClient.NotifyUserDeleted(ctx, req)
	})
}

func (h *Handler) notify(c *gin.Context, send func(ctx context.Context) (*notificationsv1.SendResponse, error)) {
	ctx := c.Request.Context()
	resp, err := call(ctx, h, BreakerNotificationsUpstream, NotificationsUnavailableMessage, func() (*notificationsv1.SendResponse, error) {
		return send(ctx)
	})
	if err != nil {
		c.Error(err)
		return
	}

	h.success(c, http.StatusOK, SendResponse{Delivered: resp.Delivered})
}

// Health reports gateway liveness and upstream breaker states
// @Summary Gateway health
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  "gateway",
		"breakers": h.breakers.Snapshot(),
	})
}
