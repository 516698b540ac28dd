package infrastructure

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"user-lifecycle/internal/notifications/application"
	"user-lifecycle/internal/notifications/domain"
	"user-lifecycle/pkg/breaker"
	"user-lifecycle/pkg/errors"
	"user-lifecycle/pkg/middleware"
)

// HTTPHandler handles HTTP requests for notifications
type HTTPHandler struct {
	gateway  *application.MailGateway
	breakers *breaker.Registry
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(gateway *application.MailGateway, breakers *breaker.Registry) *HTTPHandler {
	return &HTTPHandler{gateway: gateway, breakers: breakers}
}

// RegisterRoutes registers the notification routes
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.POST("/email", h.SendEmail)
		notifications.POST("/user-created", h.UserCreated)
		notifications.POST("/user-deleted", h.UserDeleted)
		notifications.GET("/health", h.Health)
		notifications.GET("/stats", h.Stats)
	}
}

// SendResponse reports whether the mail left the service
type SendResponse struct {
	Delivered bool   `json:"delivered"`
	Message   string `json:"message"`
}

func sendResult(c *gin.Context, delivered bool) {
	message := "Email sent"
	if !delivered {
		message = "Email service is temporarily unavailable"
	}
	c.JSON(http.StatusOK, gin.H{
		"data":     SendResponse{Delivered: delivered, Message: message},
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// SendEmail handles POST /notifications/email
func (h *HTTPHandler) SendEmail(c *gin.Context) {
	var msg domain.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}
	if err := msg.Validate(); err != nil {
		c.Error(err)
		return
	}

	sendResult(c, h.gateway.Send(c.Request.Context(), msg))
}

// UserCreated handles POST /notifications/user-created?email=&userName=
func (h *HTTPHandler) UserCreated(c *gin.Context) {
	msg := domain.WelcomeMessage(c.Query("email"), c.Query("userName"))
	if err := msg.Validate(); err != nil {
		c.Error(err)
		return
	}

	sendResult(c, h.gateway.Send(c.Request.Context(), msg))
}

// UserDeleted handles POST /notifications/user-deleted?email=&userName=
func (h *HTTPHandler) UserDeleted(c *gin.Context) {
	msg := domain.AccountDeletedMessage(c.Query("email"), c.Query("userName"))
	if err := msg.Validate(); err != nil {
		c.Error(err)
		return
	}

	sendResult(c, h.gateway.Send(c.Request.Context(), msg))
}

// Health reports liveness and the breaker states
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  "notification-service",
		"breakers": h.breakers.Snapshot(),
	})
}

// Stats handles GET /notifications/stats
func (h *HTTPHandler) Stats(c *gin.Context) {
	stats, err := h.gateway.Stats(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     stats,
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}
