package infrastructure

import (
	"context"

	notificationsv1 "user-lifecycle/api/notifications/v1"
	"user-lifecycle/internal/notifications/application"
	"user-lifecycle/internal/notifications/domain"
)

// GRPCServer implements the gRPC NotificationServiceServer
type GRPCServer struct {
	notificationsv1.UnimplementedNotificationServiceServer
	gateway *application.MailGateway
}

// NewGRPCServer creates a new gRPC server
func NewGRPCServer(gateway *application.MailGateway) *GRPCServer {
	return &GRPCServer{gateway: gateway}
}

func (s *GRPCServer) send(ctx context.Context, msg domain.Message) (*notificationsv1.SendResponse, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &notificationsv1.SendResponse{Delivered: s.gateway.Send(ctx, msg)}, nil
}

// SendEmail implements NotificationServiceServer.SendEmail
func (s *GRPCServer) SendEmail(ctx context.Context, req *notificationsv1.SendEmailRequest) (*notificationsv1.SendResponse, error) {
	return s.send(ctx, domain.Message{To: req.To, Subject: req.Subject, Body: req.Body})
}

// NotifyUserCreated implements NotificationServiceServer.NotifyUserCreated
func (s *GRPCServer) NotifyUserCreated(ctx context.Context, req *notificationsv1.UserNotificationRequest) (*notificationsv1.SendResponse, error) {
	return s.send(ctx, domain.WelcomeMessage(req.Email, req.UserName))
}

// NotifyUserDeleted implements NotificationServiceServer.NotifyUserDeleted
func (s *GRPCServer) NotifyUserDeleted(ctx context.Context, req *notificationsv1.UserNotificationRequest) (*notificationsv1.SendResponse, error) {
	return s.send(ctx, domain.AccountDeletedMessage(req.Email, req.UserName))
}
