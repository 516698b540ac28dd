// Package notificationsv1 is the gRPC contract of the notifications service.
package notificationsv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const serviceName = "notifications.v1.NotificationService"

// Full method names
const (
	NotificationService_SendEmail_FullMethodName         = "/" + serviceName + "/SendEmail"
	NotificationService_NotifyUserCreated_FullMethodName = "/" + serviceName + "/NotifyUserCreated"
	NotificationService_NotifyUserDeleted_FullMethodName = "/" + serviceName + "/NotifyUserDeleted"
)

type SendEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type UserNotificationRequest struct {
	Email    string `json:"email"`
	UserName string `json:"userName"`
}

// SendResponse reports whether the mail left the service. False means the
// send was suppressed by the mail breaker.
type SendResponse struct {
	Delivered bool `json:"delivered"`
}

// NotificationServiceClient is the client API for NotificationService.
type NotificationServiceClient interface {
	SendEmail(ctx context.Context, in *SendEmailRequest, opts ...grpc.CallOption) (*SendResponse, error)
	NotifyUserCreated(ctx context.Context, in *UserNotificationRequest, opts ...grpc.CallOption) (*SendResponse, error)
	NotifyUserDeleted(ctx context.Context, in *UserNotificationRequest, opts ...grpc.CallOption) (*SendResponse, error)
}

type notificationServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewNotificationServiceClient creates a client over an established connection.
func NewNotificationServiceClient(cc grpc.ClientConnInterface) NotificationServiceClient {
	return &notificationServiceClient{cc}
}

func (c *notificationServiceClient) invoke(ctx context.Context, method string, in interface{}, opts ...grpc.CallOption) (*SendResponse, error) {
	out := new(SendResponse)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *notificationServiceClient) SendEmail(ctx context.Context, in *SendEmailRequest, opts ...grpc.CallOption) (*SendResponse, error) {
	return c.invoke(ctx, NotificationService_SendEmail_FullMethodName, in, opts...)
}

func (c *notificationServiceClient) NotifyUserCreated(ctx context.Context, in *UserNotificationRequest, opts ...grpc.CallOption) (*SendResponse, error) {
	return c.invoke(ctx, NotificationService_NotifyUserCreated_FullMethodName, in, opts...)
}

func (c *notificationServiceClient) NotifyUserDeleted(ctx context.Context, in *UserNotificationRequest, opts ...grpc.CallOption) (*SendResponse, error) {
	return c.invoke(ctx, NotificationService_NotifyUserDeleted_FullMethodName, in, opts...)
}

// NotificationServiceServer is the server API for NotificationService.
type NotificationServiceServer interface {
	SendEmail(context.Context, *SendEmailRequest) (*SendResponse, error)
	NotifyUserCreated(context.Context, *UserNotificationRequest) (*SendResponse, error)
	NotifyUserDeleted(context.Context, *UserNotificationRequest) (*SendResponse, error)
}

// UnimplementedNotificationServiceServer can be embedded to have forward compatible implementations.
type UnimplementedNotificationServiceServer struct{}

func (UnimplementedNotificationServiceServer) SendEmail(context.Context, *SendEmailRequest) (*SendResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SendEmail not implemented")
}

func (UnimplementedNotificationServiceServer) NotifyUserCreated(context.Context, *UserNotificationRequest) (*SendResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method NotifyUserCreated not implemented")
}

func (UnimplementedNotificationServiceServer) NotifyUserDeleted(context.Context, *UserNotificationRequest) (*SendResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method NotifyUserDeleted not implemented")
}

// RegisterNotificationServiceServer registers srv on s.
func RegisterNotificationServiceServer(s grpc.ServiceRegistrar, srv NotificationServiceServer) {
	s.RegisterService(&NotificationService_ServiceDesc, srv)
}

func handler[Req any](
	fullMethod string,
	call func(srv NotificationServiceServer, ctx context.Context, req *Req) (*SendResponse, error),
) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(NotificationServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		next := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(NotificationServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, next)
	}
}

// NotificationService_ServiceDesc is the grpc.ServiceDesc for NotificationService.
var NotificationService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*NotificationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SendEmail",
			Handler:    handler(NotificationService_SendEmail_FullMethodName, NotificationServiceServer.SendEmail),
		},
		{
			MethodName: "NotifyUserCreated",
			Handler:    handler(NotificationService_NotifyUserCreated_FullMethodName, NotificationServiceServer.NotifyUserCreated),
		},
		{
			MethodName: "NotifyUserDeleted",
			Handler:    handler(NotificationService_NotifyUserDeleted_FullMethodName, NotificationServiceServer.NotifyUserDeleted),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "notifications/v1/notifications.go",
}
