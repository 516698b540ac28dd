package clients

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	notificationsv1 "user-lifecycle/api/notifications/v1"
	usersv1 "user-lifecycle/api/users/v1"
	"user-lifecycle/pkg/config"
	grpcpkg "user-lifecycle/pkg/grpc"
	"user-lifecycle/pkg/tls"
)

// Clients holds all gRPC clients for the gateway
type Clients struct {
	Users         usersv1.UserServiceClient
	Notifications notificationsv1.NotificationServiceClient

	usersConn         *grpc.ClientConn
	notificationsConn *grpc.ClientConn
}

// NewClients creates all gRPC clients for the gateway. Connections are lazy,
// so an upstream that is down at startup only fails its own calls.
func NewClients(cfg *config.Config) (*Clients, error) {
	usersConn, err := createConnection(cfg, cfg.UsersGRPCAddr)
	if err != nil {
		return nil, err
	}

	notificationsConn, err := createConnection(cfg, cfg.NotificationsGRPCAddr)
	if err != nil {
		usersConn.Close()
		return nil, err
	}

	return &Clients{
		Users:             usersv1.NewUserServiceClient(usersConn),
		Notifications:     notificationsv1.NewNotificationServiceClient(notificationsConn),
		usersConn:         usersConn,
		notificationsConn: notificationsConn,
	}, nil
}

// Close closes all gRPC connections
func (c *Clients) Close() error {
	if c.usersConn != nil {
		c.usersConn.Close()
	}
	if c.notificationsConn != nil {
		c.notificationsConn.Close()
	}
	return nil
}

func createConnection(cfg *config.Config, addr string) (*grpc.ClientConn, error) {
	opts := []grpc.DialOption{
		grpc.WithUnaryInterceptor(grpcpkg.UnaryClientInterceptor(cfg.GRPCTimeout)),
		grpcpkg.CallOption(),
	}

	// Configure TLS/mTLS
	if cfg.GRPCMTLSEnabled {
		tlsConfig, err := tls.ClientConfig(
			cfg.GRPCClientCert,
			cfg.GRPCClientKey,
			cfg.TLSCAFile,
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	return grpc.Dial(addr, opts...)
}
