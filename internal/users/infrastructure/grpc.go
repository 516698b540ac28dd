package infrastructure

import (
	"context"
	"time"

	usersv1 "user-lifecycle/api/users/v1"
	"user-lifecycle/internal/users/application"
	"user-lifecycle/internal/users/domain"
)

// GRPCServer implements the gRPC UserServiceServer
type GRPCServer struct {
	usersv1.UnimplementedUserServiceServer
	useCase *application.UserUseCase
}

// NewGRPCServer creates a new gRPC server
func NewGRPCServer(useCase *application.UserUseCase) *GRPCServer {
	return &GRPCServer{useCase: useCase}
}

func toProto(u *domain.User) *usersv1.UserResponse {
	return &usersv1.UserResponse{
		Id:        uint64(u.ID),
		Name:      u.Name,
		Email:     u.Email,
		Age:       int32(u.Age),
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// GetUser implements UserServiceServer.GetUser
func (s *GRPCServer) GetUser(ctx context.Context, req *usersv1.GetUserRequest) (*usersv1.UserResponse, error) {
	output, err := s.useCase.GetUser(ctx, application.GetUserInput{ID: uint(req.Id)})
	if err != nil {
		return nil, err
	}
	return toProto(output.User), nil
}

// CreateUser implements UserServiceServer.CreateUser
func (s *GRPCServer) CreateUser(ctx context.Context, req *usersv1.CreateUserRequest) (*usersv1.UserResponse, error) {
	output, err := s.useCase.CreateUser(ctx, application.CreateUserInput{
		Name:  req.Name,
		Email: req.Email,
		Age:   int(req.Age),
	})
	if err != nil {
		return nil, err
	}
	return toProto(output.User), nil
}

// UpdateUser implements UserServiceServer.UpdateUser
func (s *GRPCServer) UpdateUser(ctx context.Context, req *usersv1.UpdateUserRequest) (*usersv1.UserResponse, error) {
	output, err := s.useCase.UpdateUser(ctx, application.UpdateUserInput{
		ID:    uint(req.Id),
		Name:  req.Name,
		Email: req.Email,
		Age:   int(req.Age),
	})
	if err != nil {
		return nil, err
	}
	return toProto(output.User), nil
}

// DeleteUser implements UserServiceServer.DeleteUser
func (s *GRPCServer) DeleteUser(ctx context.Context, req *usersv1.DeleteUserRequest) (*usersv1.DeleteUserResponse, error) {
	if err := s.useCase.DeleteUser(ctx, application.DeleteUserInput{ID: uint(req.Id)}); err != nil {
		return nil, err
	}
	return &usersv1.DeleteUserResponse{}, nil
}
