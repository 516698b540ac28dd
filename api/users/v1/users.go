// Package usersv1 is the gRPC contract of the users service. Messages are
// plain structs carried by the JSON codec registered in pkg/grpc.
package usersv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const serviceName = "users.v1.UserService"

// Full method names
const (
	UserService_GetUser_FullMethodName    = "/" + serviceName + "/GetUser"
	UserService_CreateUser_FullMethodName = "/" + serviceName + "/CreateUser"
	UserService_UpdateUser_FullMethodName = "/" + serviceName + "/UpdateUser"
	UserService_DeleteUser_FullMethodName = "/" + serviceName + "/DeleteUser"
)

type GetUserRequest struct {
	Id uint64 `json:"id"`
}

type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   int32  `json:"age"`
}

type UpdateUserRequest struct {
	Id    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   int32  `json:"age"`
}

type DeleteUserRequest struct {
	Id uint64 `json:"id"`
}

type DeleteUserResponse struct{}

type UserResponse struct {
	Id        uint64 `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Age       int32  `json:"age"`
	CreatedAt string `json:"created_at"`
}

// UserServiceClient is the client API for UserService.
type UserServiceClient interface {
	GetUser(ctx context.Context, in *GetUserRequest, opts ...grpc.CallOption) (*UserResponse, error)
	CreateUser(ctx context.Context, in *CreateUserRequest, opts ...grpc.CallOption) (*UserResponse, error)
	UpdateUser(ctx context.Context, in *UpdateUserRequest, opts ...grpc.CallOption) (*UserResponse, error)
	DeleteUser(ctx context.Context, in *DeleteUserRequest, opts ...grpc.CallOption) (*DeleteUserResponse, error)
}

type userServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewUserServiceClient creates a client over an established connection.
func NewUserServiceClient(cc grpc.ClientConnInterface) UserServiceClient {
	return &userServiceClient{cc}
}

func (c *userServiceClient) GetUser(ctx context.Context, in *GetUserRequest, opts ...grpc.CallOption) (*UserResponse, error) {
	out := new(UserResponse)
	if err := c.cc.Invoke(ctx, UserService_GetUser_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *userServiceClient) CreateUser(ctx context.Context, in *CreateUserRequest, opts ...grpc.CallOption) (*UserResponse, error) {
	out := new(UserResponse)
	if err := c.cc.Invoke(ctx, UserService_CreateUser_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *userServiceClient) UpdateUser(ctx context.Context, in *UpdateUserRequest, opts ...grpc.CallOption) (*UserResponse, error) {
	out := new(UserResponse)
	if err := c.cc.Invoke(ctx, UserService_UpdateUser_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *userServiceClient) DeleteUser(ctx context.Context, in *DeleteUserRequest, opts ...grpc.CallOption) (*DeleteUserResponse, error) {
	out := new(DeleteUserResponse)
	if err := c.cc.Invoke(ctx, UserService_DeleteUser_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// UserServiceServer is the server API for UserService.
type UserServiceServer interface {
	GetUser(context.Context, *GetUserRequest) (*UserResponse, error)
	CreateUser(context.Context, *CreateUserRequest) (*UserResponse, error)
	UpdateUser(context.Context, *UpdateUserRequest) (*UserResponse, error)
	DeleteUser(context.Context, *DeleteUserRequest) (*DeleteUserResponse, error)
}

// UnimplementedUserServiceServer can be embedded to have forward compatible implementations.
type UnimplementedUserServiceServer struct{}

func (UnimplementedUserServiceServer) GetUser(context.Context, *GetUserRequest) (*UserResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetUser not implemented")
}

func (UnimplementedUserServiceServer) CreateUser(context.Context, *CreateUserRequest) (*UserResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CreateUser not implemented")
}

func (UnimplementedUserServiceServer) UpdateUser(context.Context, *UpdateUserRequest) (*UserResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method UpdateUser not implemented")
}

func (UnimplementedUserServiceServer) DeleteUser(context.Context, *DeleteUserRequest) (*DeleteUserResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method DeleteUser not implemented")
}

// RegisterUserServiceServer registers srv on s.
func RegisterUserServiceServer(s grpc.ServiceRegistrar, srv UserServiceServer) {
	s.RegisterService(&UserService_ServiceDesc, srv)
}

func unary[Req any](
	fullMethod string,
	call func(srv interface{}, ctx context.Context, req *Req) (interface{}, error),
) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// UserService_ServiceDesc is the grpc.ServiceDesc for UserService.
var UserService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*UserServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetUser",
			Handler: unary(UserService_GetUser_FullMethodName, func(srv interface{}, ctx context.Context, req *GetUserRequest) (interface{}, error) {
				return srv.(UserServiceServer).GetUser(ctx, req)
			}),
		},
		{
			MethodName: "CreateUser",
			Handler: unary(UserService_CreateUser_FullMethodName, func(srv interface{}, ctx context.Context, req *CreateUserRequest) (interface{}, error) {
				return srv.(UserServiceServer).CreateUser(ctx, req)
			}),
		},
		{
			MethodName: "UpdateUser",
			Handler: unary(UserService_UpdateUser_FullMethodName, func(srv interface{}, ctx context.Context, req *UpdateUserRequest) (interface{}, error) {
				return srv.(UserServiceServer).UpdateUser(ctx, req)
			}),
		},
		{
			MethodName: "DeleteUser",
			Handler: unary(UserService_DeleteUser_FullMethodName, func(srv interface{}, ctx context.Context, req *DeleteUserRequest) (interface{}, error) {
				return srv.(UserServiceServer).DeleteUser(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "users/v1/users.go",
}
