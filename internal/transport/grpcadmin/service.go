// Package grpcadmin serves the administrative event operations and the
// standard health service over gRPC. Messages are protobuf well-known types,
// so the service descriptor is declared by hand.
package grpcadmin

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/nsridhar76/go-orderevents/internal/domain"
)

const (
	ServiceName       = "orderevents.v1.EventAdmin"
	DeleteEventMethod = "/" + ServiceName + "/DeleteEvent"
)

// EventAdminServer is the server API of orderevents.v1.EventAdmin.
type EventAdminServer interface {
	DeleteEvent(ctx context.Context, id *wrapperspb.Int64Value) (*emptypb.Empty, error)
}

var eventAdminServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EventAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "DeleteEvent", Handler: deleteEventHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orderevents/v1/event_admin.proto",
}

func deleteEventHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EventAdminServer).DeleteEvent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DeleteEventMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EventAdminServer).DeleteEvent(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterEventAdminServer registers srv on s.
func RegisterEventAdminServer(s grpc.ServiceRegistrar, srv EventAdminServer) {
	s.RegisterService(&eventAdminServiceDesc, srv)
}

// EventAdminClient calls orderevents.v1.EventAdmin.
type EventAdminClient struct {
	cc grpc.ClientConnInterface
}

// NewEventAdminClient creates an EventAdminClient on cc.
func NewEventAdminClient(cc grpc.ClientConnInterface) *EventAdminClient {
	return &EventAdminClient{cc: cc}
}

// DeleteEvent removes the event with id.
func (c *EventAdminClient) DeleteEvent(ctx context.Context, id int64, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, DeleteEventMethod, wrapperspb.Int64(id), new(emptypb.Empty), opts...)
}

type eventDeleter interface {
	DeleteEvent(ctx context.Context, id int64) error
}

type eventAdmin struct {
	events eventDeleter
}

func (s *eventAdmin) DeleteEvent(ctx context.Context, in *wrapperspb.Int64Value) (*emptypb.Empty, error) {
	if err := s.events.DeleteEvent(ctx, in.GetValue()); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthenticated")
	case errors.Is(err, domain.ErrForbidden):
		return status.Error(codes.PermissionDenied, "permission denied")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
