package control

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/lookout-monitor/internal/activity"
	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
	"github.com/oshokin/lookout-monitor/internal/logger"
)

// Service abstracts the monitor operations the transport layer depends on.
type Service interface {
	Status(ctx context.Context) lookout.Status
	RequestRecenter(ctx context.Context, actor *lookout.Actor) error
	SetActivityMode(ctx context.Context, actor *lookout.Actor, mode activity.Mode) error
}

// Server implements the ControlService gRPC API.
type Server struct {
	// service provides the monitor operations.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// GetStatus returns a snapshot of the engine.
func (s *Server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := StatusToStruct(s.service.Status(ctx))
	if err != nil {
		logger.ErrorKV(ctx, "Status encoding failed", "error", err)

		return nil, status.Error(codes.Internal, "unable to encode status")
	}

	return out, nil
}

// Recenter asks the monitor to capture a new forward reference on the next tick.
func (s *Server) Recenter(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	actor, ok := actorFromStruct(req)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "requested_by is required")
	}

	if err := s.service.RequestRecenter(ctx, actor); err != nil {
		return nil, status.Error(codes.Unavailable, "unable to request recenter")
	}

	return new(emptypb.Empty), nil
}

// SetActivity switches the activity override.
func (s *Server) SetActivity(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	actor, ok := actorFromStruct(req)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "requested_by is required")
	}

	mode, err := activity.ParseMode(req.GetFields()[fieldMode].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err = s.service.SetActivityMode(ctx, actor, mode); err != nil {
		return nil, status.Error(codes.Unavailable, "unable to set activity mode")
	}

	return new(emptypb.Empty), nil
}
