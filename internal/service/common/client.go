//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/lookout-monitor/internal/activity"
	"github.com/oshokin/lookout-monitor/internal/api/grpc/control"
	"github.com/oshokin/lookout-monitor/internal/config"
	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
)

// Client wraps a gRPC connection to the control service.
type Client struct {
	// conn is the underlying gRPC connection to the monitor.
	conn *grpc.ClientConn

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errActorRequired is returned when an actor is not provided but is required for the operation.
	errActorRequired = errors.New("actor must be provided")
)

// Dial establishes a gRPC connection to the monitor's control plane.
// The control plane binds to loopback by default; the transport is insecure.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial lookout monitor: %w", err)
	}

	client := &Client{
		conn:        conn,
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetStatus retrieves the engine snapshot.
func (c *Client) GetStatus(ctx context.Context) (*lookout.Status, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	out := new(structpb.Struct)
	if err := c.conn.Invoke(callCtx, control.MethodGetStatus, new(emptypb.Empty), out); err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	st := control.StatusFromStruct(out)

	return &st, nil
}

// Recenter asks the monitor to capture a new forward reference.
func (c *Client) Recenter(ctx context.Context, actor *lookout.Actor) error {
	if actor == nil {
		return errActorRequired
	}

	req, err := control.RecenterRequest(actor)
	if err != nil {
		return fmt.Errorf("build recenter request: %w", err)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if err = c.conn.Invoke(callCtx, control.MethodRecenter, req, new(emptypb.Empty)); err != nil {
		return fmt.Errorf("recenter: %w", err)
	}

	return nil
}

// SetActivity switches the monitor's activity override.
func (c *Client) SetActivity(ctx context.Context, actor *lookout.Actor, mode activity.Mode) error {
	if actor == nil {
		return errActorRequired
	}

	req, err := control.ActivityRequest(actor, mode)
	if err != nil {
		return fmt.Errorf("build activity request: %w", err)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if err = c.conn.Invoke(callCtx, control.MethodSetActivity, req, new(emptypb.Empty)); err != nil {
		return fmt.Errorf("set activity: %w", err)
	}

	return nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
