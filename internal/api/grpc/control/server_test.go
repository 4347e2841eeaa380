package control

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/lookout-monitor/internal/activity"
	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
)

// fakeService implements Service for unit testing the transport.
type fakeService struct {
	// err is returned by the mutating calls when set.
	err error

	status    lookout.Status
	recenters []*lookout.Actor
	modes     []activity.Mode
}

func (f *fakeService) Status(context.Context) lookout.Status { return f.status }

func (f *fakeService) RequestRecenter(_ context.Context, actor *lookout.Actor) error {
	if f.err != nil {
		return f.err
	}

	f.recenters = append(f.recenters, actor)

	return nil
}

func (f *fakeService) SetActivityMode(_ context.Context, _ *lookout.Actor, mode activity.Mode) error {
	if f.err != nil {
		return f.err
	}

	f.modes = append(f.modes, mode)

	return nil
}

func testStatus() lookout.Status {
	return lookout.Status{
		EngineMs:      12050,
		Active:        true,
		CenterYaw:     1.5,
		CenterPitch:   -2,
		RelativeYaw:   -33.25,
		RelativePitch: 4,
		BaselineMode:  "adaptive",
		ActivityMode:  "auto",
		Alarms: []lookout.AlarmStatus{
			{Index: 0, Name: "forward", Enabled: true, IdleMs: 5000, SeenLeft: true, SilencedForMs: 1200},
			{Index: 1, Name: "wide", Enabled: true, Widest: true, WarningActive: true, AlertPlaying: true, AppliedVolume: 75},
		},
	}
}

// TestServer_Validation ensures invalid requests return InvalidArgument errors.
func TestServer_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewServer(new(fakeService))

	_, err := s.Recenter(ctx, nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.Recenter(ctx, new(structpb.Struct))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	actor := &lookout.Actor{Hostname: "sim-rig", Username: "pilot"}

	req, err := ActivityRequest(actor, "sometimes")
	require.NoError(t, err)

	_, err = s.SetActivity(ctx, req)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.SetActivity(ctx, nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestServer_ServiceFailure(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakeService{err: errors.New("monitor stopping")})

	req, err := RecenterRequest(&lookout.Actor{Username: "pilot"})
	require.NoError(t, err)

	_, err = s.Recenter(context.Background(), req)
	require.Equal(t, codes.Unavailable, status.Code(err))
}

func TestStatusStructRoundtrip(t *testing.T) {
	t.Parallel()

	want := testStatus()

	encoded, err := StatusToStruct(want)
	require.NoError(t, err)

	if diff := cmp.Diff(want, StatusFromStruct(encoded)); diff != "" {
		t.Fatalf("status mismatch (-want +got):\n%s", diff)
	}
}

// TestServer_OverGRPC exercises the hand-written descriptor through a real gRPC stack.
func TestServer_OverGRPC(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := &fakeService{status: testStatus()}

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	Register(server, NewServer(svc))

	go func() {
		_ = server.Serve(listener)
	}()

	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })

	out := new(structpb.Struct)
	require.NoError(t, conn.Invoke(ctx, MethodGetStatus, new(emptypb.Empty), out))
	require.Equal(t, "forward", StatusFromStruct(out).Alarms[0].Name)

	actor := &lookout.Actor{Hostname: "sim-rig", Username: "pilot"}

	req, err := RecenterRequest(actor)
	require.NoError(t, err)
	require.NoError(t, conn.Invoke(ctx, MethodRecenter, req, new(emptypb.Empty)))
	require.Equal(t, []*lookout.Actor{actor}, svc.recenters)

	req, err = ActivityRequest(actor, activity.ModeOff)
	require.NoError(t, err)
	require.NoError(t, conn.Invoke(ctx, MethodSetActivity, req, new(emptypb.Empty)))
	require.Equal(t, []activity.Mode{activity.ModeOff}, svc.modes)

	req, err = ActivityRequest(actor, "maybe")
	require.NoError(t, err)

	err = conn.Invoke(ctx, MethodSetActivity, req, new(emptypb.Empty))
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}
