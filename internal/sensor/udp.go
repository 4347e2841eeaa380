package sensor

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"net"
	"sync"
	"time"

	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
	"github.com/oshokin/lookout-monitor/internal/logger"
)

const (
	// openTrackValues is the number of float64 values in an OpenTrack packet:
	// x, y, z, yaw, pitch, roll.
	openTrackValues = 6
	openTrackSize   = openTrackValues * 8

	openTrackYawOffset   = 3 * 8
	openTrackPitchOffset = 4 * 8

	maxDatagramSize = 1500
)

// UDP receives OpenTrack "UDP over network" packets.
type UDP struct {
	conn   net.PacketConn
	latest *latest

	closeOnce sync.Once
	done      chan struct{}
}

// ListenUDP binds address and starts reading packets in the background.
func ListenUDP(ctx context.Context, address string, staleAfter time.Duration, opts ...Option) (*UDP, error) {
	var lc net.ListenConfig

	conn, err := lc.ListenPacket(ctx, "udp", address)
	if err != nil {
		return nil, fmt.Errorf("listen for orientation packets: %w", err)
	}

	u := &UDP{
		conn:   conn,
		latest: newLatest(staleAfter, opts),
		done:   make(chan struct{}),
	}

	go u.readLoop(logger.WithName(ctx, "udp-sensor"))

	logger.InfoKV(ctx, "Listening for OpenTrack packets", "address", conn.LocalAddr().String())

	return u, nil
}

// Addr returns the bound local address.
func (u *UDP) Addr() net.Addr {
	return u.conn.LocalAddr()
}

// Poll returns the latest fresh sample.
func (u *UDP) Poll(_ context.Context) (lookout.Sample, error) {
	return u.latest.load()
}

// Close stops the reader and releases the socket.
func (u *UDP) Close() error {
	var err error

	u.closeOnce.Do(func() {
		close(u.done)
		err = u.conn.Close()
	})

	return err
}

func (u *UDP) readLoop(ctx context.Context) {
	buf := make([]byte, maxDatagramSize)

	for {
		n, _, err := u.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-u.done:
				return
			default:
			}

			if errors.Is(err, net.ErrClosed) {
				return
			}

			logger.WarnKV(ctx, "Orientation packet read failed", "error", err)

			continue
		}

		yaw, pitch, err := decodeOpenTrack(buf[:n])
		if err != nil {
			logger.DebugKV(ctx, "Orientation packet dropped", "size", n, "error", err)

			continue
		}

		u.latest.store(yaw, pitch)
	}
}

// decodeOpenTrack extracts yaw and pitch from a packet of six little-endian
// float64 values.
func decodeOpenTrack(packet []byte) (float64, float64, error) {
	if len(packet) < openTrackSize {
		return 0, 0, fmt.Errorf("%w: %d bytes, want %d", errMalformedPacket, len(packet), openTrackSize)
	}

	yaw := math.Float64frombits(binary.LittleEndian.Uint64(packet[openTrackYawOffset:]))
	pitch := math.Float64frombits(binary.LittleEndian.Uint64(packet[openTrackPitchOffset:]))

	if math.IsNaN(yaw) || math.IsInf(yaw, 0) || math.IsNaN(pitch) || math.IsInf(pitch, 0) {
		return 0, 0, fmt.Errorf("%w: non-finite angle", errMalformedPacket)
	}

	return yaw, pitch, nil
}

// EncodeOpenTrack builds a packet in the OpenTrack layout. Position and roll
// are zero.
func EncodeOpenTrack(yaw, pitch float64) []byte {
	packet := make([]byte, openTrackSize)

	binary.LittleEndian.PutUint64(packet[openTrackYawOffset:], math.Float64bits(yaw))
	binary.LittleEndian.PutUint64(packet[openTrackPitchOffset:], math.Float64bits(pitch))

	return packet
}
