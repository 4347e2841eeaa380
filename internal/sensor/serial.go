package sensor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
	"github.com/oshokin/lookout-monitor/internal/logger"
)

// Serial reads "yaw,pitch[,roll]" lines from an IMU head tracker.
type Serial struct {
	port   io.ReadCloser
	latest *latest

	closeOnce sync.Once
}

// PortOptions describes the serial line. Zero values select 8N1 at 115200 baud.
type PortOptions struct {
	BaudRate int
}

// Mode converts the options to the go.bug.st/serial representation.
func (o PortOptions) Mode() *serial.Mode {
	baud := o.BaudRate
	if baud <= 0 {
		baud = 115200
	}

	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// OpenSerial opens the named port and starts reading lines in the background.
func OpenSerial(ctx context.Context, name string, opts PortOptions, staleAfter time.Duration, options ...Option) (*Serial, error) {
	port, err := serial.Open(name, opts.Mode())
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}

	logger.InfoKV(ctx, "Reading orientation from serial port", "port", name, "baud_rate", opts.Mode().BaudRate)

	return NewSerial(ctx, port, staleAfter, options...), nil
}

// NewSerial reads orientation lines from an already open stream.
func NewSerial(ctx context.Context, port io.ReadCloser, staleAfter time.Duration, opts ...Option) *Serial {
	s := &Serial{
		port:   port,
		latest: newLatest(staleAfter, opts),
	}

	go s.readLoop(logger.WithName(ctx, "serial-sensor"))

	return s
}

// Poll returns the latest fresh sample.
func (s *Serial) Poll(_ context.Context) (lookout.Sample, error) {
	return s.latest.load()
}

// Close releases the port, which also ends the reader.
func (s *Serial) Close() error {
	var err error

	s.closeOnce.Do(func() {
		err = s.port.Close()
	})

	return err
}

func (s *Serial) readLoop(ctx context.Context) {
	scan := bufio.NewScanner(s.port)

	for scan.Scan() {
		yaw, pitch, err := parseLine(scan.Text())
		if err != nil {
			logger.DebugKV(ctx, "Orientation line dropped", "error", err)

			continue
		}

		s.latest.store(yaw, pitch)
	}

	if err := scan.Err(); err != nil {
		logger.WarnKV(ctx, "Serial orientation stream ended", "error", err)
	}
}

// parseLine decodes "yaw,pitch" or "yaw,pitch,roll" in degrees. Roll is
// validated and ignored.
func parseLine(line string) (float64, float64, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, 0, fmt.Errorf("%w: empty", errMalformedLine)
	}

	fields := strings.Split(line, ",")
	if len(fields) < 2 || len(fields) > 3 {
		return 0, 0, fmt.Errorf("%w: %d fields in %q", errMalformedLine, len(fields), line)
	}

	values := make([]float64, len(fields))

	for i, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, fmt.Errorf("%w: field %d of %q", errMalformedLine, i+1, line)
		}

		values[i] = v
	}

	return values[0], values[1], nil
}
