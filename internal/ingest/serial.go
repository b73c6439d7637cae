// Package ingest turns external pose telemetry into tf.BufferCore.SetTransform
// calls. SerialSource reads whitespace-delimited pose lines off a serial
// port; PcapSource (pcap.go, build-tagged) sniffs them off a UDP broadcast.
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/banshee-data/tfgraph/tf"
)

// SerialPortInterface is the subset of go.bug.st/serial.Port SerialSource
// needs, narrowed so tests can supply an in-memory reader/writer instead of
// a real device.
type SerialPortInterface interface {
	io.ReadWriteCloser
}

// SerialSource reads pose telemetry lines off a serial port and applies
// each one to a Buffer via SetTransform. Lines are whitespace-delimited:
//
//	child_frame parent_frame stamp_unix_nano tx ty tz qw qx qy qz
//
// A line that fails to parse is logged and skipped rather than treated as
// fatal — one malformed telemetry line should never take down the feed.
type SerialSource struct {
	port      SerialPortInterface
	buffer    *tf.BufferCore
	authority string
}

// NewSerialSource opens portName at 115200-8-N-1.
func NewSerialSource(portName string, buffer *tf.BufferCore, authority string) (*SerialSource, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: 1,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, err
	}
	return &SerialSource{port: port, buffer: buffer, authority: authority}, nil
}

// NewSerialSourceFromPort wraps an already-open port (or a test double),
// skipping NewSerialSource's serial.Open call.
func NewSerialSourceFromPort(port SerialPortInterface, buffer *tf.BufferCore, authority string) *SerialSource {
	return &SerialSource{port: port, buffer: buffer, authority: authority}
}

// Monitor reads lines from the port until ctx is cancelled or the port is
// exhausted/closed, applying each parsed line to the buffer.
func (s *SerialSource) Monitor(ctx context.Context) error {
	defer s.port.Close()
	scan := bufio.NewScanner(s.port)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if !scan.Scan() {
				return scan.Err()
			}
			line := scan.Text()
			sample, err := parsePoseLine(line)
			if err != nil {
				log.Printf("ingest: skipping malformed pose line %q: %v", line, err)
				continue
			}
			s.buffer.SetTransform(sample.childFrame, sample.parentFrame, sample.stamp, sample.transform, s.authority)
		}
	}
}

type poseLine struct {
	childFrame  string
	parentFrame string
	stamp       time.Time
	transform   tf.Transform
}

func parsePoseLine(line string) (poseLine, error) {
	fields := strings.Fields(line)
	if len(fields) != 10 {
		return poseLine{}, fmt.Errorf("expected 10 fields, got %d", len(fields))
	}
	nums := make([]float64, 8)
	for i, f := range fields[2:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return poseLine{}, fmt.Errorf("field %d: %w", i+3, err)
		}
		nums[i] = v
	}
	return poseLine{
		childFrame:  fields[0],
		parentFrame: fields[1],
		stamp:       time.Unix(0, int64(nums[0])),
		transform: tf.Transform{
			Translation: r3Vec(nums[1], nums[2], nums[3]),
			Rotation:    quatNumber(nums[4], nums[5], nums[6], nums[7]),
		},
	}, nil
}
