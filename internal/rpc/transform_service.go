// Package rpc exposes a *tf.BufferCore over gRPC without protoc-generated
// message types: request/response structs carry json tags and travel over
// a process-wide JSON codec (codec.go) registered under the content
// subtype "json", rather than the usual protobuf wire format. The
// grpc.ServiceDesc in service_desc.go is hand-written the way codegen
// would produce it: RegisterService, one handler per RPC, codes.* error
// mapping, just without a generated pb package backing the messages.
package rpc

import (
	"context"
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/banshee-data/tfgraph/tf"
)

// SetTransformRequest carries one parent-link sample. Rotation is a unit
// quaternion (Qw is the real part), matching tf.Transform's layout.
type SetTransformRequest struct {
	ChildFrame    string  `json:"child_frame"`
	ParentFrame   string  `json:"parent_frame"`
	StampUnixNano int64   `json:"stamp_unix_nano"`
	Tx            float64 `json:"tx"`
	Ty            float64 `json:"ty"`
	Tz            float64 `json:"tz"`
	Qx            float64 `json:"qx"`
	Qy            float64 `json:"qy"`
	Qz            float64 `json:"qz"`
	Qw            float64 `json:"qw"`
	Authority     string  `json:"authority"`
}

type SetTransformResponse struct {
	Accepted bool `json:"accepted"`
}

type LookupTransformRequest struct {
	Target        string `json:"target"`
	Source        string `json:"source"`
	StampUnixNano int64  `json:"stamp_unix_nano"` // 0 means "latest"
}

type LookupTransformResponse struct {
	Tx            float64 `json:"tx"`
	Ty            float64 `json:"ty"`
	Tz            float64 `json:"tz"`
	Qx            float64 `json:"qx"`
	Qy            float64 `json:"qy"`
	Qz            float64 `json:"qz"`
	Qw            float64 `json:"qw"`
	StampUnixNano int64   `json:"stamp_unix_nano"`
}

type CanTransformRequest struct {
	Target        string `json:"target"`
	Source        string `json:"source"`
	StampUnixNano int64  `json:"stamp_unix_nano"`
}

type CanTransformResponse struct {
	Ok     bool   `json:"ok"`
	Reason string `json:"reason"`
}

type GetLatestCommonTimeRequest struct {
	Target string `json:"target"`
	Source string `json:"source"`
}

type GetLatestCommonTimeResponse struct {
	StampUnixNano int64 `json:"stamp_unix_nano"`
}

// TransformServiceServer is the interface Server implements over a shared
// *tf.BufferCore; cmd/tfserver registers a Server with the gRPC server.
type TransformServiceServer interface {
	SetTransform(context.Context, *SetTransformRequest) (*SetTransformResponse, error)
	LookupTransform(context.Context, *LookupTransformRequest) (*LookupTransformResponse, error)
	CanTransform(context.Context, *CanTransformRequest) (*CanTransformResponse, error)
	GetLatestCommonTime(context.Context, *GetLatestCommonTimeRequest) (*GetLatestCommonTimeResponse, error)
}

// Server adapts a *tf.BufferCore to TransformServiceServer, translating
// tf's typed errors to grpc status codes.
type Server struct {
	Buffer *tf.BufferCore
}

func (s *Server) SetTransform(ctx context.Context, req *SetTransformRequest) (*SetTransformResponse, error) {
	tr := tf.Transform{
		Translation: r3Vec(req.Tx, req.Ty, req.Tz),
		Rotation:    quatNumber(req.Qw, req.Qx, req.Qy, req.Qz),
	}
	ok := s.Buffer.SetTransform(req.ChildFrame, req.ParentFrame, time.Unix(0, req.StampUnixNano), tr, req.Authority)
	return &SetTransformResponse{Accepted: ok}, nil
}

func (s *Server) LookupTransform(ctx context.Context, req *LookupTransformRequest) (*LookupTransformResponse, error) {
	stamped, err := s.Buffer.LookupTransform(req.Target, req.Source, stampOrLatest(req.StampUnixNano))
	if err != nil {
		return nil, statusFromError(err)
	}
	return &LookupTransformResponse{
		Tx: stamped.Transform.Translation.X, Ty: stamped.Transform.Translation.Y, Tz: stamped.Transform.Translation.Z,
		Qw: stamped.Transform.Rotation.Real, Qx: stamped.Transform.Rotation.Imag, Qy: stamped.Transform.Rotation.Jmag, Qz: stamped.Transform.Rotation.Kmag,
		StampUnixNano: stamped.Stamp.UnixNano(),
	}, nil
}

func (s *Server) CanTransform(ctx context.Context, req *CanTransformRequest) (*CanTransformResponse, error) {
	ok, reason := s.Buffer.CanTransform(req.Target, req.Source, stampOrLatest(req.StampUnixNano))
	return &CanTransformResponse{Ok: ok, Reason: reason}, nil
}

// stampOrLatest maps the wire zero value to the "latest" sentinel
// (the zero time.Time), rather than the Unix epoch: a caller that never
// sets StampUnixNano wants BufferCore to resolve the latest common time,
// not a lookup pinned to 1970-01-01.
func stampOrLatest(nanos int64) time.Time {
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

func (s *Server) GetLatestCommonTime(ctx context.Context, req *GetLatestCommonTimeRequest) (*GetLatestCommonTimeResponse, error) {
	t, err := s.Buffer.GetLatestCommonTime(req.Target, req.Source)
	if err != nil {
		return nil, statusFromError(err)
	}
	return &GetLatestCommonTimeResponse{StampUnixNano: t.UnixNano()}, nil
}

// statusFromError maps tf's typed errors to grpc status codes.
func statusFromError(err error) error {
	switch tf.CodeOf(err) {
	case tf.LookupErrorCode:
		return status.Error(codes.NotFound, err.Error())
	case tf.ConnectivityErrorCode:
		return status.Error(codes.FailedPrecondition, err.Error())
	case tf.ExtrapolationErrorCode:
		return status.Error(codes.OutOfRange, err.Error())
	default:
		return status.Error(codes.InvalidArgument, err.Error())
	}
}

func r3Vec(x, y, z float64) r3.Vec {
	return r3.Vec{X: x, Y: y, Z: z}
}

func quatNumber(w, x, y, z float64) quat.Number {
	return quat.Number{Real: w, Imag: x, Jmag: y, Kmag: z}
}
