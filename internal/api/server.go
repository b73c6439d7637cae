// Package api exposes a *tf.BufferCore as JSON-over-HTTP, plus a
// tsweb.Debugger-mounted set of debug routes.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/tfgraph/internal/diagnostics"
	"github.com/banshee-data/tfgraph/internal/httputil"
	"github.com/banshee-data/tfgraph/internal/store"
	"github.com/banshee-data/tfgraph/internal/version"
	"github.com/banshee-data/tfgraph/tf"
)

const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server adapts a *tf.BufferCore to JSON-over-HTTP, optionally recording
// every SetTransform call to an audit Store.
type Server struct {
	Buffer *tf.BufferCore
	Store  *store.Store // optional; nil disables audit logging and the SQL browser
}

func NewServer(buf *tf.BufferCore, st *store.Store) *Server {
	return &Server{Buffer: buf, Store: st}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux wires the JSON operations, the debug routes and, if Store is
// set, the audit-log admin routes (AttachAdminRoutes) onto the same mux.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/tf/set", s.setTransformHandler)
	mux.HandleFunc("/tf/lookup", s.lookupTransformHandler)
	mux.HandleFunc("/tf/can", s.canTransformHandler)
	mux.HandleFunc("/tf/latest-common", s.latestCommonTimeHandler)
	mux.HandleFunc("/tf/clear", s.clearHandler)
	s.attachDebugRoutes(mux)
	if s.Store != nil {
		s.Store.AttachAdminRoutes(mux)
	}
	return mux
}

func statusForError(err error) int {
	switch tf.CodeOf(err) {
	case tf.LookupErrorCode:
		return http.StatusNotFound
	case tf.ConnectivityErrorCode:
		return http.StatusConflict
	case tf.ExtrapolationErrorCode:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

type setTransformRequest struct {
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

func (s *Server) setTransformHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req setTransformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid body: %v", err))
		return
	}
	tr := tf.Transform{
		Translation: r3Vec(req.Tx, req.Ty, req.Tz),
		Rotation:    quatNumber(req.Qw, req.Qx, req.Qy, req.Qz),
	}
	stamp := time.Unix(0, req.StampUnixNano)
	ok := s.Buffer.SetTransform(req.ChildFrame, req.ParentFrame, stamp, tr, req.Authority)

	if s.Store != nil {
		reason := ""
		if !ok {
			reason = "rejected: stale data, invalid frame names, or non-finite transform"
		}
		if err := s.Store.RecordSetTransform(store.AuditEntry{
			ChildFrame: req.ChildFrame, ParentFrame: req.ParentFrame,
			Stamp: stamp, Authority: req.Authority, Accepted: ok, Reason: reason,
		}); err != nil {
			log.Printf("audit log write failed: %v", err)
		}
	}

	httputil.WriteJSONOK(w, map[string]bool{"accepted": ok})
}

func (s *Server) lookupTransformHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	target, source := q.Get("target"), q.Get("source")
	stamp := parseStampOrZero(q.Get("stamp_unix_nano"))

	stamped, err := s.Buffer.LookupTransform(target, source, stamp)
	if err != nil {
		httputil.WriteJSONError(w, statusForError(err), err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"tx": stamped.Transform.Translation.X, "ty": stamped.Transform.Translation.Y, "tz": stamped.Transform.Translation.Z,
		"qw": stamped.Transform.Rotation.Real, "qx": stamped.Transform.Rotation.Imag,
		"qy": stamped.Transform.Rotation.Jmag, "qz": stamped.Transform.Rotation.Kmag,
		"stamp_unix_nano": stamped.Stamp.UnixNano(),
	})
}

func (s *Server) canTransformHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	ok, reason := s.Buffer.CanTransform(q.Get("target"), q.Get("source"), parseStampOrZero(q.Get("stamp_unix_nano")))
	httputil.WriteJSONOK(w, map[string]interface{}{"ok": ok, "reason": reason})
}

func (s *Server) latestCommonTimeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	t, err := s.Buffer.GetLatestCommonTime(q.Get("target"), q.Get("source"))
	if err != nil {
		httputil.WriteJSONError(w, statusForError(err), err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]int64{"stamp_unix_nano": t.UnixNano()})
}

func (s *Server) clearHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.Buffer.Clear()
	httputil.WriteJSONOK(w, map[string]bool{"cleared": true})
}

// attachDebugRoutes mounts the read-only debug surface through
// tsweb.Debugger: the frame tree as plain text, a chart of cache depth and
// age, and the running binary's version stamp.
func (s *Server) attachDebugRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("tf/frames", "dump the registered frame tree", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, s.Buffer.AllFramesAsString())
	})
	debug.HandleFunc("tf/chart", "chart per-frame cache depth and age", diagnostics.Handler(s.Buffer))
	debug.HandleFunc("version", "show the running binary's version stamp", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSONOK(w, map[string]string{
			"version":    version.Version,
			"git_sha":    version.GitSHA,
			"build_time": version.BuildTime,
		})
	})
}

func parseStampOrZero(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n)
}
