package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/tfgraph/internal/testutil"
	"github.com/banshee-data/tfgraph/tf"
)

func newTestServer() *Server {
	return &Server{Buffer: tf.New(0, 0)}
}

func TestSetTransformAndLookupHandlers(t *testing.T) {
	s := newTestServer()
	mux := s.ServeMux()

	body, _ := json.Marshal(map[string]interface{}{
		"child_frame": "base", "parent_frame": "world", "qw": 1, "tx": 1, "ty": 2, "tz": 3, "authority": "test",
	})
	req := httptest.NewRequest(http.MethodPost, "/tf/set", bytes.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /tf/set: status=%d body=%s", w.Code, w.Body.String())
	}
	var setResp map[string]bool
	if err := json.Unmarshal(w.Body.Bytes(), &setResp); err != nil || !setResp["accepted"] {
		t.Fatalf("POST /tf/set: resp=%v err=%v", setResp, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/tf/lookup?target=world&source=base", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /tf/lookup: status=%d body=%s", w.Code, w.Body.String())
	}
	var lookupResp map[string]float64
	if err := json.Unmarshal(w.Body.Bytes(), &lookupResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if lookupResp["tx"] != 1 || lookupResp["ty"] != 2 || lookupResp["tz"] != 3 {
		t.Fatalf("translation = %+v, want (1,2,3)", lookupResp)
	}
}

func TestLookupTransformHandlerMapsUnknownFrameTo404(t *testing.T) {
	s := newTestServer()
	mux := s.ServeMux()
	req := httptest.NewRequest(http.MethodGet, "/tf/lookup?target=world&source=ghost", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestCanTransformHandlerReportsFalseWithoutErrorStatus(t *testing.T) {
	s := newTestServer()
	mux := s.ServeMux()
	req := httptest.NewRequest(http.MethodGet, "/tf/can?target=world&source=ghost", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["ok"] != false {
		t.Fatalf("resp = %+v, want ok=false", resp)
	}
}

func TestClearHandlerResetsBuffer(t *testing.T) {
	s := newTestServer()
	mux := s.ServeMux()
	body, _ := json.Marshal(map[string]interface{}{"child_frame": "base", "parent_frame": "world", "qw": 1, "authority": "t"})
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/tf/set", bytes.NewReader(body)))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tf/clear", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("POST /tf/clear: status=%d", w.Code)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tf/lookup?target=world&source=base", nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("after clear, lookup status = %d, want 409", w.Code)
	}
}

func TestDebugFramesRouteListsRegisteredFrames(t *testing.T) {
	s := newTestServer()
	mux := s.ServeMux()
	body, _ := json.Marshal(map[string]interface{}{"child_frame": "base", "parent_frame": "world", "qw": 1, "authority": "t"})
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/tf/set", bytes.NewReader(body)))

	w := httptest.NewRecorder()
	debugReq := httptest.NewRequest(http.MethodGet, "/debug/tf/frames", nil)
	debugReq.RemoteAddr = "127.0.0.1:12345"
	mux.ServeHTTP(w, debugReq)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /debug/tf/frames: status=%d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("base")) {
		t.Fatalf("body = %q, want it to mention frame 'base'", w.Body.String())
	}
}

func TestDebugChartRouteRendersHTML(t *testing.T) {
	s := newTestServer()
	mux := s.ServeMux()
	body, _ := json.Marshal(map[string]interface{}{"child_frame": "base", "parent_frame": "world", "qw": 1, "authority": "t"})
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/tf/set", bytes.NewReader(body)))

	w := httptest.NewRecorder()
	debugReq := httptest.NewRequest(http.MethodGet, "/debug/tf/chart", nil)
	debugReq.RemoteAddr = "127.0.0.1:12345"
	mux.ServeHTTP(w, debugReq)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /debug/tf/chart: status=%d body=%s", w.Code, w.Body.String())
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("<html")) {
		t.Fatalf("body does not look like rendered HTML: %q", w.Body.String()[:min(200, w.Body.Len())])
	}
}

func TestMethodNotAllowedOnWrongVerb(t *testing.T) {
	s := newTestServer()
	mux := s.ServeMux()
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tf/set", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
}

func TestDebugVersionRouteReportsVersionStamp(t *testing.T) {
	s := newTestServer()
	mux := s.ServeMux()

	w := httptest.NewRecorder()
	debugReq := httptest.NewRequest(http.MethodGet, "/debug/version", nil)
	debugReq.RemoteAddr = "127.0.0.1:12345"
	mux.ServeHTTP(w, debugReq)
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var resp map[string]string
	testutil.AssertNoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	if resp["version"] == "" {
		t.Fatalf("resp = %+v, want a non-empty version field", resp)
	}
}
