package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"enginehost/internal/manager"
	"enginehost/internal/scope"
	"enginehost/pkg/types"
)

// echoAdapter is the smallest adapter the session endpoints can exercise.
const echoAdapter = `package main

import "enginehost/pkg/types"

func LoadModel(modelDir, modelSource string) error { return nil }

func Run(inputs, outputs []*types.Tensor) error {
	for i, out := range outputs {
		if i < len(inputs) {
			out.Data = append(out.Data[:0], inputs[i].Data...)
		}
	}
	return nil
}

func CloseModel() error { return nil }
`

func installEngine(t *testing.T, root, name string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for fname, content := range map[string]string{
		scope.ManifestFile: "files: []\n",
		scope.AdapterFile:  echoAdapter,
	} {
		if err := os.WriteFile(filepath.Join(dir, fname), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", fname, err)
		}
	}
}

func newTestServer(t *testing.T, names ...string) http.Handler {
	t.Helper()
	root := t.TempDir()
	for _, name := range names {
		installEngine(t, root, name)
	}
	m := manager.New(manager.Config{EnginesDir: root, Logger: zerolog.Nop()})
	t.Cleanup(func() { m.Shutdown(context.Background()) })
	return NewMux(m)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
}

func TestReadyzUnavailable(t *testing.T) {
	m := manager.New(manager.Config{EnginesDir: "/nonexistent/engines", Logger: zerolog.Nop()})
	h := NewMux(m)
	rec := doJSON(t, h, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with missing dir: %d", rec.Code)
	}
}

func TestEnginesCatalog(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/engines", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("engines: %d", rec.Code)
	}
	body := decodeBody[struct {
		Families map[string][]string `json:"families"`
	}](t, rec)
	if len(body.Families["pytorch"]) == 0 {
		t.Fatalf("expected pytorch versions, got %+v", body.Families)
	}
}

func TestEnginesInstalled(t *testing.T) {
	h := newTestServer(t, "pytorch-1.13.1-1.13.1-linux-x86_64-cpu")
	rec := doJSON(t, h, http.MethodGet, "/engines/installed", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("installed: %d %s", rec.Code, rec.Body.String())
	}
	body := decodeBody[types.EnginesResponse](t, rec)
	if len(body.Engines) != 1 || body.Engines[0].Family != "pytorch" {
		t.Fatalf("unexpected engines: %+v", body.Engines)
	}
}

func TestResolveEndpoint(t *testing.T) {
	h := newTestServer(t, "pytorch-1.11.0-1.11.0-linux-x86_64-cpu")

	rec := doJSON(t, h, http.MethodPost, "/resolve", types.ResolveRequest{Family: "pytorch", Version: "1.13.1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve: %d %s", rec.Code, rec.Body.String())
	}
	desc := decodeBody[types.EngineDescriptor](t, rec)
	if desc.ResolvedVersion != "1.11.0" || !desc.Fallback() {
		t.Fatalf("unexpected descriptor: %+v", desc)
	}

	rec = doJSON(t, h, http.MethodPost, "/resolve", types.ResolveRequest{Family: "caffe", Version: "1.0.0"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown family: %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/resolve", types.ResolveRequest{Family: "onnx", Version: "1.13.1"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("not installed: %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/resolve", types.ResolveRequest{Family: "pytorch"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing version: %d", rec.Code)
	}
}

func TestResolveContentType(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/resolve", bytes.NewBufferString(`{"family":"pytorch","version":"1.13.1"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("missing content type: %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/resolve", bytes.NewBufferString(`{"family":`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid json: %d", rec.Code)
	}
}

func TestSessionFlow(t *testing.T) {
	h := newTestServer(t, "pytorch-1.13.1-1.13.1-linux-x86_64-cpu")

	open := types.SessionRequest{
		ResolveRequest: types.ResolveRequest{Family: "pytorch", Version: "1.13.1"},
		ModelDir:       t.TempDir(),
		ModelSource:    "model.bin",
	}
	rec := doJSON(t, h, http.MethodPost, "/sessions", open)
	if rec.Code != http.StatusCreated {
		t.Fatalf("open session: %d %s", rec.Code, rec.Body.String())
	}
	status := decodeBody[types.SessionStatus](t, rec)
	if status.ID == "" || status.State != "loaded" {
		t.Fatalf("unexpected session status: %+v", status)
	}

	rec = doJSON(t, h, http.MethodGet, "/sessions", nil)
	list := decodeBody[struct {
		Sessions []types.SessionStatus `json:"sessions"`
	}](t, rec)
	if len(list.Sessions) != 1 {
		t.Fatalf("expected one session, got %+v", list.Sessions)
	}

	run := types.RunRequest{
		Inputs:  []types.Tensor{{Name: "in", Data: []float32{1, 2, 3}}},
		Outputs: []types.Tensor{{Name: "out"}},
	}
	rec = doJSON(t, h, http.MethodPost, "/sessions/"+status.ID+"/run", run)
	if rec.Code != http.StatusOK {
		t.Fatalf("run: %d %s", rec.Code, rec.Body.String())
	}
	out := decodeBody[types.RunResponse](t, rec)
	if len(out.Outputs) != 1 || len(out.Outputs[0].Data) != 3 {
		t.Fatalf("outputs not filled: %+v", out)
	}

	rec = doJSON(t, h, http.MethodDelete, "/sessions/"+status.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("close: %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/sessions/"+status.ID+"/run", run)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("run after close: %d", rec.Code)
	}
}

func TestSessionConflictMapsTo409(t *testing.T) {
	h := newTestServer(t,
		"pytorch-1.13.1-1.13.1-linux-x86_64-cpu",
		"pytorch-1.11.0-1.11.0-linux-x86_64-cpu",
	)
	open := func(version string) *httptest.ResponseRecorder {
		return doJSON(t, h, http.MethodPost, "/sessions", types.SessionRequest{
			ResolveRequest: types.ResolveRequest{Family: "pytorch", Version: version},
			ModelDir:       t.TempDir(),
			ModelSource:    "model.bin",
		})
	}
	if rec := open("1.13.1"); rec.Code != http.StatusCreated {
		t.Fatalf("first open: %d %s", rec.Code, rec.Body.String())
	}
	if rec := open("1.11.0"); rec.Code != http.StatusConflict {
		t.Fatalf("conflicting open: %d %s", rec.Code, rec.Body.String())
	}
}

func TestSessionMissingModelDir(t *testing.T) {
	h := newTestServer(t, "pytorch-1.13.1-1.13.1-linux-x86_64-cpu")
	rec := doJSON(t, h, http.MethodPost, "/sessions", types.SessionRequest{
		ResolveRequest: types.ResolveRequest{Family: "pytorch", Version: "1.13.1"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing model_dir: %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	h := newTestServer(t, "onnx-1.13.1-1.13.1-linux-x86_64-cpu")
	rec := doJSON(t, h, http.MethodGet, "/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	st := decodeBody[types.StatusResponse](t, rec)
	if st.Installed != 1 {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
}

func TestHistoryWithoutStore(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: %d %s", rec.Code, rec.Body.String())
	}
}
