package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"enginehost/internal/catalog"
	"enginehost/internal/history"
	"enginehost/internal/manager"
	"enginehost/internal/registry"
	"enginehost/internal/scope"
	"enginehost/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListInstalled() ([]types.InstalledEngine, error)
	Resolve(ctx context.Context, req types.ResolveRequest) (types.EngineDescriptor, error)
	OpenSession(ctx context.Context, req types.SessionRequest) (*manager.Session, error)
	RunSession(id string, inputs, outputs []*types.Tensor) error
	CloseSession(ctx context.Context, id string) error
	Sessions() []types.SessionStatus
	Status() types.StatusResponse
	History(ctx context.Context, limit int) ([]history.Event, error)
}

// zlog is an optional structured logger. If unset, the API stays quiet.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// maxBodyBytes bounds JSON request bodies. Run payloads carry tensors, so
// the bound is generous.
var maxBodyBytes int64 = 32 << 20

// NewMux builds the router for the engine host surface.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		AllowedHeaders: []string{"Content-Type"},
	}))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/engines", func(w http.ResponseWriter, r *http.Request) {
		out := map[string][]string{}
		for _, family := range catalog.Families() {
			vv, err := catalog.SupportedVersions(family)
			if err != nil {
				continue
			}
			out[family] = vv
		}
		writeJSON(w, http.StatusOK, map[string]any{"families": out})
	})

	r.Get("/engines/installed", func(w http.ResponseWriter, r *http.Request) {
		engines, err := svc.ListInstalled()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, types.EnginesResponse{Engines: engines})
	})

	r.Post("/resolve", func(w http.ResponseWriter, r *http.Request) {
		var req types.ResolveRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Family) == "" || strings.TrimSpace(req.Version) == "" {
			writeJSONError(w, http.StatusBadRequest, "family and version are required")
			return
		}
		start := time.Now()
		desc, err := svc.Resolve(r.Context(), req)
		if err != nil {
			writeMappedError(w, r, err)
			return
		}
		logRequest(r, "resolve", http.StatusOK, time.Since(start))
		writeJSON(w, http.StatusOK, desc)
	})

	r.Post("/sessions", func(w http.ResponseWriter, r *http.Request) {
		var req types.SessionRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Family) == "" || strings.TrimSpace(req.Version) == "" {
			writeJSONError(w, http.StatusBadRequest, "family and version are required")
			return
		}
		if strings.TrimSpace(req.ModelDir) == "" {
			writeJSONError(w, http.StatusBadRequest, "model_dir is required")
			return
		}
		start := time.Now()
		sess, err := svc.OpenSession(r.Context(), req)
		if err != nil {
			writeMappedError(w, r, err)
			return
		}
		logRequest(r, "session open", http.StatusCreated, time.Since(start))
		writeJSON(w, http.StatusCreated, sess.Status())
	})

	r.Get("/sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"sessions": svc.Sessions()})
	})

	r.Post("/sessions/{id}/run", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req types.RunRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		inputs := tensorPtrs(req.Inputs)
		outputs := tensorPtrs(req.Outputs)
		start := time.Now()
		if err := svc.RunSession(id, inputs, outputs); err != nil {
			writeMappedError(w, r, err)
			return
		}
		logRequest(r, "run", http.StatusOK, time.Since(start))
		writeJSON(w, http.StatusOK, types.RunResponse{Outputs: tensorVals(outputs)})
	})

	r.Delete("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := svc.CloseSession(r.Context(), id); err != nil {
			writeMappedError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/history", func(w http.ResponseWriter, r *http.Request) {
		events, err := svc.History(r.Context(), 100)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": events})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := svc.ListInstalled(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("engines dir unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// writeMappedError translates the domain error taxonomy onto HTTP statuses.
func writeMappedError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	writeJSONError(w, status, err.Error())
	if zlog != nil {
		z := zlog.Info().Str("path", r.URL.Path).Int("status", status)
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Err(err).Msg("request failed")
	}
}

func statusFor(err error) int {
	switch {
	case catalog.IsUnsupportedEngine(err), catalog.IsNoAdapterMapping(err):
		return http.StatusBadRequest
	case registry.IsEngineNotInstalled(err), manager.IsSessionNotFound(err):
		return http.StatusNotFound
	case manager.IsEngineConflict(err), manager.IsIllegalState(err):
		return http.StatusConflict
	case manager.IsLoadModel(err):
		return http.StatusUnprocessableEntity
	case scope.IsScopeConstruction(err), scope.IsAdapterNotFound(err):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Warn().Err(err).Msg("encode response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

func logRequest(r *http.Request, what string, status int, dur time.Duration) {
	if zlog == nil {
		return
	}
	z := zlog.Info().Str("path", r.URL.Path).Int("status", status).Dur("dur", dur)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	z.Msg(what)
}

func tensorPtrs(tt []types.Tensor) []*types.Tensor {
	out := make([]*types.Tensor, len(tt))
	for i := range tt {
		out[i] = &tt[i]
	}
	return out
}

func tensorVals(tt []*types.Tensor) []types.Tensor {
	out := make([]types.Tensor, len(tt))
	for i, t := range tt {
		if t != nil {
			out[i] = *t
		}
	}
	return out
}
