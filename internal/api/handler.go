package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/mohae/deepcopy"
	"go.uber.org/zap"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const redacted = "[redacted]"

var sensitiveMarkers = []string{"SECRET", "PASSWORD", "TOKEN", "PRIVATE_KEY"}

// Settings is the read side of the configuration store.
type Settings interface {
	Get(key string) (any, bool)
	Keys() []string
}

// Handler exposes the resolved configuration over HTTP.
type Handler struct {
	settings Settings
	name     string
	source   func(key string) string
	logger   *zap.Logger

	clock     func() time.Time
	startedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithName sets the application name reported by the health endpoint.
func WithName(name string) HandlerOption {
	return func(h *Handler) {
		h.name = name
	}
}

// WithSources reports which configuration layer set each key.
func WithSources(source func(key string) string) HandlerOption {
	return func(h *Handler) {
		h.source = source
	}
}

// WithHandlerLogger sets the logger used for input errors.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(settings Settings, opts ...HandlerOption) *Handler {
	h := &Handler{
		settings: settings,
		source:   func(string) string { return "" },
		logger:   zap.NewNop(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.startedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	now := h.clock()
	resp := healthResponse{
		Status:    "ok",
		Name:      h.name,
		Timestamp: now,
		StartedAt: h.startedAt,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleKeys(w http.ResponseWriter, r *http.Request) {
	_ = r
	keys := h.settings.Keys()
	writeJSON(w, http.StatusOK, keysResponse{Keys: keys, Count: len(keys)})
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if failure := ParseInput(h.logger, r, &req); failure != nil {
		writeJSON(w, http.StatusBadRequest, failure)
		return
	}

	value, ok := h.settings.Get(req.Key)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown setting", "no configuration value for "+req.Key)
		return
	}
	if isSensitive(req.Key) {
		value = redacted
	} else {
		value = redact(deepcopy.Copy(value))
	}

	writeJSON(w, http.StatusOK, lookupResponse{
		Key:    req.Key,
		Value:  value,
		Source: h.source(req.Key),
	})
}

// redact replaces, in place, every entry of value whose key is sensitive.
// Callers pass a copy so the store is never touched.
func redact(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		for k, v := range typed {
			if isSensitive(k) {
				typed[k] = redacted
				continue
			}
			typed[k] = redact(v)
		}
	case []any:
		for i, v := range typed {
			typed[i] = redact(v)
		}
	}
	return value
}

func isSensitive(key string) bool {
	upper := strings.ToUpper(key)
	for _, marker := range sensitiveMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type lookupRequest struct {
	Key string `json:"key" validate:"required"`
}

type lookupResponse struct {
	Key    string `json:"key"`
	Value  any    `json:"value"`
	Source string `json:"source,omitempty"`
}

type keysResponse struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Name      string    `json:"name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	StartedAt time.Time `json:"startedAt"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{
		Error:   message,
		Details: details,
	})
}
