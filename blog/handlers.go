// blog/handlers.go
package blog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Handlers is the HTTP surface: one operation endpoint plus a welcome route.
type Handlers struct {
	dispatcher *Dispatcher
	codec      *TokenCodec
	logger     *slog.Logger
}

func NewHandlers(dispatcher *Dispatcher, codec *TokenCodec, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{dispatcher: dispatcher, codec: codec, logger: logger}
}

func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Get("/", h.welcome)
	r.Post("/graph", h.serveGraph)
	return r
}

func (h *Handlers) welcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"msg": "Welcome. POST operations to /graph"})
}

// serveGraph accepts a single operation object or an array of them. The
// bearer token is decoded exactly once per request; a bad or absent token
// just means the operations run anonymously.
func (h *Handlers) serveGraph(w http.ResponseWriter, r *http.Request) {
	ident := h.identityFrom(r)

	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: validationErr("invalid request body")})
		return
	}

	if isArray(body) {
		var reqs []Request
		if err := json.Unmarshal(body, &reqs); err != nil {
			writeJSON(w, http.StatusBadRequest, Response{Error: validationErr("invalid request body")})
			return
		}
		// Each operation dispatches on its own; a failing sibling never
		// aborts the rest of the batch.
		responses := make([]Response, 0, len(reqs))
		for _, req := range reqs {
			responses = append(responses, h.dispatcher.Dispatch(r.Context(), req, ident))
		}
		writeJSON(w, http.StatusOK, responses)
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: validationErr("invalid request body")})
		return
	}
	resp := h.dispatcher.Dispatch(r.Context(), req, ident)
	writeJSON(w, statusFor(resp), resp)
}

func (h *Handlers) identityFrom(r *http.Request) *Identity {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return nil
	}
	return h.codec.Verify(token)
}

func isArray(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

// Failure kinds map to status codes only here; the dispatcher and everything
// under it deal in kinds alone.
func statusFor(resp Response) int {
	if resp.Error == nil {
		return http.StatusOK
	}
	switch resp.Error.Kind {
	case FailValidation, FailInvalidOperation:
		return http.StatusBadRequest
	case FailAuthenticationRequired, FailInvalidCredentials:
		return http.StatusUnauthorized
	case FailNotFoundOrForbidden:
		return http.StatusNotFound
	case FailConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
