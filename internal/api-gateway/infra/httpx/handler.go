package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/disqueria/internal/api-gateway/core/dispatcher"
	"github.com/jcmexdev/disqueria/internal/api-gateway/core/domain/entity"
	"github.com/jcmexdev/disqueria/internal/pkg/apperr"
	"github.com/jcmexdev/disqueria/internal/pkg/commands"
	"github.com/jcmexdev/disqueria/internal/pkg/transport"
)

const maxBodyBytes = 1 << 20

// Dispatcher is the part of dispatcher.Dispatcher the handlers use.
type Dispatcher interface {
	Dispatch(ctx context.Context, op dispatcher.Operation, credential string, payload any) (json.RawMessage, error)
	Login(ctx context.Context, email, password string) (entity.Session, error)
}

// Handler maps the HTTP surface onto dispatcher operations. Replies are
// written as the backend produced them.
type Handler struct {
	dispatcher Dispatcher
}

func NewHandler(d Dispatcher) *Handler {
	return &Handler{dispatcher: d}
}

func (h *Handler) ListArtists(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, dispatcher.ListArtists, commands.Empty{}, http.StatusOK)
}

func (h *Handler) CreateArtist(w http.ResponseWriter, r *http.Request) {
	h.forwardBody(w, r, dispatcher.CreateArtist)
}

func (h *Handler) UpdateArtist(w http.ResponseWriter, r *http.Request) {
	h.forwardUpdate(w, r, dispatcher.UpdateArtist)
}

func (h *Handler) DeleteArtist(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, dispatcher.DeleteArtist, chi.URLParam(r, "id"), http.StatusOK)
}

func (h *Handler) ListAlbums(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, dispatcher.ListAlbums, commands.Empty{}, http.StatusOK)
}

func (h *Handler) CreateAlbum(w http.ResponseWriter, r *http.Request) {
	h.forwardBody(w, r, dispatcher.CreateAlbum)
}

func (h *Handler) UpdateAlbum(w http.ResponseWriter, r *http.Request) {
	h.forwardUpdate(w, r, dispatcher.UpdateAlbum)
}

func (h *Handler) DeleteAlbum(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, dispatcher.DeleteAlbum, chi.URLParam(r, "id"), http.StatusOK)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	h.forwardBody(w, r, dispatcher.RegisterUser)
}

func (h *Handler) FindUser(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, dispatcher.FindUser, chi.URLParam(r, "email"), http.StatusOK)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	h.forwardBody(w, r, dispatcher.CreateOrder)
}

func (h *Handler) UserOrders(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, dispatcher.UserOrders, chi.URLParam(r, "userId"), http.StatusOK)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, r, apperr.Validation("invalid JSON body: %v", err))
		return
	}

	session, err := h.dispatcher.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) forward(w http.ResponseWriter, r *http.Request, op dispatcher.Operation, payload any, status int) {
	raw, err := h.dispatcher.Dispatch(r.Context(), op, bearerToken(r), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRaw(w, status, raw)
}

func (h *Handler) forwardBody(w http.ResponseWriter, r *http.Request, op dispatcher.Operation) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.forward(w, r, op, body, http.StatusCreated)
}

func (h *Handler) forwardUpdate(w http.ResponseWriter, r *http.Request, op dispatcher.Operation) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.forward(w, r, op, UpdateRequest{ID: chi.URLParam(r, "id"), Data: body}, http.StatusOK)
}

func readBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, apperr.Validation("read body: %v", err)
	}
	if !json.Valid(body) {
		return nil, apperr.Validation("request body must be valid JSON")
	}
	return body, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// statusFor maps an error onto the edge status: a remote rejection keeps
// the status its handler chose, and a missing reply is a gateway failure.
func statusFor(err error) (int, string) {
	var terr *transport.TransportError
	if errors.As(err, &terr) {
		if errors.Is(terr.Err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, fmt.Sprintf("%s did not answer %s in time", terr.Target, terr.Command)
		}
		return http.StatusBadGateway, fmt.Sprintf("%s is unavailable", terr.Target)
	}
	if status, msg, ok := apperr.StatusOf(err); ok {
		return status, msg
	}
	return http.StatusInternalServerError, "internal server error"
}

func writeRaw(w http.ResponseWriter, status int, raw json.RawMessage) {
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		slog.InfoContext(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      string(apperr.KindOf(err)),
		Message:    msg,
	})
}
