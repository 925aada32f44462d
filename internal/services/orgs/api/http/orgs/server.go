// Package orgs exposes the invite engine over a JSON HTTP surface.
//
// Identity arrives in trusted headers injected by the fronting identity
// layer: X-Rulebook-User carries the authenticated user id and
// X-Rulebook-Admin marks organization administrators. The engine itself
// enforces every invite rule; this layer only maps requests and reason
// codes onto HTTP.
package orgs

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/rulebookhq/rulebook/internal/platform/errors"
	"github.com/rulebookhq/rulebook/internal/services/orgs/domain"
)

const (
	userHeader  = "X-Rulebook-User"
	adminHeader = "X-Rulebook-Admin"
)

// Server routes invite operations.
type Server struct {
	service *domain.Service
	mux     *http.ServeMux
}

// NewServer constructs the orgs HTTP surface.
func NewServer(service *domain.Service) *Server {
	s := &Server{service: service, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /invites", s.handleCreateInvite)
	s.mux.HandleFunc("GET /invites/validate", s.handleValidateInvite)
	s.mux.HandleFunc("POST /invites/redeem", s.handleRedeemInvite)
	s.mux.HandleFunc("POST /invites/{id}/revoke", s.handleRevokeInvite)
	s.mux.HandleFunc("GET /invites/{id}/stats", s.handleInviteStats)
	s.mux.HandleFunc("GET /organizations/{id}/invites", s.handleListInvites)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// userID returns the authenticated user id supplied by the identity layer.
func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(userHeader))
}

// isAdmin reports whether the identity layer marked the caller as an
// organization administrator.
func isAdmin(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get(adminHeader)), "true")
}

// requireAdmin resolves the caller's identity for administrative routes.
func requireAdmin(r *http.Request) (string, error) {
	actor := userID(r)
	if actor == "" {
		return "", apperrors.New(apperrors.CodeUnauthorized, "caller identity is required")
	}
	if !isAdmin(r) {
		return "", apperrors.New(apperrors.CodeUnauthorized, "administrator role is required")
	}
	return actor, nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON writes a JSON body with normalized headers and status.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeJSONError maps a domain error onto its reason code and HTTP status.
// Internal store detail is never surfaced; callers only see the code and
// its canonical message.
func writeJSONError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	message := "internal error"
	var appErr *apperrors.Error
	if code != apperrors.CodeInternal && code != apperrors.CodeUnknown && errors.As(err, &appErr) {
		message = appErr.Message
	}
	writeJSON(w, code.HTTPStatus(), errorResponse{
		Error:   string(code),
		Message: message,
	})
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apperrors.New(apperrors.CodeValidationError, "request body is not valid JSON")
	}
	return nil
}
