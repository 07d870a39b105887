package adminapi

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/CHOUAiB/wampcore/internal/apperr"
	"github.com/CHOUAiB/wampcore/internal/router"
)

// adminTokenTTL is how long a token minted by issueTokenHandler stays
// valid before an operator must re-authenticate.
const adminTokenTTL = 12 * time.Hour

// Handlers implements the read-only introspection endpoints over a live
// Router.
type Handlers struct {
	router *router.Router
}

func newHandlers(r *router.Router) *Handlers {
	return &Handlers{router: r}
}

// Sessions lists every connected session across every realm.
func (h *Handlers) Sessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, SessionsResponse{Sessions: h.router.Sessions()}, http.StatusOK)
}

// Realms lists every realm that has accepted at least one HELLO.
func (h *Handlers) Realms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, RealmsResponse{Realms: h.router.RealmNames()}, http.StatusOK)
}

// Topics lists the live topic entries for the realm named in the path.
func (h *Handlers) Topics(w http.ResponseWriter, r *http.Request) {
	realmName := realmFromPath(r.URL.Path, "/api/v1/realms/", "/topics")
	if realmName == "" {
		writeError(w, "realm name required", http.StatusBadRequest)
		return
	}

	infos := h.router.Topics(realmName)
	topics := make([]TopicInfo, 0, len(infos))
	for _, info := range infos {
		topics = append(topics, TopicInfo{
			URI:         info.URI,
			Policy:      info.Policy.String(),
			Subscribers: info.Subscribers,
		})
	}
	writeJSON(w, TopicsResponse{Realm: realmName, Topics: topics}, http.StatusOK)
}

// Registrations lists the live procedure registrations for the realm
// named in the path.
func (h *Handlers) Registrations(w http.ResponseWriter, r *http.Request) {
	realmName := realmFromPath(r.URL.Path, "/api/v1/realms/", "/registrations")
	if realmName == "" {
		writeError(w, "realm name required", http.StatusBadRequest)
		return
	}

	writeJSON(w, RegistrationsResponse{
		Realm:         realmName,
		Registrations: h.router.Registrations(realmName),
	}, http.StatusOK)
}

// Health reports the admin API's view of router liveness: it is always
// healthy once the process is serving requests at all, per spec.md's
// scoping of health to "is the process alive", not per-realm readiness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	sessions := h.router.Sessions()
	realms := h.router.RealmNames()
	writeJSON(w, HealthResponse{
		Healthy:  true,
		Sessions: len(sessions),
		Realms:   len(realms),
		Message:  "router is serving",
	}, http.StatusOK)
}

// issueTokenHandler implements POST /api/v1/auth/token: it mints an
// admin bearer token for a caller who already holds the configured
// secret out of band, so operators with the secret can hand out
// short-lived tokens to tools instead of distributing the secret
// itself.
func issueTokenHandler(auth *tokenAuth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req AuthRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if subtle.ConstantTimeCompare([]byte(req.Secret), auth.secretKey) != 1 {
			writeError(w, "invalid secret", http.StatusUnauthorized)
			return
		}

		token, err := auth.issue(adminTokenTTL)
		if err != nil {
			writeError(w, "failed to issue token", http.StatusInternalServerError)
			return
		}
		writeJSON(w, AuthResponse{Token: token}, http.StatusOK)
	}
}

func realmFromPath(path, prefix, suffix string) string {
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(path, prefix), suffix)
}

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(apperr.Response{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}
