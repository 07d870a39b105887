package adminapi

import "github.com/CHOUAiB/wampcore/internal/router"

// SessionsResponse is the admin-facing rendering of every connected
// session, across every realm.
type SessionsResponse struct {
	Sessions []router.SessionInfo `json:"sessions"`
}

// TopicsResponse is the admin-facing rendering of one realm's live
// topic entries.
type TopicsResponse struct {
	Realm  string      `json:"realm"`
	Topics []TopicInfo `json:"topics"`
}

// TopicInfo mirrors pkg/topic.Info for JSON encoding without requiring
// callers of this package to import pkg/topic.
type TopicInfo struct {
	URI         string `json:"uri"`
	Policy      string `json:"policy"`
	Subscribers int    `json:"subscribers"`
}

// RegistrationsResponse is the admin-facing rendering of one realm's
// live procedure registrations.
type RegistrationsResponse struct {
	Realm         string                   `json:"realm"`
	Registrations []router.ProcedureInfo   `json:"registrations"`
}

// RealmsResponse lists every realm that has accepted at least one HELLO.
type RealmsResponse struct {
	Realms []string `json:"realms"`
}

// HealthResponse is the liveness response for the admin API itself.
type HealthResponse struct {
	Healthy  bool   `json:"healthy"`
	Sessions int    `json:"sessions"`
	Realms   int    `json:"realms"`
	Message  string `json:"message"`
}

// AuthRequest exchanges the configured JWT secret for a short-lived
// admin bearer token, keyed on the shared secret instead of a claimed
// identity, since introspection tokens carry no per-realm scoping to
// check.
type AuthRequest struct {
	Secret string `json:"secret"`
}

// AuthResponse carries the issued bearer token.
type AuthResponse struct {
	Token string `json:"token"`
}
