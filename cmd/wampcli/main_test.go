package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CHOUAiB/wampcore/pkg/adminclient"
)

// captureStdout runs fn with os.Stdout redirected to a pipe and returns
// everything written to it, since the run* commands print with fmt.Printf
// directly rather than through cmd.OutOrStdout().
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	original := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	require.NoError(t, w.Close())
	os.Stdout = original

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *adminclient.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := adminclient.NewClient(adminclient.Config{ServerURL: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func withTestClient(t *testing.T, c *adminclient.Client) {
	t.Helper()
	original := client
	client = c
	t.Cleanup(func() { client = original })
}

func TestRunSessionsListsConnectedSessions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sessions", r.URL.Path)
		_ = json.NewEncoder(w).Encode(adminclient.SessionsResponse{Sessions: []adminclient.Session{
			{ID: 1, Realm: "realm1", State: "established"},
		}})
	})
	withTestClient(t, c)

	out := captureStdout(t, func() {
		require.NoError(t, runSessions(newSessionsCommand(), nil))
	})
	assert.Contains(t, out, "realm1")
	assert.Contains(t, out, "established")
}

func TestRunSessionsReportsNoneConnected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(adminclient.SessionsResponse{})
	})
	withTestClient(t, c)

	out := captureStdout(t, func() {
		require.NoError(t, runSessions(newSessionsCommand(), nil))
	})
	assert.Contains(t, out, "no connected sessions")
}

func TestRunRealmsListsKnownRealms(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/realms", r.URL.Path)
		_ = json.NewEncoder(w).Encode(adminclient.RealmsResponse{Realms: []string{"realm1", "realm2"}})
	})
	withTestClient(t, c)

	out := captureStdout(t, func() {
		require.NoError(t, runRealms(newRealmsCommand(), nil))
	})
	assert.Contains(t, out, "realm1")
	assert.Contains(t, out, "realm2")
}

func TestRunTopicsListsLiveTopics(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/realms/realm1/topics", r.URL.Path)
		_ = json.NewEncoder(w).Encode(adminclient.TopicsResponse{
			Realm:  "realm1",
			Topics: []adminclient.Topic{{URI: "com.x.greet", Policy: "exact", Subscribers: 2}},
		})
	})
	withTestClient(t, c)

	out := captureStdout(t, func() {
		require.NoError(t, runTopics(newTopicsCommand(), []string{"realm1"}))
	})
	assert.Contains(t, out, "com.x.greet")
	assert.Contains(t, out, "exact")
}

func TestRunTopicsReportsNoneLive(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(adminclient.TopicsResponse{Realm: "realm1"})
	})
	withTestClient(t, c)

	out := captureStdout(t, func() {
		require.NoError(t, runTopics(newTopicsCommand(), []string{"realm1"}))
	})
	assert.Contains(t, out, `no live topics in realm "realm1"`)
}

func TestRunRegistrationsListsLiveRegistrations(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/realms/realm1/registrations", r.URL.Path)
		_ = json.NewEncoder(w).Encode(adminclient.RegistrationsResponse{
			Realm: "realm1",
			Registrations: []adminclient.Registration{
				{URI: "com.x.add", Policy: "exact", SessionID: 7, Pending: 1},
			},
		})
	})
	withTestClient(t, c)

	out := captureStdout(t, func() {
		require.NoError(t, runRegistrations(newRegistrationsCommand(), []string{"realm1"}))
	})
	assert.Contains(t, out, "com.x.add")
}

func TestRunHealthReportsHealthyRouter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(adminclient.HealthResponse{
			Healthy: true, Sessions: 2, Realms: 1, Message: "router is serving",
		})
	})
	withTestClient(t, c)

	out := captureStdout(t, func() {
		require.NoError(t, runHealth(newHealthCommand(), nil))
	})
	assert.Contains(t, out, "router is healthy")
	assert.Contains(t, out, "sessions: 2")
}

func TestRunHealthReportsUnhealthyRouter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(adminclient.HealthResponse{Healthy: false})
	})
	withTestClient(t, c)

	out := captureStdout(t, func() {
		require.NoError(t, runHealth(newHealthCommand(), nil))
	})
	assert.Contains(t, out, "router is not healthy")
}

func TestRunSessionsSurfacesClientError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	withTestClient(t, c)

	err := runSessions(newSessionsCommand(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list sessions")
}

func TestMainCommandHelpListsSubcommands(t *testing.T) {
	rootCmd := &cobra.Command{Use: "wampcli"}
	rootCmd.AddCommand(newSessionsCommand())
	rootCmd.AddCommand(newRealmsCommand())
	rootCmd.AddCommand(newTopicsCommand())
	rootCmd.AddCommand(newRegistrationsCommand())
	rootCmd.AddCommand(newHealthCommand())

	output := &bytes.Buffer{}
	rootCmd.SetOut(output)
	rootCmd.SetArgs([]string{"--help"})
	require.NoError(t, rootCmd.Execute())

	helpOutput := output.String()
	assert.Contains(t, helpOutput, "sessions")
	assert.Contains(t, helpOutput, "realms")
	assert.Contains(t, helpOutput, "topics")
	assert.Contains(t, helpOutput, "registrations")
	assert.Contains(t, helpOutput, "health")
}

func TestInitializeClientSkipsHelpCommand(t *testing.T) {
	helpCmd := &cobra.Command{Use: "help"}
	require.NoError(t, initializeClient(helpCmd, nil))
}

func TestInitializeClientBuildsClientFromFlags(t *testing.T) {
	original := client
	defer func() { client = original }()

	serverURL = "http://localhost:8081"
	token = "tok"
	timeout = 5 * time.Second

	cmd := newHealthCommand()
	parent := &cobra.Command{Use: "wampcli"}
	parent.AddCommand(cmd)

	require.NoError(t, initializeClient(cmd, nil))
	assert.NotNil(t, client)
}
