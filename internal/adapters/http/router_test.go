package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkeye/Meet/internal/adapters/signal"
	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/app/relay"
	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/identity"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	host  = domain.Identity{ID: "h1", Name: "Hana", Role: domain.RoleHost}
	other = domain.Identity{ID: "h2", Name: "Otto", Role: domain.RoleHost}
	guest = domain.Identity{ID: "g1", Name: "Gil", Role: domain.RoleGuest}
)

type fixture struct {
	router *gin.Engine
	orch   *orch.Orchestrator
	issuer *identity.Issuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Mode: "test", Secret: "cookie-secret", Auth: config.AuthConfig{JWTSecret: "jwt-secret", TokenTTL: time.Hour}}

	store := core.NewMemoryStore()
	reg := app.NewRegistry()
	o := orch.New(reg, store)
	r := relay.New(app.NewHub(), reg, store)
	iss, err := identity.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	require.NoError(t, err)
	ctl := signal.NewSignalWSController(o, r, iss, nil, signal.Options{})

	return &fixture{router: SetupRouter(context.Background(), cfg, o, ctl, iss), orch: o, issuer: iss}
}

func (f *fixture) token(t *testing.T, id domain.Identity) string {
	t.Helper()
	tok, err := f.issuer.Issue(id)
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	w, body := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["connections"])
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"name": "  Hana "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Name and role are required", body["error"])

	w, body = f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"name": "Hana", "role": "host"})
	require.Equal(t, http.StatusOK, w.Code)
	tok, _ := body["token"].(string)
	require.NotEmpty(t, tok)

	id, err := f.issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "Hana", id.Name)
	assert.Equal(t, domain.RoleHost, id.Role)

	user := body["user"].(map[string]any)
	assert.Equal(t, string(id.ID), user["id"])
	assert.NotEmpty(t, w.Result().Cookies(), "token is also stored in the session")
}

func TestLoginSessionCookieAuthenticates(t *testing.T) {
	f := newFixture(t)
	w, _ := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"name": "Hana", "role": "host"})
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/meetings", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateMeeting(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, http.MethodPost, "/api/meetings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", body["error"])

	w, _ = f.do(t, http.MethodPost, "/api/meetings", f.token(t, guest), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "guests cannot create meetings")

	w, _ = f.do(t, http.MethodPost, "/api/meetings", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body = f.do(t, http.MethodPost, "/api/meetings", f.token(t, host), nil)
	require.Equal(t, http.StatusOK, w.Code)
	id, _ := body["meetingId"].(string)
	require.NotEmpty(t, id)

	m, err := f.orch.Meetings.Get(domain.MeetingID(id))
	require.NoError(t, err)
	assert.Equal(t, host.ID, m.HostID)
	assert.True(t, m.IsActive)
	assert.Empty(t, m.Participants)
}

func TestGetAndListMeetings(t *testing.T) {
	f := newFixture(t)
	m, err := f.orch.CreateMeeting(host)
	require.NoError(t, err)

	w, body := f.do(t, http.MethodGet, "/api/meetings/"+string(m.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(m.ID), body["id"])
	assert.Equal(t, "Hana", body["hostName"])
	assert.Equal(t, true, body["isActive"])

	w, body = f.do(t, http.MethodGet, "/api/meetings/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Meeting not found", body["error"])

	w, body = f.do(t, http.MethodGet, "/api/meetings", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["meetings"], 1)
}

func TestJoinPrecheck(t *testing.T) {
	f := newFixture(t)
	m, err := f.orch.CreateMeeting(host)
	require.NoError(t, err)
	path := "/api/meetings/" + string(m.ID) + "/join"

	w, _ := f.do(t, http.MethodPost, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = f.do(t, http.MethodPost, "/api/meetings/missing/join", f.token(t, guest), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body := f.do(t, http.MethodPost, path, f.token(t, guest), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(guest.ID), body["user"].(map[string]any)["id"])

	got, err := f.orch.Meetings.Get(m.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Participants, "the precheck does not add members")

	_, err = f.orch.EndMeeting(m.ID, host)
	require.NoError(t, err)
	w, body = f.do(t, http.MethodPost, path, f.token(t, guest), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Meeting is not active", body["error"])
}

func TestEndMeeting(t *testing.T) {
	f := newFixture(t)
	m, err := f.orch.CreateMeeting(host)
	require.NoError(t, err)
	path := "/api/meetings/" + string(m.ID) + "/end"

	w, _ := f.do(t, http.MethodPost, path, f.token(t, other), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = f.do(t, http.MethodPost, "/api/meetings/missing/end", f.token(t, host), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body := f.do(t, http.MethodPost, path, f.token(t, host), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["isActive"])
}

func TestTokenQueryParameter(t *testing.T) {
	f := newFixture(t)
	w, _ := f.do(t, http.MethodPost, "/api/meetings?token="+f.token(t, host), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "meet_signal_connections_active")
	assert.Contains(t, w.Body.String(), "meet_membership_participants_active")
}
