package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/insurai/portal/internal/api"
	"github.com/insurai/portal/internal/app"
	iauth "github.com/insurai/portal/internal/auth"
	"github.com/insurai/portal/internal/backend"
	"github.com/insurai/portal/internal/cache"
	"github.com/insurai/portal/internal/claims"
	sharedtestutil "github.com/insurai/portal/internal/database/testutil"
	"github.com/insurai/portal/internal/middleware"
	"github.com/insurai/portal/internal/models"
	"github.com/insurai/portal/internal/monitoring"
	"github.com/insurai/portal/internal/monitoring/checks"
	"github.com/insurai/portal/internal/notifications"
	"github.com/insurai/portal/internal/services"
	"github.com/insurai/portal/pkg/crypto"
	"github.com/insurai/portal/pkg/response"
)

// Env encapsulates a fully-wired portal backed by an in-memory database and a
// fake InsurAI backend for handler tests.
type Env struct {
	T             *testing.T
	DB            *gorm.DB
	Router        *gin.Engine
	Backend       *FakeBackend
	Sessions      *iauth.SessionService
	Notifications *notifications.Manager
	Poller        *notifications.Poller
}

// EnvOption adjusts the configuration before the router is built.
type EnvOption func(cfg *app.Config)

// WithRateLimit overrides the login rate limit.
func WithRateLimit(requests int, window time.Duration) EnvOption {
	return func(cfg *app.Config) {
		cfg.Server.RateLimit.Requests = requests
		cfg.Server.RateLimit.Window = window
	}
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	fake := NewFakeBackend(t)
	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())
	store := cache.NewDatabaseStore(db)

	cfg := &app.Config{
		Server: app.ServerConfig{RateLimit: app.RateLimitConfig{Requests: 100, Window: time.Minute}},
		Reports: app.ReportsConfig{HistoryLimit: services.DefaultReportHistory},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "handler-suite-super-secret-key-32-bytes!!",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	sealer, err := crypto.NewSealer([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	sessions, err := iauth.NewSessionService(db, jwtSvc, sealer, iauth.SessionConfig{
		Cache: iauth.NewStoreSessionCache(store),
	})
	require.NoError(t, err)

	client, err := backend.NewClient(backend.Config{BaseURL: fake.URL(), Timeout: 5 * time.Second})
	require.NoError(t, err)

	engine := claims.NewEngine(claims.DefaultThresholds())
	hub := notifications.NewHub()
	manager := notifications.NewManager(client, notifications.WithPublisher(hub))
	poller := notifications.NewPoller(manager, notifications.WithPollInterval(time.Hour))

	authSvc, err := services.NewAuthService(client, sessions, func(p models.Principal) {
		recipient := notifications.RecipientOf(p)
		poller.Remove(recipient)
		manager.Forget(recipient)
		hub.Disconnect(recipient.Key())
	})
	require.NoError(t, err)

	employee, err := services.NewEmployeeService(client, engine)
	require.NoError(t, err)
	hr, err := services.NewHRService(client, engine)
	require.NoError(t, err)
	agent, err := services.NewAgentService(client)
	require.NoError(t, err)
	admin, err := services.NewAdminService(client, store, time.Minute)
	require.NoError(t, err)
	fraud, err := services.NewFraudService(client)
	require.NoError(t, err)
	reports, err := services.NewReportService(db, engine, services.ReportSources{
		Employee: employee, HR: hr, Agent: agent, Admin: admin, Fraud: fraud,
	}, cfg.Reports.HistoryLimit)
	require.NoError(t, err)

	guard, err := iauth.NewGuard()
	require.NoError(t, err)

	health := monitoring.NewHealthManager(time.Second)
	health.RegisterReadiness(checks.Database(db))
	health.RegisterReadiness(checks.Backend(client))

	router, err := api.NewRouter(api.Dependencies{
		Config:        cfg,
		Sessions:      sessions,
		Guard:         guard,
		RateStore:     middleware.NewDatabaseRateStore(store),
		Health:        health,
		Auth:          authSvc,
		Employee:      employee,
		HR:            hr,
		Agent:         agent,
		Admin:         admin,
		Fraud:         fraud,
		Reports:       reports,
		Notifications: manager,
		Poller:        poller,
		Hub:           hub,
	})
	require.NoError(t, err)

	return &Env{
		T:             t,
		DB:            db,
		Router:        router,
		Backend:       fake,
		Sessions:      sessions,
		Notifications: manager,
		Poller:        poller,
	}
}

// LoginResult bundles the JSON response from POST /api/auth/:role/login.
type LoginResult struct {
	AccessToken string         `json:"access_token"`
	ExpiresAt   int64          `json:"expires_at"`
	HomePath    string         `json:"home_path"`
	User        PrincipalBody  `json:"user"`
	Cookie      *http.Cookie   `json:"-"`
	Meta        *response.Meta `json:"-"`
}

// PrincipalBody mirrors the principal returned by auth endpoints.
type PrincipalBody struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// Login signs in through the role's login endpoint and returns the session.
func (e *Env) Login(role string) LoginResult {
	e.T.Helper()

	payload := map[string]string{
		"email":    role + "@insurai.test",
		"password": Password,
	}

	w := e.Request(http.MethodPost, "/api/auth/"+role+"/login", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.AccessToken)
	require.Equal(e.T, role, result.User.Role)
	result.Meta = resp.Meta

	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			result.Cookie = c
		}
	}
	require.NotNil(e.T, result.Cookie, "login sets the session cookie")
	return result
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the router with a bearer token.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()
	req := e.newRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.serve(req)
}

// RequestWithCookies executes a request authenticated only by cookies, the
// way a browser would. csrfToken is sent in the header when non-empty.
func (e *Env) RequestWithCookies(method, path string, body any, csrfToken string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	e.T.Helper()
	req := e.newRequest(method, path, body)
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	if csrfToken != "" {
		req.Header.Set(middleware.CSRFHeaderName, csrfToken)
	}
	return e.serve(req)
}

// Navigate issues a browser page load for path.
func (e *Env) Navigate(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	e.T.Helper()
	req := e.newRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	return e.serve(req)
}

func (e *Env) newRequest(method, path string, body any) *http.Request {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.RemoteAddr = "192.0.2.10:4711"
	return req
}

func (e *Env) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// CookieFrom returns the named cookie set by a response.
func CookieFrom(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
