package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacksonmacedok2-maker/Venda-flow/internal/auth"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/cache"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/domain"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/localstore"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/membership"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/netstatus"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/queue"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/remote"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/sequence"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/service"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/syncengine"
	"github.com/jacksonmacedok2-maker/Venda-flow/pkg/logger"
)

const testSecret = "test-secret-key-for-handler-tests"

func init() {
	gin.SetMode(gin.TestMode)
}

func testToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID,
		"email": userID + "@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

type testEnv struct {
	router   *gin.Engine
	store    *remote.MemoryStore
	monitor  *netstatus.Monitor
	resolver *membership.Resolver
}

func setup(t *testing.T, online bool, withCompany bool) *testEnv {
	t.Helper()

	log, err := logger.New(&logger.Config{Level: "error", ServiceName: "handler-test", Development: true})
	require.NoError(t, err)

	store := remote.NewMemoryStore()
	local := localstore.NewMemoryStore()
	c := cache.New(local)
	q := queue.New(local)
	monitor := netstatus.NewMonitor(online)

	resolver := membership.NewResolver(auth.NewMemoryBackend(), store, membership.Config{
		MaxAttempts:    1,
		RetryDelay:     time.Millisecond,
		OverrideTTL:    time.Minute,
		SessionTimeout: time.Second,
	}, log)
	if withCompany {
		resolver.SetOverride(domain.Membership{
			ID: "mem-1", CompanyID: "tenant-1", UserID: "user-1",
			Role: domain.RoleOwner, Status: domain.MembershipActive,
		})
	}

	engine, err := syncengine.New(q, monitor, syncengine.Config{MaxAttempts: 5}, log)
	require.NoError(t, err)

	data := service.NewData(store, c, q, monitor, sequence.New(store, "PED", 6), resolver, log)
	data.RegisterReplayers(engine)

	router := gin.New()
	New(data, engine, resolver, q, log).RegisterRoutes(router, testSecret)

	return &testEnv{router: router, store: store, monitor: monitor, resolver: resolver}
}

func do(t *testing.T, env *testEnv, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestHealthSkipsAuth(t *testing.T) {
	env := setup(t, true, true)
	w := do(t, env, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutesRequireToken(t *testing.T) {
	env := setup(t, true, true)

	w := do(t, env, http.MethodGet, "/api/v1/clients", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, env, http.MethodGet, "/api/v1/clients", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExpiredTokenRejected(t *testing.T) {
	env := setup(t, true, true)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	w := do(t, env, http.MethodGet, "/api/v1/clients", nil, signed)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
}

func TestCreateAndListClients(t *testing.T) {
	env := setup(t, true, true)
	token := testToken(t, "user-1")

	w := do(t, env, http.MethodPost, "/api/v1/clients", domain.Client{Name: "Ana", Type: domain.ClientTypePF}, token)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, env, http.MethodGet, "/api/v1/clients", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool            `json:"success"`
		Data    []domain.Client `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Ana", resp.Data[0].Name)
}

func TestNoActiveCompanyStatus(t *testing.T) {
	env := setup(t, true, false)

	w := do(t, env, http.MethodGet, "/api/v1/clients", nil, testToken(t, "user-1"))
	assert.Equal(t, http.StatusPreconditionRequired, w.Code)
	assert.Contains(t, w.Body.String(), "NO_TENANT")
}

func TestOfflineTransactionStatus(t *testing.T) {
	env := setup(t, false, true)

	w := do(t, env, http.MethodPost, "/api/v1/transactions",
		domain.Transaction{Description: "Aluguel", Amount: 100}, testToken(t, "user-1"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "OFFLINE")
}

func TestMembershipOverrideFlow(t *testing.T) {
	env := setup(t, true, false)
	token := testToken(t, "user-1")

	w := do(t, env, http.MethodGet, "/api/v1/membership", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "UNRESOLVED")

	w = do(t, env, http.MethodPost, "/api/v1/membership/override", domain.Membership{
		CompanyID: "tenant-9", UserID: "user-1", Role: domain.RoleOwner, Status: domain.MembershipActive,
	}, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "OVERRIDDEN")

	// Refresh during the guard window keeps the manual choice.
	w = do(t, env, http.MethodPost, "/api/v1/membership/refresh", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tenant-9")
}

func TestOverrideRequiresCompanyID(t *testing.T) {
	env := setup(t, true, false)

	w := do(t, env, http.MethodPost, "/api/v1/membership/override", domain.Membership{}, testToken(t, "user-1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncStatusAndDrain(t *testing.T) {
	env := setup(t, false, true)
	token := testToken(t, "user-1")

	// Queue a client while offline.
	w := do(t, env, http.MethodPost, "/api/v1/clients", domain.Client{Name: "Ana"}, token)
	require.Equal(t, http.StatusCreated, w.Code)

	env.monitor.SetOnline(true)
	w = do(t, env, http.MethodPost, "/api/v1/sync/drain", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	deadline := time.Now().Add(2 * time.Second)
	for env.store.InsertCalls(remote.CollectionClients) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("queued client never replayed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	w = do(t, env, http.MethodGet, "/api/v1/sync/status", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "last_report")
}

func TestDeadLetterEndpoints(t *testing.T) {
	env := setup(t, true, true)
	token := testToken(t, "user-1")

	w := do(t, env, http.MethodGet, "/api/v1/sync/dead-letters", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)

	w = do(t, env, http.MethodPost, "/api/v1/sync/dead-letters/unknown/requeue", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, env, http.MethodDelete, "/api/v1/sync/dead-letters/unknown", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
