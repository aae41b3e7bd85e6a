package endpoints

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/tenant-authz/pkg/config"
	"github.com/doodlesbykumbi/tenant-authz/pkg/db"
	"github.com/doodlesbykumbi/tenant-authz/pkg/identity"
	"github.com/doodlesbykumbi/tenant-authz/pkg/model"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server/middleware"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server/store/mocks"
)

const testSecret = "endpoint-test-secret"

func testConfig() *config.Config {
	return &config.Config{
		SigningSecret:   testSecret,
		TenantHeader:    config.DefaultTenantHeader,
		EmailClaim:      identity.ClaimEmail,
		RoleClaim:       identity.ClaimRole,
		GlobalAdminRole: config.DefaultGlobalAdminRole,
		StoreTimeout:    config.DefaultStoreTimeout,
	}
}

// newMockServer returns a server over testify mocks with every endpoint
// registered.
func newMockServer() (*server.Server, *mocks.MembershipStore, *mocks.HealthStore) {
	membership := mocks.NewMembershipStore()
	health := &mocks.HealthStore{}
	srv := server.New(testConfig(), membership, health, "127.0.0.1", "0")
	RegisterAll(srv)
	return srv, membership, health
}

// newSQLiteServer returns a server over an in-memory sqlite membership store
// seeded with two organizations and two users.
func newSQLiteServer(t *testing.T) *server.Server {
	t.Helper()

	conn, err := db.Connect(db.Config{URL: "file::memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	t.Cleanup(func() {
		sqlDB, _ := conn.DB()
		_ = sqlDB.Close()
	})

	require.NoError(t, conn.Create(&model.Organization{ID: "org-1", Name: "Grace Chapel"}).Error)
	require.NoError(t, conn.Create(&model.Organization{ID: "org two/west", Name: "Grace Chapel West"}).Error)
	require.NoError(t, conn.Create(&model.User{ID: "user-1", Email: "Pastor@Example.com"}).Error)
	require.NoError(t, conn.Create(&model.User{ID: "user-2", Email: "member@example.com"}).Error)

	srv := server.NewServer(testConfig(), conn, "127.0.0.1", "0")
	RegisterAll(srv)
	return srv
}

func signToken(t *testing.T, subject, email string, roles ...string) string {
	t.Helper()
	claims := identity.Claims{}
	if email != "" {
		claims.Add(identity.ClaimEmail, email)
	}
	for _, role := range roles {
		claims.Add(identity.ClaimRole, role)
	}
	token, err := middleware.SignToken(testSecret, subject, claims, time.Minute)
	require.NoError(t, err)
	return token
}

type requestOption func(*http.Request)

func withToken(token string) requestOption {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func withTenant(tenant string) requestOption {
	return func(r *http.Request) {
		r.Header.Set(config.DefaultTenantHeader, tenant)
	}
}

func doRequest(srv *server.Server, method, path string, body any, opts ...requestOption) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			payload, _ := json.Marshal(b)
			reader = bytes.NewBuffer(payload)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	for _, opt := range opts {
		opt(req)
	}
	rr := httptest.NewRecorder()
	srv.Router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v))
}
