package endpoints

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/tenant-authz/pkg/model"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server/store"
	storemocks "github.com/doodlesbykumbi/tenant-authz/pkg/server/store/mocks"
)

func strPtr(s string) *string { return &s }

type groupMocks struct {
	membership *storemocks.MembershipStore
	session    *storemocks.MembershipSession
}

func (m *groupMocks) ok() {
	m.membership.On("WithSession", mock.Anything).Return(nil)
}

func TestCreateGroup_Authorization(t *testing.T) {
	srv, m, _ := newMockServer()
	body := CreateGroupRequest{UserID: "user-1"}

	rr := doRequest(srv, "POST", "/organizations/org-1/groups", body)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(srv, "POST", "/organizations/org-1/groups", body,
		withToken(signToken(t, "someone", "someone@example.com")))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	m.AssertNotCalled(t, "WithSession", mock.Anything)
}

func TestCreateGroup_Mocked(t *testing.T) {
	user := &model.User{ID: "user-1", Email: "pastor@example.com"}
	org := &model.Organization{ID: "org-1", Name: "Grace Chapel"}

	tests := []struct {
		name       string
		body       any
		setup      func(m *groupMocks)
		wantStatus int
		wantError  string
	}{
		{
			name: "defaults to admin",
			body: CreateGroupRequest{UserID: "user-1"},
			setup: func(m *groupMocks) {
				m.ok()
				m.session.On("FindUserByID", "user-1").Return(user, nil)
				m.session.On("FindOrganizationByID", "org-1").Return(org, nil)
				m.session.On("InsertUserGroup", mock.MatchedBy(func(g *model.UserGroup) bool {
					return g.Name == model.GroupAdmin
				})).Return(nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "malformed body",
			body:       "{not json",
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
		{
			name:       "missing user id",
			body:       CreateGroupRequest{Name: strPtr("Admin")},
			wantStatus: http.StatusBadRequest,
			wantError:  "user_id is required",
		},
		{
			name:       "blank name",
			body:       CreateGroupRequest{UserID: "user-1", Name: strPtr("  ")},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unknown user",
			body: CreateGroupRequest{UserID: "ghost"},
			setup: func(m *groupMocks) {
				m.ok()
				m.session.On("FindUserByID", "ghost").Return(nil, &store.NotFoundError{Entity: "user", ID: "ghost"})
			},
			wantStatus: http.StatusNotFound,
			wantError:  "user not found",
		},
		{
			name: "duplicate",
			body: CreateGroupRequest{UserID: "user-1"},
			setup: func(m *groupMocks) {
				m.ok()
				m.session.On("FindUserByID", "user-1").Return(user, nil)
				m.session.On("FindOrganizationByID", "org-1").Return(org, nil)
				m.session.On("InsertUserGroup", mock.Anything).
					Return(&store.ConstraintViolationError{Table: "user_groups", Err: errors.New("duplicate key")})
			},
			wantStatus: http.StatusConflict,
			wantError:  "group already exists",
		},
		{
			name: "store down",
			body: CreateGroupRequest{UserID: "user-1"},
			setup: func(m *groupMocks) {
				m.membership.On("WithSession", mock.Anything).
					Return(&store.OperationalError{Op: "begin", Err: errors.New("connection reset")})
			},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, membership, _ := newMockServer()
			if tt.setup != nil {
				tt.setup(&groupMocks{membership: membership, session: membership.Session})
			}

			rr := doRequest(srv, "POST", "/organizations/org-1/groups", tt.body,
				withToken(signToken(t, "ops", "ops@example.com", "GlobalAdmin")))

			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantError != "" {
				var resp map[string]string
				decodeBody(t, rr, &resp)
				assert.Equal(t, tt.wantError, resp["error"])
			}
		})
	}
}

func TestCreateGroup_SQLite(t *testing.T) {
	srv := newSQLiteServer(t)
	token := signToken(t, "ops", "ops@example.com", "GlobalAdmin")

	rr := doRequest(srv, "POST", "/organizations/org-1/groups",
		CreateGroupRequest{UserID: "user-1"}, withToken(token))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created GroupResponse
	decodeBody(t, rr, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "org-1", created.OrganizationID)
	assert.Equal(t, "user-1", created.UserID)
	assert.Equal(t, model.GroupAdmin, created.Name)

	// the same triple a second time
	rr = doRequest(srv, "POST", "/organizations/org-1/groups",
		CreateGroupRequest{UserID: "user-1"}, withToken(token))
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doRequest(srv, "POST", "/organizations/org-404/groups",
		CreateGroupRequest{UserID: "user-1"}, withToken(token))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// ids that need escaping in the path are decoded before lookup
	rr = doRequest(srv, "POST", "/organizations/org%20two%2Fwest/groups",
		CreateGroupRequest{UserID: "user-1"}, withToken(token))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	decodeBody(t, rr, &created)
	assert.Equal(t, "org two/west", created.OrganizationID)


	// the new admin passes the gate
	rr = doRequest(srv, "GET", "/organization/admin", nil,
		withToken(signToken(t, "user-1", "pastor@example.com")),
		withTenant("org-1"))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCreateGroup_MalformedOrganizationEscape(t *testing.T) {
	srv, m, _ := newMockServer()

	req := httptest.NewRequest("POST", "/organizations/x/groups", strings.NewReader(`{"user_id":"user-1"}`))
	req = mux.SetURLVars(req, map[string]string{"organization": "org%zz"})
	rr := httptest.NewRecorder()
	handleCreateGroup(srv.UserGroups).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"invalid organization id"}`, rr.Body.String())
	m.AssertNotCalled(t, "WithSession", mock.Anything)
}
