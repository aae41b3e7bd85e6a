package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/doodlesbykumbi/tenant-authz/pkg/model"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server/store"
	"github.com/doodlesbykumbi/tenant-authz/pkg/usergroup"
)

// CreateGroupRequest is the body of POST /organizations/{organization}/groups.
// Name defaults to "Admin" when omitted.
type CreateGroupRequest struct {
	UserID string  `json:"user_id"`
	Name   *string `json:"name,omitempty"`
}

// GroupResponse describes a created group
type GroupResponse struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
}

// RegisterGroupEndpoints registers group provisioning endpoints
func RegisterGroupEndpoints(s *server.Server) {
	s.Router.Handle("/organizations/{organization}/groups",
		s.RequireGlobalAdmin(handleCreateGroup(s.UserGroups)),
	).Methods("POST")
}

func handleCreateGroup(svc *usergroup.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		organizationID, err := url.PathUnescape(mux.Vars(r)["organization"])
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid organization id")
			return
		}

		var req CreateGroupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.UserID == "" {
			respondWithError(w, http.StatusBadRequest, "user_id is required")
			return
		}
		name := model.GroupAdmin
		if req.Name != nil {
			name = *req.Name
		}

		group, err := svc.Create(r.Context(), req.UserID, organizationID, name)
		if err != nil {
			status, msg := groupErrorStatus(err)
			respondWithError(w, status, msg)
			return
		}

		respondWithJSON(w, http.StatusCreated, GroupResponse{
			ID:             group.ID,
			OrganizationID: group.OrganizationID,
			UserID:         group.UserID,
			Name:           group.Name,
		})
	}
}

func groupErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, usergroup.ErrInvalidGroupName):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrNotFound):
		var nf *store.NotFoundError
		if errors.As(err, &nf) {
			return http.StatusNotFound, nf.Entity + " not found"
		}
		return http.StatusNotFound, "not found"
	case usergroup.IsAlreadyProvisioned(err):
		return http.StatusConflict, "group already exists"
	default:
		return http.StatusServiceUnavailable, "membership store unavailable"
	}
}
