package usergroup

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/doodlesbykumbi/tenant-authz/pkg/audit"
	"github.com/doodlesbykumbi/tenant-authz/pkg/identity"
	"github.com/doodlesbykumbi/tenant-authz/pkg/model"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server/store"
)

// ErrInvalidGroupName is returned for a blank group name.
var ErrInvalidGroupName = errors.New("group name must not be empty")

// Service creates user groups against a MembershipStore.
type Service struct {
	store   store.MembershipStore
	auditor func(context.Context, audit.Event)
}

// NewService creates a Service that audits through audit.LogContext.
func NewService(s store.MembershipStore) *Service {
	return &Service{store: s, auditor: audit.LogContext}
}

// WithAuditor replaces the audit sink.
func (s *Service) WithAuditor(fn func(context.Context, audit.Event)) *Service {
	s.auditor = fn
	return s
}

// CreateUserGroup creates the group named groupName binding userID to
// organizationID. It returns nil on success, a store.ErrNotFound error when
// the user or organization does not exist, and a store.ErrConstraintViolation
// error when the group already exists.
func (s *Service) CreateUserGroup(ctx context.Context, userID, organizationID, groupName string) error {
	_, err := s.Create(ctx, userID, organizationID, groupName)
	return err
}

// Create is CreateUserGroup that also returns the persisted group.
func (s *Service) Create(ctx context.Context, userID, organizationID, groupName string) (*model.UserGroup, error) {
	logger := log.WithFields(log.Fields{
		"user_id":         userID,
		"organization_id": organizationID,
		"group":           groupName,
	})

	if strings.TrimSpace(groupName) == "" {
		s.record(ctx, userID, organizationID, groupName, nil, ErrInvalidGroupName)
		return nil, ErrInvalidGroupName
	}

	var created *model.UserGroup
	err := s.store.WithSession(ctx, func(session store.MembershipSession) error {
		user, err := session.FindUserByID(userID)
		if err != nil {
			return err
		}
		org, err := session.FindOrganizationByID(organizationID)
		if err != nil {
			return err
		}

		group := model.NewUserGroup(groupName, *org, *user)
		if err := session.InsertUserGroup(group); err != nil {
			return err
		}
		created = group
		return nil
	})

	s.record(ctx, userID, organizationID, groupName, created, err)

	switch {
	case err == nil:
		logger.WithField("group_id", created.ID).Info("user group created")
		return created, nil
	case errors.Is(err, store.ErrOperational):
		logger.WithError(err).Error("user group creation failed")
	default:
		logger.WithError(err).Warn("user group rejected")
	}
	return nil, err
}

func (s *Service) record(ctx context.Context, userID, organizationID, groupName string, group *model.UserGroup, err error) {
	if s.auditor == nil {
		return
	}
	event := audit.UserGroupCreateEvent{
		UserID:         userID,
		OrganizationID: organizationID,
		GroupName:      groupName,
		Success:        err == nil,
	}
	if group != nil {
		event.GroupID = group.ID
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	if id, ok := identity.Get(ctx); ok {
		event.ActorID = id.Subject
		if id.RemoteIP != nil {
			event.ClientIP = id.RemoteIP.String()
		}
	}
	s.auditor(ctx, event)
}

// IsAlreadyProvisioned reports whether err means the group already exists.
func IsAlreadyProvisioned(err error) bool {
	return errors.Is(err, store.ErrConstraintViolation)
}
