// Package mocks provides testify mocks of the store interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/doodlesbykumbi/tenant-authz/pkg/model"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server/store"
)

// MembershipStore implements store.MembershipStore for testing using testify/mock.
//
// WithSession is recorded with the context. A non-nil error from the
// expectation is returned without running the callback, which simulates a
// store that cannot open a session; otherwise the callback runs against
// Session.
type MembershipStore struct {
	mock.Mock
	Session *MembershipSession
}

var _ store.MembershipStore = (*MembershipStore)(nil)

func NewMembershipStore() *MembershipStore {
	return &MembershipStore{Session: &MembershipSession{}}
}

func (m *MembershipStore) WithSession(ctx context.Context, fn func(store.MembershipSession) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m.Session)
}

// MembershipSession implements store.MembershipSession for testing using testify/mock
type MembershipSession struct {
	mock.Mock
}

var _ store.MembershipSession = (*MembershipSession)(nil)

func (m *MembershipSession) FindUserByID(id string) (*model.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MembershipSession) FindOrganizationByID(id string) (*model.Organization, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Organization), args.Error(1)
}

func (m *MembershipSession) FindUserGroup(organizationID, email, name string) (*model.UserGroup, error) {
	args := m.Called(organizationID, email, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserGroup), args.Error(1)
}

func (m *MembershipSession) InsertUserGroup(group *model.UserGroup) error {
	args := m.Called(group)
	return args.Error(0)
}

// HealthStore implements store.HealthStore for testing using testify/mock
type HealthStore struct {
	mock.Mock
}

var _ store.HealthStore = (*HealthStore)(nil)

func (m *HealthStore) CheckReadiness(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
