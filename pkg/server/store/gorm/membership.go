package gorm

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doodlesbykumbi/tenant-authz/pkg/model"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server/store"
)

// Ensure MembershipStore implements store.MembershipStore
var _ store.MembershipStore = (*MembershipStore)(nil)

// MembershipStore implements store.MembershipStore using GORM
type MembershipStore struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewMembershipStore creates a new MembershipStore
func NewMembershipStore(db *gorm.DB) *MembershipStore {
	return &MembershipStore{db: db}
}

// WithTimeout bounds every session by d. Zero disables the bound.
func (s *MembershipStore) WithTimeout(d time.Duration) *MembershipStore {
	s.timeout = d
	return s
}

// sessionError marks errors returned by the session callback so they can be
// told apart from begin/commit failures.
type sessionError struct {
	err error
}

func (e sessionError) Error() string {
	return e.err.Error()
}

// WithSession runs fn in its own transaction.
func (s *MembershipStore) WithSession(ctx context.Context, fn func(store.MembershipSession) error) error {
	if err := ctx.Err(); err != nil {
		return &store.OperationalError{Op: "begin session", Err: err}
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(&membershipSession{tx: tx}); err != nil {
			return sessionError{err: err}
		}
		return nil
	})
	if err == nil {
		return nil
	}

	var se sessionError
	if errors.As(err, &se) {
		return se.err
	}
	return &store.OperationalError{Op: "transaction", Err: err}
}

type membershipSession struct {
	tx *gorm.DB
}

func (s *membershipSession) FindUserByID(id string) (*model.User, error) {
	var user model.User
	err := s.tx.Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &store.NotFoundError{Entity: "user", ID: id}
		}
		return nil, &store.OperationalError{Op: "find user", Err: err}
	}
	return &user, nil
}

func (s *membershipSession) FindOrganizationByID(id string) (*model.Organization, error) {
	var org model.Organization
	err := s.tx.Where("id = ?", id).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &store.NotFoundError{Entity: "organization", ID: id}
		}
		return nil, &store.OperationalError{Op: "find organization", Err: err}
	}
	return &org, nil
}

func (s *membershipSession) FindUserGroup(organizationID, email, name string) (*model.UserGroup, error) {
	email = model.NormalizeEmail(email)
	if s.tx.Dialector.Name() != "postgres" {
		return s.findUserGroupFolded(organizationID, email, name)
	}

	var group model.UserGroup
	err := s.tx.
		Joins("JOIN users ON users.id = user_groups.user_id").
		Where("user_groups.organization_id = ? AND LOWER(users.email) = ? AND user_groups.name = ?",
			organizationID, email, name).
		Take(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrUserGroupNotFound
		}
		return nil, &store.OperationalError{Op: "find user group", Err: err}
	}
	return &group, nil
}

// findUserGroupFolded compares emails in Go. SQLite's LOWER() folds ASCII
// only, so rows written around User.BeforeSave would not match there.
func (s *membershipSession) findUserGroupFolded(organizationID, email, name string) (*model.UserGroup, error) {
	var candidates []model.UserGroup
	err := s.tx.Preload("User").
		Where("organization_id = ? AND name = ?", organizationID, name).
		Find(&candidates).Error
	if err != nil {
		return nil, &store.OperationalError{Op: "find user group", Err: err}
	}
	for i := range candidates {
		if model.NormalizeEmail(candidates[i].User.Email) == email {
			return &candidates[i], nil
		}
	}
	return nil, store.ErrUserGroupNotFound
}

func (s *membershipSession) InsertUserGroup(group *model.UserGroup) error {
	// associations are already persisted; never upsert them from here
	err := s.tx.Omit(clause.Associations).Create(group).Error
	return classifyWriteError("insert user group", model.UserGroup{}.TableName(), err)
}
