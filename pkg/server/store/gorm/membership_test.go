package gorm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/doodlesbykumbi/tenant-authz/pkg/db"
	"github.com/doodlesbykumbi/tenant-authz/pkg/model"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server/store"
)

func newSQLiteStore(t *testing.T) (*MembershipStore, *gorm.DB) {
	t.Helper()

	conn, err := db.Connect(db.Config{URL: "file::memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))

	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return NewMembershipStore(conn), conn
}

func seed(t *testing.T, conn *gorm.DB) (model.Organization, model.User) {
	t.Helper()

	org := model.Organization{ID: "org-1", Name: "Grace Chapel"}
	user := model.User{ID: "user-1", Email: "Pastor@Example.com"}
	require.NoError(t, conn.Create(&org).Error)
	require.NoError(t, conn.Create(&user).Error)
	return org, user
}

func newMockStore(t *testing.T) (*MembershipStore, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{
			Conn:                 mockDB,
			PreferSimpleProtocol: true,
		}),
		&gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		},
	)
	require.NoError(t, err)

	return NewMembershipStore(gormDB), mock
}

func countGroups(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, conn.Model(&model.UserGroup{}).Count(&count).Error)
	return count
}

func TestMembershipStore_FindUserAndOrganization(t *testing.T) {
	s, conn := newSQLiteStore(t)
	org, user := seed(t, conn)

	err := s.WithSession(context.Background(), func(session store.MembershipSession) error {
		foundUser, err := session.FindUserByID(user.ID)
		require.NoError(t, err)
		assert.Equal(t, "pastor@example.com", foundUser.Email)

		foundOrg, err := session.FindOrganizationByID(org.ID)
		require.NoError(t, err)
		assert.Equal(t, "Grace Chapel", foundOrg.Name)
		return nil
	})
	require.NoError(t, err)
}

func TestMembershipStore_FindMissingReturnsNotFound(t *testing.T) {
	s, _ := newSQLiteStore(t)

	err := s.WithSession(context.Background(), func(session store.MembershipSession) error {
		_, err := session.FindUserByID("missing-user")
		return err
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	var nf *store.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "user", nf.Entity)
	assert.Equal(t, "missing-user", nf.ID)

	err = s.WithSession(context.Background(), func(session store.MembershipSession) error {
		_, err := session.FindOrganizationByID("missing-org")
		return err
	})
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.False(t, errors.Is(err, store.ErrConstraintViolation))
}

func TestMembershipStore_InsertAndFindUserGroup(t *testing.T) {
	s, conn := newSQLiteStore(t)
	org, user := seed(t, conn)

	group := model.NewUserGroup(model.GroupAdmin, org, user)
	err := s.WithSession(context.Background(), func(session store.MembershipSession) error {
		return session.InsertUserGroup(group)
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, countGroups(t, conn))

	err = s.WithSession(context.Background(), func(session store.MembershipSession) error {
		found, err := session.FindUserGroup(org.ID, "PASTOR@EXAMPLE.COM", model.GroupAdmin)
		require.NoError(t, err)
		assert.Equal(t, group.ID, found.ID)
		assert.Equal(t, org.ID, found.OrganizationID)
		assert.Equal(t, user.ID, found.UserID)
		return nil
	})
	require.NoError(t, err)
}

func TestMembershipStore_FindUserGroupFoldsNonASCIIEmail(t *testing.T) {
	s, conn := newSQLiteStore(t)
	org := model.Organization{ID: "org-1", Name: "Grace Chapel"}
	require.NoError(t, conn.Create(&org).Error)

	// written without the model hook, as an import tool would
	require.NoError(t, conn.Exec(
		"INSERT INTO users (id, email, created_at) VALUES (?, ?, ?)",
		"user-e", "ÉLODIE@Example.com", time.Now(),
	).Error)
	user := model.User{ID: "user-e", Email: "ÉLODIE@Example.com"}

	group := model.NewUserGroup(model.GroupAdmin, org, user)
	require.NoError(t, s.WithSession(context.Background(), func(session store.MembershipSession) error {
		return session.InsertUserGroup(group)
	}))

	for _, email := range []string{"élodie@example.com", "Élodie@EXAMPLE.com"} {
		err := s.WithSession(context.Background(), func(session store.MembershipSession) error {
			found, err := session.FindUserGroup(org.ID, email, model.GroupAdmin)
			if err != nil {
				return err
			}
			assert.Equal(t, group.ID, found.ID)
			return nil
		})
		assert.NoError(t, err, email)
	}
}

func TestMembershipStore_FindUserGroupMisses(t *testing.T) {
	s, conn := newSQLiteStore(t)
	org, user := seed(t, conn)
	require.NoError(t, s.WithSession(context.Background(), func(session store.MembershipSession) error {
		return session.InsertUserGroup(model.NewUserGroup("Editors", org, user))
	}))

	tests := []struct {
		name  string
		orgID string
		email string
		group string
	}{
		{name: "wrong group name", orgID: org.ID, email: user.Email, group: model.GroupAdmin},
		{name: "unknown organization", orgID: "org-404", email: user.Email, group: "Editors"},
		{name: "unknown email", orgID: org.ID, email: "nobody@example.com", group: "Editors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.WithSession(context.Background(), func(session store.MembershipSession) error {
				_, err := session.FindUserGroup(tt.orgID, tt.email, tt.group)
				return err
			})
			assert.ErrorIs(t, err, store.ErrUserGroupNotFound)
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestMembershipStore_DuplicateInsertIsConstraintViolation(t *testing.T) {
	s, conn := newSQLiteStore(t)
	org, user := seed(t, conn)

	first := model.NewUserGroup(model.GroupAdmin, org, user)
	require.NoError(t, s.WithSession(context.Background(), func(session store.MembershipSession) error {
		return session.InsertUserGroup(first)
	}))

	err := s.WithSession(context.Background(), func(session store.MembershipSession) error {
		return session.InsertUserGroup(model.NewUserGroup(model.GroupAdmin, org, user))
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrConstraintViolation)
	assert.NotErrorIs(t, err, store.ErrNotFound)

	var stored []model.UserGroup
	require.NoError(t, conn.Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, first.ID, stored[0].ID)
}

func TestMembershipStore_DanglingReferenceIsConstraintViolation(t *testing.T) {
	s, conn := newSQLiteStore(t)
	org, _ := seed(t, conn)

	ghost := model.User{ID: "ghost", Email: "ghost@example.com"}
	err := s.WithSession(context.Background(), func(session store.MembershipSession) error {
		return session.InsertUserGroup(model.NewUserGroup(model.GroupAdmin, org, ghost))
	})
	assert.ErrorIs(t, err, store.ErrConstraintViolation)
	assert.EqualValues(t, 0, countGroups(t, conn))

	var users int64
	require.NoError(t, conn.Model(&model.User{}).Count(&users).Error)
	assert.EqualValues(t, 1, users, "insert must not create the referenced user")
}

func TestMembershipStore_RollbackOnCallbackError(t *testing.T) {
	s, conn := newSQLiteStore(t)
	org, user := seed(t, conn)

	callbackErr := errors.New("abort")
	err := s.WithSession(context.Background(), func(session store.MembershipSession) error {
		require.NoError(t, session.InsertUserGroup(model.NewUserGroup(model.GroupAdmin, org, user)))
		return callbackErr
	})
	assert.Same(t, callbackErr, err)
	assert.EqualValues(t, 0, countGroups(t, conn))
}

func TestMembershipStore_RollbackOnPanic(t *testing.T) {
	s, conn := newSQLiteStore(t)
	org, user := seed(t, conn)

	assert.Panics(t, func() {
		_ = s.WithSession(context.Background(), func(session store.MembershipSession) error {
			require.NoError(t, session.InsertUserGroup(model.NewUserGroup(model.GroupAdmin, org, user)))
			panic("boom")
		})
	})
	assert.EqualValues(t, 0, countGroups(t, conn))
}

func TestMembershipStore_ConcurrentInsertsExactlyOneWins(t *testing.T) {
	s, conn := newSQLiteStore(t)
	org, user := seed(t, conn)

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.WithSession(context.Background(), func(session store.MembershipSession) error {
				return session.InsertUserGroup(model.NewUserGroup(model.GroupAdmin, org, user))
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, store.ErrConstraintViolation)
	}
	assert.Equal(t, 1, succeeded)
	assert.EqualValues(t, 1, countGroups(t, conn))
}

func TestMembershipStore_CancelledContextIsOperational(t *testing.T) {
	s, _ := newSQLiteStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.WithSession(ctx, func(session store.MembershipSession) error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.ErrorIs(t, err, store.ErrOperational)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMembershipStore_BeginFailureIsOperational(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := s.WithSession(context.Background(), func(session store.MembershipSession) error {
		t.Error("callback should not run")
		return nil
	})
	assert.ErrorIs(t, err, store.ErrOperational)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipStore_QueryFailureIsOperational(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "user_groups"`).WillReturnError(errors.New("server closed the connection unexpectedly"))
	mock.ExpectRollback()

	err := s.WithSession(context.Background(), func(session store.MembershipSession) error {
		_, err := session.FindUserGroup("org-1", "a@b.com", model.GroupAdmin)
		return err
	})
	assert.ErrorIs(t, err, store.ErrOperational)
	assert.NotErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipStore_PostgresUniqueViolation(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "user_groups"`).WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	org := model.Organization{ID: "org-1"}
	user := model.User{ID: "user-1"}
	err := s.WithSession(context.Background(), func(session store.MembershipSession) error {
		return session.InsertUserGroup(model.NewUserGroup(model.GroupAdmin, org, user))
	})
	assert.ErrorIs(t, err, store.ErrConstraintViolation)

	var cv *store.ConstraintViolationError
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "user_groups", cv.Table)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipStore_Timeout(t *testing.T) {
	s, mock := newMockStore(t)
	s.WithTimeout(10 * time.Millisecond)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "users"`).WillDelayFor(200 * time.Millisecond).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := s.WithSession(context.Background(), func(session store.MembershipSession) error {
		_, err := session.FindUserByID("user-1")
		return err
	})
	assert.ErrorIs(t, err, store.ErrOperational)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestIsConstraintViolation(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "gorm duplicated key", err: gorm.ErrDuplicatedKey, expected: true},
		{name: "gorm foreign key", err: gorm.ErrForeignKeyViolated, expected: true},
		{name: "pq unique", err: &pq.Error{Code: "23505"}, expected: true},
		{name: "pq foreign key", err: &pq.Error{Code: "23503"}, expected: true},
		{name: "pq other", err: &pq.Error{Code: "57014"}, expected: false},
		{name: "sqlite unique", err: errors.New("constraint failed: UNIQUE constraint failed: user_groups.name (2067)"), expected: true},
		{name: "sqlite foreign key", err: errors.New("FOREIGN KEY constraint failed (787)"), expected: true},
		{name: "timeout", err: context.DeadlineExceeded, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isConstraintViolation(tt.err))
		})
	}
}
