package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/doodlesbykumbi/tenant-authz/pkg/server/store"
	"github.com/doodlesbykumbi/tenant-authz/pkg/usergroup"
)

func TestWaitForServer(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	assert.NoError(t, waitForServer(ts.URL+"/ready", 5, time.Millisecond))
	assert.EqualValues(t, 3, calls.Load())
}

func TestWaitForServer_GivesUp(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	assert.Error(t, waitForServer(ts.URL+"/ready", 2, time.Millisecond))
}

func TestWithMigrationsTable(t *testing.T) {
	assert.Equal(t, "", withMigrationsTable(""))
	assert.Equal(t,
		"postgres://u@h/db?x-migrations-table="+migrationsTable,
		withMigrationsTable("postgres://u@h/db"))
	assert.Equal(t,
		"postgres://u@h/db?sslmode=disable&x-migrations-table="+migrationsTable,
		withMigrationsTable("postgres://u@h/db?sslmode=disable"))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 3, exitCode(&store.OperationalError{Op: "begin", Err: errors.New("down")}))
	assert.Equal(t, 2, exitCode(&store.NotFoundError{Entity: "user", ID: "u"}))
	assert.Equal(t, 2, exitCode(&store.ConstraintViolationError{Table: "user_groups", Err: errors.New("dup")}))
	assert.Equal(t, 2, exitCode(usergroup.ErrInvalidGroupName))
	assert.Equal(t, 1, exitCode(errors.New("other")))
}
