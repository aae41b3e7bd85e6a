package authz

import (
	"context"
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/doodlesbykumbi/tenant-authz/pkg/audit"
	"github.com/doodlesbykumbi/tenant-authz/pkg/identity"
	"github.com/doodlesbykumbi/tenant-authz/pkg/model"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server/store"
)

// DefaultTenantHeader names the request header carrying the organization id.
const DefaultTenantHeader = "OrganizationId"

// Evaluator answers tenant-admin questions against a MembershipStore.
// It holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	store        store.MembershipStore
	tenantHeader string
	emailClaim   string
	auditor      func(context.Context, audit.Event)
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithTenantHeader overrides DefaultTenantHeader.
func WithTenantHeader(name string) Option {
	return func(e *Evaluator) {
		if name != "" {
			e.tenantHeader = name
		}
	}
}

// WithEmailClaim overrides identity.ClaimEmail.
func WithEmailClaim(claimType string) Option {
	return func(e *Evaluator) {
		if claimType != "" {
			e.emailClaim = claimType
		}
	}
}

// WithAuditor replaces audit.LogContext as the decision sink. nil disables
// auditing. The sink receives the request context.
func WithAuditor(fn func(context.Context, audit.Event)) Option {
	return func(e *Evaluator) {
		e.auditor = fn
	}
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(s store.MembershipStore, opts ...Option) *Evaluator {
	e := &Evaluator{
		store:        s,
		tenantHeader: DefaultTenantHeader,
		emailClaim:   identity.ClaimEmail,
		auditor:      audit.LogContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TenantHeader returns the header the evaluator reads the tenant from.
func (e *Evaluator) TenantHeader() string {
	return e.tenantHeader
}

// Evaluate decides whether email administers tenantID.
func (e *Evaluator) Evaluate(ctx context.Context, tenantID, email string) Decision {
	decision := e.evaluate(ctx, tenantID, email)
	e.record(ctx, tenantID, email, decision)
	return decision
}

// EvaluateRequest evaluates the caller of r: the tenant comes from the
// tenant header and the email from the identity on the request context.
func (e *Evaluator) EvaluateRequest(r *http.Request) Decision {
	tenantID, _ := tenantFromHeader(r.Header, e.tenantHeader)

	var email string
	if id, ok := identity.Get(r.Context()); ok {
		email, _ = id.Claim(e.emailClaim)
	}

	return e.Evaluate(r.Context(), tenantID, email)
}

func (e *Evaluator) evaluate(ctx context.Context, tenantID, email string) Decision {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return fail(ReasonMissingTenant)
	}
	email = model.NormalizeEmail(email)
	if email == "" {
		return fail(ReasonMissingIdentity)
	}

	err := e.store.WithSession(ctx, func(session store.MembershipSession) error {
		_, err := session.FindUserGroup(tenantID, email, model.GroupAdmin)
		return err
	})
	switch {
	case err == nil:
		return succeed()
	case errors.Is(err, store.ErrNotFound):
		// unknown organization, unknown user and non-admin look the same
		return fail(ReasonNotAdmin)
	default:
		return failClosed(err)
	}
}

func (e *Evaluator) record(ctx context.Context, tenantID, email string, d Decision) {
	logger := log.WithFields(log.Fields{
		"organization_id": tenantID,
		"email":           email,
		"result":          d.Result.String(),
	})
	switch {
	case d.Operational():
		logger.WithError(d.Err).Error("tenant admin check failed closed")
	case !d.Allowed():
		logger.WithField("reason", d.Reason).Debug("tenant admin check denied")
	default:
		logger.Debug("tenant admin check succeeded")
	}

	if e.auditor == nil {
		return
	}
	event := audit.AuthzEvent{
		OrganizationID: tenantID,
		Email:          model.NormalizeEmail(email),
		Allowed:        d.Allowed(),
		Reason:         d.Reason,
		Operational:    d.Operational(),
	}
	if id, ok := identity.Get(ctx); ok && id.RemoteIP != nil {
		event.ClientIP = id.RemoteIP.String()
	}
	e.auditor(ctx, event)
}

// TenantFromHeader returns the first value of DefaultTenantHeader. A
// missing or blank header yields ok == false.
func TenantFromHeader(h http.Header) (string, bool) {
	return tenantFromHeader(h, DefaultTenantHeader)
}

func tenantFromHeader(h http.Header, name string) (string, bool) {
	values := h.Values(name)
	if len(values) == 0 {
		return "", false
	}
	tenant := strings.TrimSpace(values[0])
	return tenant, tenant != ""
}
