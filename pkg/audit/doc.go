// Package audit provides audit logging for authorization decisions and
// group provisioning.
//
// Events are written as RFC5424 syslog lines to the DefaultLogger and, when
// AUDIT_DATABASE_URL is set, persisted to the audit_events table.
//
// # Event Types
//
//   - AuthzEvent: one tenant-admin decision (allowed, denied or failed closed)
//   - UserGroupCreateEvent: one group creation attempt and its outcome
//
// # Usage
//
//	audit.Log(audit.AuthzEvent{
//		OrganizationID: tenantID,
//		Email:          email,
//		Allowed:        decision.Allowed(),
//		Reason:         decision.Reason,
//	})
//
// Set TENANT_AUTHZ_AUDIT_ENABLED=false to disable audit output.
package audit
