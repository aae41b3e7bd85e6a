// Package model defines the database models for tenant membership.
//
// This package contains GORM models that map to the membership schema
// (see db/migrations).
//
// # Core Models
//
//   - User: identity record, matched by email address
//   - Organization: tenant record
//   - UserGroup: named grant binding a user to an organization
//
// # Database Schema
//
//   - users: unique lower-cased email
//   - organizations: tenants
//   - user_groups: unique (organization_id, user_id, name), foreign keys to
//     users and organizations
//
// UserGroup rows are written once and never updated by this module. The only
// group name with special meaning is GroupAdmin.
package model
