// Package db holds the versioned SQL schema for postgres deployments.
package db

import "embed"

// Migrations contains the golang-migrate up/down files.
//
//go:embed migrations/*.sql
var Migrations embed.FS
