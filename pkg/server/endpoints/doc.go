// Package endpoints registers the HTTP handlers on a server.Server.
package endpoints
