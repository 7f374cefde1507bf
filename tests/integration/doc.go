// Package integration runs the posts API against a real PostgreSQL started
// with testcontainers and checks both HTTP responses and table state.
//
// Run with: go test -tags=integration ./tests/integration/...
package integration
