// Package auth provides authentication for the bridge's admin API.
//
// The bridge runs with a single admin account whose credentials come
// from configuration. Login issues a short-lived HS256 JWT access
// token; subsequent requests are validated by signature and expiry
// alone, with no storage lookup.
package auth
