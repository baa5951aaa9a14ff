// Package api exposes the gateway's HTTP surface: the local login endpoint,
// the SSO callback, session logout, and the identity introspection endpoint
// the frontend renders from.
package api
