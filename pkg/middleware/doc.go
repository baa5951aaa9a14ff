// Package middleware holds the HTTP middleware chain: request IDs, panic
// recovery, request logging, and principal resolution.
package middleware
