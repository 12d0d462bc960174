// Package middleware holds the gin middleware of the inspector API: CORS
// for local pages and a per-client-IP rate limiter built on
// golang.org/x/time/rate.
package middleware
