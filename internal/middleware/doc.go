// Package middleware provides the HTTP middleware chain for the derivative
// server.
//
// It includes:
//   - Request logging in W3C Extended Log Format, with the derivative cache
//     outcome of each storage request
//   - Prometheus request metrics with bounded path cardinality
//   - gzip compression of textual API responses
package middleware
