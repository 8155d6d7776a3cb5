// Package handlers provides the HTTP surface of the derivative server.
//
// It includes handlers for:
//   - Storage requests, where a missing derivative is generated on demand
//   - Thumbnails and asset info
//   - Source deletion with derivative and thumbnail cascade
//   - Health, readiness and version probes
package handlers
