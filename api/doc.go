// Package api exposes the read-only REST surface: room listings, presence
// information, configuration management, and the WebSocket upgrade endpoint.
// All game mutations go over the WebSocket protocol; the REST routes exist
// for dashboards, bots, and health checks.
package api
