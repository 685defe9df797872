// Package server implements the HTTP API for walkthrough sessions
//
// This package provides REST endpoints for listing recipes, starting and
// advancing sessions, health checks, and a WebSocket that streams a
// session's run events
package server
