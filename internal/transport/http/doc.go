// Package http implements the HTTP handlers of the StatTwin API. Handlers
// are a thin layer between transport and the services package: they decode
// and validate requests, call one service method and render the result.
//
// # Routes
//
// SimilarityHandler, mounted under /api/v1:
//
//	POST /similar                 nearest neighbours of one player
//	GET  /players/{id}/similar    same, driven by query parameters
//	POST /rank-all                neighbourhood of every player
//	POST /filter                  players matching a filter set
//	GET  /report                  preprocessing and data quality report
//	POST /dataset/reload          re-read the configured source
//
// LeagueHandler, mounted under /api/v1/leagues:
//
//	GET /                         list, filtered by continent, country, tier, major, q
//	GET /hierarchy                continent > country > leagues
//	GET /{id}                     one league
//
// HealthHandler serves /api/health, /api/health/ready, /api/health/live and
// /api/version.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → Service
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Error Handling
//
// Every error goes through errors.ErrorHandler and is rendered as RFC 7807
// Problem Details:
//
//	{
//	    "type": "/errors/validation",
//	    "title": "Bad Request",
//	    "status": 400,
//	    "detail": "Request validation failed",
//	    "instance": "/api/v1/similar"
//	}
//
// Unknown players map to 404, an unloaded dataset to 503 and malformed
// bodies to 400.
//
// # Testing
//
// Handlers are tested with httptest against testify mocks of the service
// interfaces declared in service_interface.go.
package http
