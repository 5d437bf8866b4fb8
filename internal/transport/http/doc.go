// Package http implements the HTTP handlers of the rates read API.
// It is a thin layer between transport and the in-memory payload store,
// keeping handlers focused solely on HTTP concerns.
//
// # Architecture Principles
//
// Handlers in this package follow these principles:
//
//	1. Thin handlers - parse the request, read the store, render
//	2. HTTP-only concerns - no extraction or fetch logic
//	3. Error transformation - store misses become APIError responses
//	4. Consistent patterns - standardized request/response handling
//
// # Request Flow
//
// A typical request flows through these layers:
//
//	HTTP Request → Chi Router → Middleware → Handler → Store
//	                                             ↓
//	HTTP Response ← render.JSON ←────────────────┘
//
// # Error Handling
//
// Failed requests render the APIError JSON shape:
//
//	{
//	    "status_code": 404,
//	    "error_code": "PERIOD_NOT_FOUND",
//	    "message": "no rate schedule for period 2019-01"
//	}
//
// # Testing
//
// Handlers are tested using httptest:
//
//	- Seed a store with fixture payloads
//	- Test various HTTP scenarios
//	- Verify error responses
package http
