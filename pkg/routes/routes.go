// Package routes wires the API surface onto the echo server.
package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/laurel/pkg/routes/entity"
	"github.com/Ramsey-B/laurel/pkg/routes/event"
	"github.com/Ramsey-B/laurel/pkg/routes/link"
	"github.com/Ramsey-B/laurel/pkg/routes/merge"
	"github.com/Ramsey-B/laurel/pkg/routes/outcome"
	"github.com/Ramsey-B/laurel/pkg/routes/resolve"
	"github.com/Ramsey-B/laurel/pkg/routes/signal"
	"github.com/Ramsey-B/laurel/pkg/routes/snapshot"
)

// Register mounts every route group under /api/v1.
func Register(e *echo.Echo) {
	api := e.Group("/api/v1")

	resolve.Register(api.Group("/resolve"))
	entity.Register(api.Group("/entities"))
	merge.Register(api.Group("/merges"))
	outcome.Register(api.Group("/attributions"))
	signal.Register(api.Group("/signals"))
	link.Register(api.Group("/links"))
	snapshot.Register(api.Group("/snapshot"))
	event.Register(api.Group("/events"))
}
