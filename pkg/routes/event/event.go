package event

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/laurel/internal/tracing"
	"github.com/Ramsey-B/laurel/pkg/kafka"
	"github.com/Ramsey-B/laurel/pkg/resolver"
)

// Register registers event buffer routes
func Register(g *echo.Group) {
	g.POST("/drain", Drain)
}

// Drain empties the event buffer. When a Kafka producer is wired the batch is
// also published downstream; the drained events are returned either way.
func Drain(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "event_handler.Drain")
	defer span.End()

	ctx, r, err := ectoinject.GetContext[*resolver.Resolver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "resolver unavailable")
	}

	drained := r.DrainEvents()

	if ctx, producer, err := ectoinject.GetContext[*kafka.Producer](ctx); err == nil && producer != nil {
		if err := producer.PublishResolutionEvents(ctx, drained); err != nil {
			return httperror.NewHTTPError(http.StatusBadGateway, "failed to publish events")
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"count":  len(drained),
		"events": drained,
	})
}
