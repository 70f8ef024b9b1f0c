package snapshot

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/laurel/internal/tracing"
	"github.com/Ramsey-B/laurel/pkg/resolver"
	"github.com/Ramsey-B/laurel/pkg/routes/apierrors"
	"github.com/Ramsey-B/laurel/pkg/store"
)

// Register registers snapshot routes
func Register(g *echo.Group) {
	g.GET("", Export)
	g.POST("", Restore)
}

// Export dumps the full resolution state
func Export(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "snapshot_handler.Export")
	defer span.End()

	ctx, r, err := ectoinject.GetContext[*resolver.Resolver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "resolver unavailable")
	}

	snapshot, err := r.ExportSnapshot(ctx)
	if err != nil {
		return apierrors.Translate(err)
	}
	return c.JSON(http.StatusOK, snapshot)
}

// Restore replaces the resolution state wholesale
func Restore(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "snapshot_handler.Restore")
	defer span.End()

	var snapshot store.Snapshot
	if err := c.Bind(&snapshot); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, r, err := ectoinject.GetContext[*resolver.Resolver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "resolver unavailable")
	}

	if err := r.RestoreSnapshot(ctx, &snapshot); err != nil {
		return apierrors.Translate(err)
	}
	return c.NoContent(http.StatusNoContent)
}
