package signal

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/laurel/internal/appcontext"
	"github.com/Ramsey-B/laurel/internal/tracing"
	"github.com/Ramsey-B/laurel/pkg/resolver"
	"github.com/Ramsey-B/laurel/pkg/routes/apierrors"
	"github.com/Ramsey-B/laurel/pkg/signals"
)

// Register registers signal ingestion routes
func Register(g *echo.Group) {
	g.POST("", Ingest)
	g.POST("/digest", Digest)
}

// Ingest resolves a normalized social signal envelope
func Ingest(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "signal_handler.Ingest")
	defer span.End()

	var envelope signals.Envelope
	if err := c.Bind(&envelope); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, r, err := ectoinject.GetContext[*resolver.Resolver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "resolver unavailable")
	}

	result, err := signals.Resolve(ctx, r, envelope, "", appcontext.GetCausedBy(ctx))
	if err != nil {
		return apierrors.Translate(err)
	}
	return c.JSON(http.StatusOK, result)
}

// Digest resolves a social payload and returns the explainable digest
func Digest(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "signal_handler.Digest")
	defer span.End()

	var payload map[string]any
	if err := c.Bind(&payload); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, r, err := ectoinject.GetContext[*resolver.Resolver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "resolver unavailable")
	}

	digest, err := signals.BuildSocialDigest(ctx, r, payload, appcontext.GetCausedBy(ctx))
	if err != nil {
		return apierrors.Translate(err)
	}
	return c.JSON(http.StatusOK, digest)
}
