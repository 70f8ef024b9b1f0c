package resolve

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/laurel/internal/appcontext"
	"github.com/Ramsey-B/laurel/internal/tracing"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/resolver"
	"github.com/Ramsey-B/laurel/pkg/routes/apierrors"
)

var validate = validator.New()

// Register registers resolution routes
func Register(g *echo.Group) {
	g.POST("", Resolve)
}

// Resolve maps an identifier observation to a canonical entity
func Resolve(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "resolve_handler.Resolve")
	defer span.End()

	var req models.ResolveRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, r, err := ectoinject.GetContext[*resolver.Resolver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "resolver unavailable")
	}

	resolution, err := r.Resolve(ctx, req.IdentifierType, req.Value, models.ResolveOptions{
		Confidence: req.Confidence,
		EntityType: req.EntityType,
		CausedBy:   appcontext.GetCausedBy(ctx),
		Provenance: req.Provenance,
	})
	if err != nil {
		return apierrors.Translate(err)
	}

	status := http.StatusOK
	if resolution.CreatedNewEntity {
		status = http.StatusCreated
	}
	return c.JSON(status, resolution)
}
