package merge

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

// Register registers merge routes
func Register(g *echo.Group) {
	g.GET("", History)
	g.POST("", Merge)
	g.POST("/undo", Undo)
}

// History returns the append-only merge ledger
func History(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "merge_handler.History")
	defer span.End()

	ctx, r, err := ectoinject.GetContext[*resolver.Resolver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "resolver unavailable")
	}

	history, err := r.MergeHistory(ctx)
	if err != nil {
		return apierrors.Translate(err)
	}
	return c.JSON(http.StatusOK, history)
}

// Merge manually folds one entity into another
func Merge(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "merge_handler.Merge")
	defer span.End()

	var req models.MergeRequest
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

	event, err := r.MergeEntities(ctx, req.FromEntityID, req.ToEntityID, req.Reason, appcontext.GetCausedBy(ctx))
	if err != nil {
		return apierrors.Translate(err)
	}
	return c.JSON(http.StatusOK, event)
}

// Undo reverses a prior merge
func Undo(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "merge_handler.Undo")
	defer span.End()

	var req models.UndoMergeRequest
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

	event, err := r.UndoMerge(ctx, req.FromEntityID, req.ToEntityID, appcontext.GetCausedBy(ctx))
	if err != nil {
		return apierrors.Translate(err)
	}
	return c.JSON(http.StatusOK, event)
}
