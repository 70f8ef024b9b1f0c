package outcome

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/laurel/internal/tracing"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/resolver"
	"github.com/Ramsey-B/laurel/pkg/rewards"
	"github.com/Ramsey-B/laurel/pkg/routes/apierrors"
	"github.com/Ramsey-B/laurel/pkg/tokens"
)

var validate = validator.New()

// Register registers outcome attribution routes
func Register(g *echo.Group) {
	g.POST("", Attribute)
	g.POST("/token", AttributeToken)
	g.POST("/reward", AttributeReward)
}

// Attribute ranks generic outcome references against resolved entities
func Attribute(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "outcome_handler.Attribute")
	defer span.End()

	var req models.AttributionRequest
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

	result, err := r.AttributeOutcome(ctx, req.References)
	if err != nil {
		return apierrors.Translate(err)
	}
	return c.JSON(http.StatusOK, result)
}

// AttributeToken ranks token outcome references
func AttributeToken(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "outcome_handler.AttributeToken")
	defer span.End()

	var req models.AttributionRequest
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

	result, err := tokens.AttributeTokenOutcome(ctx, r, req.References)
	if err != nil {
		return apierrors.Translate(err)
	}
	return c.JSON(http.StatusOK, result)
}

// AttributeReward ranks season reward claim references
func AttributeReward(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "outcome_handler.AttributeReward")
	defer span.End()

	var req models.AttributionRequest
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

	result, err := rewards.AttributeSeasonReward(ctx, r, req.References)
	if err != nil {
		return apierrors.Translate(err)
	}
	return c.JSON(http.StatusOK, result)
}
