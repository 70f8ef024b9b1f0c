package link

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
	"github.com/Ramsey-B/laurel/pkg/rewards"
	"github.com/Ramsey-B/laurel/pkg/routes/apierrors"
	"github.com/Ramsey-B/laurel/pkg/tokens"
)

var validate = validator.New()

// Register registers token and wallet link routes
func Register(g *echo.Group) {
	g.POST("/token", LinkToken)
	g.POST("/wallet", ResolveWallet)
}

// LinkToken wires a token contract to its project and optional creator
func LinkToken(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "link_handler.LinkToken")
	defer span.End()

	var req models.TokenLinkRequest
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

	links, err := tokens.LinkTokenProjectCreator(ctx, r, req.Chain, req.ContractAddress, req.ProjectIdentifierType, req.ProjectIdentifierValue, req.CreatorWallet, appcontext.GetCausedBy(ctx))
	if err != nil {
		return apierrors.Translate(err)
	}
	return c.JSON(http.StatusOK, links)
}

// ResolveWallet resolves a season wallet to a person entity
func ResolveWallet(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "link_handler.ResolveWallet")
	defer span.End()

	var req models.WalletResolveRequest
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

	causedBy := appcontext.GetCausedBy(ctx)
	var resolution *models.EntityResolution
	if req.Role == "founder" {
		resolution, err = rewards.ResolveFounderWallet(ctx, r, req.Wallet, req.Chain, causedBy)
	} else {
		resolution, err = rewards.ResolvePlayerWallet(ctx, r, req.Wallet, req.Chain, causedBy)
	}
	if err != nil {
		return apierrors.Translate(err)
	}
	return c.JSON(http.StatusOK, resolution)
}
