package entity

import (
	"net/http"
	"strconv"

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

// Register registers entity routes
func Register(g *echo.Group) {
	g.GET("/:id", Get)
	g.GET("/:id/aliases", ListAliases)
	g.POST("/:id/aliases", AddAlias)
	g.GET("/:id/context", GetContext)
	g.GET("/:id/confidence", GetConfidence)
	g.GET("/:id/recommendation", GetRecommendation)
	g.GET("/:id/lineage", GetLineage)
}

// Get returns the entity row along with its canonical id
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "entity_handler.Get")
	defer span.End()

	id := c.Param("id")

	ctx, r, err := ectoinject.GetContext[*resolver.Resolver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "resolver unavailable")
	}

	entity, err := r.Store().GetEntity(ctx, id)
	if err != nil {
		return apierrors.Translate(err)
	}
	if entity == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "unknown entity")
	}
	canonicalID, err := r.Store().Canonicalize(ctx, id)
	if err != nil {
		return apierrors.Translate(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"entity":              entity,
		"canonical_entity_id": canonicalID,
	})
}

// ListAliases lists every alias of the entity's canonical identity
func ListAliases(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "entity_handler.ListAliases")
	defer span.End()

	id := c.Param("id")

	ctx, r, err := ectoinject.GetContext[*resolver.Resolver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "resolver unavailable")
	}

	if err := r.Store().EnsureEntity(ctx, id); err != nil {
		return apierrors.Translate(err)
	}
	aliases, err := r.AliasesForEntity(ctx, id)
	if err != nil {
		return apierrors.Translate(err)
	}
	return c.JSON(http.StatusOK, aliases)
}

// AddAlias binds a new identifier to the entity
func AddAlias(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "entity_handler.AddAlias")
	defer span.End()

	id := c.Param("id")

	var req models.AddAliasRequest
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

	emitted, err := r.AddAlias(ctx, id, req.IdentifierType, req.Value, models.ResolveOptions{
		Confidence: req.Confidence,
		CausedBy:   appcontext.GetCausedBy(ctx),
		Provenance: req.Provenance,
	})
	if err != nil {
		return apierrors.Translate(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"emitted_events": emitted})
}

// GetContext returns the evidence dossier for the entity
func GetContext(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "entity_handler.GetContext")
	defer span.End()

	id := c.Param("id")
	recentLimit, _ := strconv.Atoi(c.QueryParam("recent_limit"))

	ctx, r, err := ectoinject.GetContext[*resolver.Resolver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "resolver unavailable")
	}

	if err := r.Store().EnsureEntity(ctx, id); err != nil {
		return apierrors.Translate(err)
	}
	entityContext, err := r.EntityContext(ctx, id, recentLimit)
	if err != nil {
		return apierrors.Translate(err)
	}
	return c.JSON(http.StatusOK, entityContext)
}

// GetConfidence returns the weighted confidence summary
func GetConfidence(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "entity_handler.GetConfidence")
	defer span.End()

	id := c.Param("id")

	ctx, r, err := ectoinject.GetContext[*resolver.Resolver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "resolver unavailable")
	}

	if err := r.Store().EnsureEntity(ctx, id); err != nil {
		return apierrors.Translate(err)
	}
	summary, err := r.ConfidenceSummary(ctx, id)
	if err != nil {
		return apierrors.Translate(err)
	}
	return c.JSON(http.StatusOK, summary)
}

// GetRecommendation returns the outreach-planning view
func GetRecommendation(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "entity_handler.GetRecommendation")
	defer span.End()

	id := c.Param("id")

	ctx, r, err := ectoinject.GetContext[*resolver.Resolver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "resolver unavailable")
	}

	if err := r.Store().EnsureEntity(ctx, id); err != nil {
		return apierrors.Translate(err)
	}
	recommendation, err := r.RecommendationContext(ctx, id)
	if err != nil {
		return apierrors.Translate(err)
	}
	return c.JSON(http.StatusOK, recommendation)
}

// GetLineage returns the redirect chain and related merge records
func GetLineage(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "entity_handler.GetLineage")
	defer span.End()

	id := c.Param("id")

	ctx, r, err := ectoinject.GetContext[*resolver.Resolver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "resolver unavailable")
	}

	if err := r.Store().EnsureEntity(ctx, id); err != nil {
		return apierrors.Translate(err)
	}
	lineage, err := r.Lineage(ctx, id)
	if err != nil {
		return apierrors.Translate(err)
	}
	return c.JSON(http.StatusOK, lineage)
}
