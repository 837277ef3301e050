package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dorobek/core/unit"
)

type unitApi struct {
	kind     unit.Kind
	svc      unit.Service
	validate *validator.Validate
}

// registerUnitAPI serves every unit kind under its plural: /units/universities, /units/faculties...
func registerUnitAPI(g *echo.Group, jwt, active echo.MiddlewareFunc, svc unit.Service, validate *validator.Validate) {
	ug := g.Group("/units", jwt, active)

	for _, kind := range unit.Kinds {
		api := &unitApi{kind: kind, svc: svc, validate: validate}

		kg := ug.Group("/" + kind.Plural())
		kg.GET("", api.query)
		kg.POST("", api.create, staffMiddleware())
		kg.DELETE("", api.destroyMultiple, staffMiddleware())
		kg.GET("/:id", api.retrieve)
		kg.PUT("/:id", api.update, staffMiddleware())
		kg.DELETE("/:id", api.destroy, staffMiddleware())
	}
}

func (api *unitApi) object(ctx echo.Context) (unit.Unit, error) {
	id, err := idParam(ctx)
	if err != nil {
		return unit.Unit{}, err
	}
	return api.svc.GetByID(ctx.Request().Context(), api.kind, id)
}

func (api *unitApi) create(ctx echo.Context) error {
	var data unit.NewUnit
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUnit")
	}
	if err := data.Validate(ctx.Request().Context(), api.kind, api.validate, api.svc); err != nil {
		return err
	}

	u, err := api.svc.Create(ctx.Request().Context(), api.kind, data)
	if err != nil {
		return errors.Wrapf(err, "creating %s", api.kind)
	}
	return created(ctx, u.ID, u)
}

func (api *unitApi) query(ctx echo.Context) error {
	filter := new(unit.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []unit.Unit{})
	}
	filter.Clean()

	units, err := api.svc.Query(ctx.Request().Context(), api.kind, filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrapf(err, "querying %s", api.kind.Plural())
	}
	if units == nil {
		units = []unit.Unit{}
	}
	return ctx.JSON(http.StatusOK, units)
}

func (api *unitApi) retrieve(ctx echo.Context) error {
	u, err := api.object(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, u)
}

func (api *unitApi) update(ctx echo.Context) error {
	u, err := api.object(ctx)
	if err != nil {
		return err
	}

	var data unit.UpdateUnit
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUnit")
	}
	if err = data.Validate(ctx.Request().Context(), u, api.validate, api.svc); err != nil {
		return err
	}

	if u, err = api.svc.Update(ctx.Request().Context(), u, data); err != nil {
		return errors.Wrapf(err, "updating %s", api.kind)
	}
	return ctx.JSON(http.StatusOK, u)
}

// destroy also deletes the units below u.
func (api *unitApi) destroy(ctx echo.Context) error {
	u, err := api.object(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), api.kind, u.ID); err != nil {
		return errors.Wrapf(err, "deleting %s", api.kind)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *unitApi) destroyMultiple(ctx echo.Context) error {
	ids, err := bindIDs(ctx)
	if err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if err = api.svc.Delete(ctx.Request().Context(), api.kind, ids...); err != nil {
		return errors.Wrapf(err, "deleting %s", api.kind.Plural())
	}
	return ctx.NoContent(http.StatusNoContent)
}
