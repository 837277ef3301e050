package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dorobek/core/attainment"
	"github.com/trezcool/dorobek/core/employee"
)

type (
	attainmentApi struct {
		kind     attainment.Kind
		svc      attainment.Service
		validate *validator.Validate
	}

	authorApi struct {
		svc      attainment.Service
		empSvc   employee.Service
		validate *validator.Validate
	}
)

func registerAttainmentAPI(
	g *echo.Group,
	jwt, active echo.MiddlewareFunc,
	svc attainment.Service,
	empSvc employee.Service,
	validate *validator.Validate,
) {
	ag := g.Group("/attainments", jwt, active)
	staff := staffMiddleware()

	for _, kind := range attainment.Kinds {
		api := &attainmentApi{kind: kind, svc: svc, validate: validate}

		kg := ag.Group("/" + kind.Plural())
		kg.GET("", api.query)
		kg.POST("", api.create, staff)
		kg.DELETE("", api.destroyMultiple, staff)
		kg.GET("/:id", api.retrieve)
		kg.PUT("/:id", api.update, staff)
		kg.DELETE("/:id", api.destroy, staff)
	}

	api := &authorApi{svc: svc, empSvc: empSvc, validate: validate}

	aug := ag.Group("/authors")
	aug.GET("", api.query)
	aug.POST("", api.create, staff)
	aug.DELETE("", api.destroyMultiple, staff)
	aug.GET("/:id", api.retrieve)
	aug.PUT("/:id", api.update, staff)
	aug.DELETE("/:id", api.destroy, staff)

	cg := ag.Group("/contributions")
	cg.GET("", api.queryContributions)
	cg.POST("", api.createContribution, staff)
	cg.DELETE("", api.destroyContributions, staff)
	cg.GET("/:id", api.retrieveContribution)
	cg.PUT("/:id", api.updateContribution, staff)
	cg.DELETE("/:id", api.destroyContribution, staff)
}

// Attainments

func (api *attainmentApi) object(ctx echo.Context) (attainment.Attainment, error) {
	id, err := idParam(ctx)
	if err != nil {
		return attainment.Attainment{}, err
	}
	return api.svc.GetByID(ctx.Request().Context(), api.kind, id)
}

func (api *attainmentApi) create(ctx echo.Context) error {
	var data attainment.NewAttainment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAttainment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Create(ctx.Request().Context(), api.kind, data)
	if err != nil {
		return errors.Wrapf(err, "creating %s", api.kind)
	}
	return created(ctx, a.ID, a)
}

func (api *attainmentApi) query(ctx echo.Context) error {
	filter := new(attainment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []attainment.Attainment{})
	}
	filter.Clean()

	list, err := api.svc.Query(ctx.Request().Context(), api.kind, filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrapf(err, "querying %s", api.kind.Plural())
	}
	if list == nil {
		list = []attainment.Attainment{}
	}
	return ctx.JSON(http.StatusOK, list)
}

// retrieve sends the attainment along with its contributions.
func (api *attainmentApi) retrieve(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	detail, err := api.svc.GetDetail(ctx.Request().Context(), api.kind, id)
	if err != nil {
		return errors.Wrapf(err, "finding %s", api.kind)
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *attainmentApi) update(ctx echo.Context) error {
	a, err := api.object(ctx)
	if err != nil {
		return err
	}

	var data attainment.UpdateAttainment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAttainment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if a, err = api.svc.Update(ctx.Request().Context(), a, data); err != nil {
		return errors.Wrapf(err, "updating %s", api.kind)
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *attainmentApi) destroy(ctx echo.Context) error {
	a, err := api.object(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), api.kind, a.ID); err != nil {
		return errors.Wrapf(err, "deleting %s", api.kind)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attainmentApi) destroyMultiple(ctx echo.Context) error {
	ids, err := bindIDs(ctx)
	if err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if err = api.svc.Delete(ctx.Request().Context(), api.kind, ids...); err != nil {
		return errors.Wrapf(err, "deleting %s", api.kind.Plural())
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Authors

func (api *authorApi) object(ctx echo.Context) (attainment.Author, error) {
	id, err := idParam(ctx)
	if err != nil {
		return attainment.Author{}, err
	}
	return api.svc.GetAuthor(ctx.Request().Context(), id)
}

func (api *authorApi) create(ctx echo.Context) error {
	var data attainment.NewAuthor
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAuthor")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.empSvc); err != nil {
		return err
	}

	a, err := api.svc.CreateAuthor(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating author")
	}
	return created(ctx, a.ID, a)
}

func (api *authorApi) query(ctx echo.Context) error {
	filter := new(attainment.AuthorFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []attainment.Author{})
	}
	filter.Clean()

	authors, err := api.svc.QueryAuthors(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying authors")
	}
	if authors == nil {
		authors = []attainment.Author{}
	}
	return ctx.JSON(http.StatusOK, authors)
}

func (api *authorApi) retrieve(ctx echo.Context) error {
	a, err := api.object(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *authorApi) update(ctx echo.Context) error {
	a, err := api.object(ctx)
	if err != nil {
		return err
	}

	var data attainment.UpdateAuthor
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAuthor")
	}
	if err = data.Validate(ctx.Request().Context(), a, api.validate, api.empSvc); err != nil {
		return err
	}

	if a, err = api.svc.UpdateAuthor(ctx.Request().Context(), a, data); err != nil {
		return errors.Wrap(err, "updating author")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *authorApi) destroy(ctx echo.Context) error {
	a, err := api.object(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteAuthors(ctx.Request().Context(), a.ID); err != nil {
		return errors.Wrap(err, "deleting author")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authorApi) destroyMultiple(ctx echo.Context) error {
	ids, err := bindIDs(ctx)
	if err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if err = api.svc.DeleteAuthors(ctx.Request().Context(), ids...); err != nil {
		return errors.Wrap(err, "deleting authors")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Contributions

func (api *authorApi) contribution(ctx echo.Context) (attainment.Contribution, error) {
	id, err := idParam(ctx)
	if err != nil {
		return attainment.Contribution{}, err
	}
	return api.svc.GetContribution(ctx.Request().Context(), id)
}

func (api *authorApi) createContribution(ctx echo.Context) error {
	var data attainment.NewContribution
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewContribution")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	c, err := api.svc.CreateContribution(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating contribution")
	}
	return created(ctx, c.ID, c)
}

func (api *authorApi) queryContributions(ctx echo.Context) error {
	filter := new(attainment.ContributionFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []attainment.Contribution{})
	}
	filter.Clean()

	contribs, err := api.svc.QueryContributions(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying contributions")
	}
	if contribs == nil {
		contribs = []attainment.Contribution{}
	}
	return ctx.JSON(http.StatusOK, contribs)
}

func (api *authorApi) retrieveContribution(ctx echo.Context) error {
	c, err := api.contribution(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *authorApi) updateContribution(ctx echo.Context) error {
	c, err := api.contribution(ctx)
	if err != nil {
		return err
	}

	var data attainment.UpdateContribution
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateContribution")
	}
	if err = data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	if c, err = api.svc.UpdateContribution(ctx.Request().Context(), c, data); err != nil {
		return errors.Wrap(err, "updating contribution")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *authorApi) destroyContribution(ctx echo.Context) error {
	c, err := api.contribution(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteContributions(ctx.Request().Context(), c.ID); err != nil {
		return errors.Wrap(err, "deleting contribution")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authorApi) destroyContributions(ctx echo.Context) error {
	ids, err := bindIDs(ctx)
	if err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if err = api.svc.DeleteContributions(ctx.Request().Context(), ids...); err != nil {
		return errors.Wrap(err, "deleting contributions")
	}
	return ctx.NoContent(http.StatusNoContent)
}
