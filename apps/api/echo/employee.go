package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dorobek/core/employee"
	"github.com/trezcool/dorobek/core/unit"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type (
	dictionaryApi struct {
		kind     employee.Kind
		svc      employee.Service
		validate *validator.Validate
	}

	employeeApi struct {
		svc      employee.Service
		unitSvc  unit.Service
		validate *validator.Validate
	}

	// EmployeeResponse is an employee along with its employment.
	EmployeeResponse struct {
		employee.Employee
		Employment *employee.Employment `json:"employment"` // nil once deleted, until the employee is updated
	}
)

func registerEmployeeAPI(
	g *echo.Group,
	jwt, active echo.MiddlewareFunc,
	svc employee.Service,
	unitSvc unit.Service,
	validate *validator.Validate,
) {
	eg := g.Group("/employees", jwt, active)
	staff := staffMiddleware()

	dg := eg.Group("/dictionaries")
	for _, kind := range employee.Kinds {
		api := &dictionaryApi{kind: kind, svc: svc, validate: validate}

		kg := dg.Group("/" + kind.Plural())
		kg.GET("", api.query)
		kg.POST("", api.create, staff)
		kg.DELETE("", api.destroyMultiple, staff)
		kg.GET("/:id", api.retrieve)
		kg.PUT("/:id", api.update, staff)
		kg.DELETE("/:id", api.destroy, staff)
	}

	api := &employeeApi{svc: svc, unitSvc: unitSvc, validate: validate}

	pg := eg.Group("/positions")
	pg.GET("", api.queryPositions)
	pg.POST("", api.createPosition, staff)
	pg.DELETE("", api.destroyPositions, staff)
	pg.GET("/:id", api.retrievePosition)
	pg.PUT("/:id", api.updatePosition, staff)
	pg.DELETE("/:id", api.destroyPosition, staff)

	mg := eg.Group("/employments")
	mg.GET("", api.queryEmployments)
	mg.DELETE("", api.destroyEmployments, staff)
	mg.GET("/:id", api.retrieveEmployment)
	mg.PUT("/:id", api.updateEmployment, staff)
	mg.DELETE("/:id", api.destroyEmployment, staff)

	eg.GET("", api.query)
	eg.GET("/export", api.export)
	eg.POST("", api.create, staff)
	eg.DELETE("", api.destroyMultiple, staff)
	eg.GET("/:id", api.retrieve)
	eg.PUT("/:id", api.update, staff)
	eg.DELETE("/:id", api.destroy, staff)
}

// Dictionaries

func (api *dictionaryApi) object(ctx echo.Context) (employee.Named, error) {
	id, err := idParam(ctx)
	if err != nil {
		return employee.Named{}, err
	}
	return api.svc.GetNamed(ctx.Request().Context(), api.kind, id)
}

func (api *dictionaryApi) create(ctx echo.Context) error {
	var data employee.NewNamed
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNamed")
	}
	if err := data.Validate(ctx.Request().Context(), api.kind, api.validate, api.svc); err != nil {
		return err
	}

	n, err := api.svc.CreateNamed(ctx.Request().Context(), api.kind, data)
	if err != nil {
		return errors.Wrapf(err, "creating %s", api.kind)
	}
	return created(ctx, n.ID, n)
}

func (api *dictionaryApi) query(ctx echo.Context) error {
	filter := new(employee.NamedFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []employee.Named{})
	}
	filter.Clean()

	entries, err := api.svc.QueryNamed(ctx.Request().Context(), api.kind, filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrapf(err, "querying %s", api.kind.Plural())
	}
	if entries == nil {
		entries = []employee.Named{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *dictionaryApi) retrieve(ctx echo.Context) error {
	n, err := api.object(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *dictionaryApi) update(ctx echo.Context) error {
	n, err := api.object(ctx)
	if err != nil {
		return err
	}

	var data employee.UpdateNamed
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateNamed")
	}
	if err = data.Validate(ctx.Request().Context(), n, api.validate, api.svc); err != nil {
		return err
	}

	if n, err = api.svc.UpdateNamed(ctx.Request().Context(), n, data); err != nil {
		return errors.Wrapf(err, "updating %s", api.kind)
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *dictionaryApi) destroy(ctx echo.Context) error {
	n, err := api.object(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteNamed(ctx.Request().Context(), api.kind, n.ID); err != nil {
		return errors.Wrapf(err, "deleting %s", api.kind)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *dictionaryApi) destroyMultiple(ctx echo.Context) error {
	ids, err := bindIDs(ctx)
	if err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if err = api.svc.DeleteNamed(ctx.Request().Context(), api.kind, ids...); err != nil {
		return errors.Wrapf(err, "deleting %s", api.kind.Plural())
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Positions

func (api *employeeApi) position(ctx echo.Context) (employee.Position, error) {
	id, err := idParam(ctx)
	if err != nil {
		return employee.Position{}, err
	}
	return api.svc.GetPosition(ctx.Request().Context(), id)
}

func (api *employeeApi) createPosition(ctx echo.Context) error {
	var data employee.NewPosition
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPosition")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	p, err := api.svc.CreatePosition(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating position")
	}
	return created(ctx, p.ID, p)
}

func (api *employeeApi) queryPositions(ctx echo.Context) error {
	filter := new(employee.NamedFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []employee.Position{})
	}
	filter.Clean()

	positions, err := api.svc.QueryPositions(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying positions")
	}
	if positions == nil {
		positions = []employee.Position{}
	}
	return ctx.JSON(http.StatusOK, positions)
}

func (api *employeeApi) retrievePosition(ctx echo.Context) error {
	p, err := api.position(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *employeeApi) updatePosition(ctx echo.Context) error {
	p, err := api.position(ctx)
	if err != nil {
		return err
	}

	var data employee.UpdatePosition
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePosition")
	}
	if err = data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	if p, err = api.svc.UpdatePosition(ctx.Request().Context(), p, data); err != nil {
		return errors.Wrap(err, "updating position")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *employeeApi) destroyPosition(ctx echo.Context) error {
	p, err := api.position(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeletePositions(ctx.Request().Context(), p.ID); err != nil {
		return errors.Wrap(err, "deleting position")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *employeeApi) destroyPositions(ctx echo.Context) error {
	ids, err := bindIDs(ctx)
	if err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if err = api.svc.DeletePositions(ctx.Request().Context(), ids...); err != nil {
		return errors.Wrap(err, "deleting positions")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Employees

func (api *employeeApi) object(ctx echo.Context) (employee.Employee, error) {
	id, err := idParam(ctx)
	if err != nil {
		return employee.Employee{}, err
	}
	return api.svc.GetByID(ctx.Request().Context(), id)
}

func (api *employeeApi) response(ctx echo.Context, code int, e employee.Employee) error {
	resp := EmployeeResponse{Employee: e}
	em, err := api.svc.GetEmploymentByEmployee(ctx.Request().Context(), e.ID)
	switch errors.Cause(err) {
	case nil:
		resp.Employment = &em
	case employee.ErrEmploymentNotFound:
	default:
		return errors.Wrap(err, "finding employment")
	}
	return ctx.JSON(code, resp)
}

func (api *employeeApi) create(ctx echo.Context) error {
	var data employee.NewEmployee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEmployee")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	e, em, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating employee")
	}
	return created(ctx, e.ID, EmployeeResponse{Employee: e, Employment: &em})
}

func (api *employeeApi) query(ctx echo.Context) error {
	filter := new(employee.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []employee.EmployeeRow{})
	}
	filter.Clean()

	rows, err := api.svc.Query(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying employees")
	}
	if rows == nil {
		rows = []employee.EmployeeRow{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

// export sends the (filtered & ordered) employees listing as a workbook.
func (api *employeeApi) export(ctx echo.Context) error {
	filter := new(employee.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	var buf bytes.Buffer
	if _, err := api.svc.Export(ctx.Request().Context(), filter, bindOrdering(ctx), &buf); err != nil {
		return errors.Wrap(err, "exporting employees")
	}

	filename := fmt.Sprintf("employees_%s.xlsx", time.Now().Format("2006-01-02"))
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}

func (api *employeeApi) retrieve(ctx echo.Context) error {
	e, err := api.object(ctx)
	if err != nil {
		return err
	}
	return api.response(ctx, http.StatusOK, e)
}

func (api *employeeApi) update(ctx echo.Context) error {
	e, err := api.object(ctx)
	if err != nil {
		return err
	}

	var data employee.UpdateEmployee
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEmployee")
	}
	if err = data.Validate(ctx.Request().Context(), e, api.validate, api.svc); err != nil {
		return err
	}

	if e, err = api.svc.Update(ctx.Request().Context(), e, data); err != nil {
		return errors.Wrap(err, "updating employee")
	}
	return api.response(ctx, http.StatusOK, e)
}

func (api *employeeApi) destroy(ctx echo.Context) error {
	e, err := api.object(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), e.ID); err != nil {
		return errors.Wrap(err, "deleting employee")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *employeeApi) destroyMultiple(ctx echo.Context) error {
	ids, err := bindIDs(ctx)
	if err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if err = api.svc.Delete(ctx.Request().Context(), ids...); err != nil {
		return errors.Wrap(err, "deleting employees")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Employments

func (api *employeeApi) employment(ctx echo.Context) (employee.Employment, error) {
	id, err := idParam(ctx)
	if err != nil {
		return employee.Employment{}, err
	}
	return api.svc.GetEmployment(ctx.Request().Context(), id)
}

func (api *employeeApi) queryEmployments(ctx echo.Context) error {
	filter := new(employee.EmploymentFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []employee.EmploymentRow{})
	}
	filter.Clean()

	rows, err := api.svc.QueryEmployments(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying employments")
	}
	if rows == nil {
		rows = []employee.EmploymentRow{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *employeeApi) retrieveEmployment(ctx echo.Context) error {
	em, err := api.employment(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, em)
}

func (api *employeeApi) updateEmployment(ctx echo.Context) error {
	em, err := api.employment(ctx)
	if err != nil {
		return err
	}

	var data employee.UpdateEmployment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEmployment")
	}
	if err = data.Validate(ctx.Request().Context(), em, api.svc, api.unitSvc); err != nil {
		return err
	}

	if em, err = api.svc.UpdateEmployment(ctx.Request().Context(), em, data); err != nil {
		return errors.Wrap(err, "updating employment")
	}
	return ctx.JSON(http.StatusOK, em)
}

func (api *employeeApi) destroyEmployment(ctx echo.Context) error {
	em, err := api.employment(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteEmployments(ctx.Request().Context(), em.ID); err != nil {
		return errors.Wrap(err, "deleting employment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *employeeApi) destroyEmployments(ctx echo.Context) error {
	ids, err := bindIDs(ctx)
	if err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if err = api.svc.DeleteEmployments(ctx.Request().Context(), ids...); err != nil {
		return errors.Wrap(err, "deleting employments")
	}
	return ctx.NoContent(http.StatusNoContent)
}
