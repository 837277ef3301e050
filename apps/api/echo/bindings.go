package echoapi

import (
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/dorobek/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindOrdering is a shortcut for the list endpoints.
func bindOrdering(ctx echo.Context) []core.DBOrdering {
	ordering := new(Ordering)
	ordering.Bind(ctx)
	return ordering.Orderings
}

// idParam parses the `:id` path param; anything but a positive integer is not found.
func idParam(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

type DestroyMultipleRequest struct {
	IDs []int `query:"id"`
}

func bindIDs(ctx echo.Context) ([]int, error) {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return nil, err
	}
	return query.IDs, nil
}

// created responds 201 with body, pointing the Location header at the new resource.
func created(ctx echo.Context, id int, body interface{}) error {
	ctx.Response().Header().Set(echo.HeaderLocation, path.Join(ctx.Request().URL.Path, strconv.Itoa(id)))
	return ctx.JSON(http.StatusCreated, body)
}
