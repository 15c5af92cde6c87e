package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/acanas/swad-core-sub004/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}

// paramInt64 reads a positive id from the path. Anything else cannot name an object.
func paramInt64(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// queryInt64 reads an optional id from the query string; 0 when absent.
func queryInt64(ctx echo.Context, name string) (int64, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil || id < 0 {
		return 0, core.NewFieldValidationError(name, "must be a positive integer")
	}
	return id, nil
}

// queryInt64List reads every value of a repeated query parameter.
func queryInt64List(ctx echo.Context, name string) ([]int64, error) {
	vals := ctx.QueryParams()[name]
	if len(vals) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(vals))
	for _, val := range vals {
		for _, s := range strings.Split(val, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				return nil, core.NewFieldValidationError(name, "must be a list of integers")
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// bind decodes the request into data and validates it.
func (s *Server) bind(ctx echo.Context, data interface{}) error {
	if err := ctx.Bind(data); err != nil {
		return errors.Wrapf(err, "binding to %T", data)
	}
	return s.validate.Struct(data)
}
