package httpserver

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/domain"
)

// parseID reads the :id path segment.
func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, &domain.ValidationError{Fields: []domain.FieldError{{
			Type:     "field",
			Msg:      "Invalid url param.",
			Path:     "id",
			Location: "params",
		}}}
	}
	return uint(id), nil
}

// queryInt returns 0 for a missing or malformed value so paging falls back
// to its defaults.
func queryInt(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return v
}
