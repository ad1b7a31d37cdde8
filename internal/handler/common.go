// Package handler contains the Echo HTTP handlers.  Each handler struct
// bundles the repositories it needs; requests bind into small anonymous
// or file-local DTO structs and responses go out as echo.Map or typed
// structs with JSON tags.
package handler

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// dbTimeout bounds every database call made from a handler.
const dbTimeout = 5 * time.Second

// getUserID extracts the authenticated user ID stored by the JWT middleware.
// JWT numeric claims decode as float64; string subjects are parsed as a
// fallback.
func getUserID(c echo.Context) (uint64, bool) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), true
	case uint64:
		return v, true
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// getUserName returns the display name claim, empty when absent.
func getUserName(c echo.Context) string {
	if s, ok := c.Get("user_name").(string); ok {
		return s
	}
	return ""
}

// parseID parses a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// queryID parses an optional numeric query parameter, returning 0 when absent.
func queryID(c echo.Context, name string) uint64 {
	id, err := strconv.ParseUint(c.QueryParam(name), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// ageOn returns the full years between birth and a reference date.
func ageOn(birth, on time.Time) int {
	years := on.Year() - birth.Year()
	anniversary := birth.AddDate(years, 0, 0)
	if anniversary.After(on) {
		years--
	}
	return years
}
