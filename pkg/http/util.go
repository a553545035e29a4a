package http

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// QueryList returns a query parameter given either repeated or comma separated.
func QueryList(c echo.Context, name string) []string {
	var out []string
	for _, raw := range c.QueryParams()[name] {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
