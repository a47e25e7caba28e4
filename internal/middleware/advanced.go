package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bootcamp-directory/internal/query"
)

const ctxQuery = "query"

// AdvancedQuery translates the query string of a list request against
// schema and stores the result for the handler (see QueryFrom).
func AdvancedQuery(schema query.Schema) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(ctxQuery, query.Translate(c.QueryParams(), schema))
			return next(c)
		}
	}
}

// QueryFrom returns the query stored by AdvancedQuery.  Without it the
// query string is translated on the spot.
func QueryFrom(c echo.Context, schema query.Schema) query.Query {
	if q, ok := c.Get(ctxQuery).(query.Query); ok {
		return q
	}
	return query.Translate(c.QueryParams(), schema)
}
