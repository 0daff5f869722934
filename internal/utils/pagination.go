package utils

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Pagination holds the limit/offset of a list request.
type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination reads `limit` and `offset` from the query string. Missing
// values fall back to defaultLimit and 0; malformed or out of range values
// are errors.
func ParsePagination(c *gin.Context, defaultLimit int) (Pagination, error) {
	p := Pagination{Limit: defaultLimit}

	if raw, ok := c.GetQuery("limit"); ok {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return p, fmt.Errorf("limit must be a positive integer")
		}
		p.Limit = limit
	}
	if raw, ok := c.GetQuery("offset"); ok {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return p, fmt.Errorf("offset must be a non-negative integer")
		}
		p.Offset = offset
	}
	return p, nil
}

// QueryBool reads an optional boolean query parameter.
func QueryBool(c *gin.Context, key string, def bool) (bool, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, fmt.Errorf("%s must be a boolean", key)
	}
	return v, nil
}

// QueryID reads an optional positive integer id from the query string.
func QueryID(c *gin.Context, key string) (*uint, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, nil
	}
	id, err := parseID(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be a positive integer", key)
	}
	return &id, nil
}

// ParamID reads a positive integer id from the named path parameter.
func ParamID(c *gin.Context, key string) (uint, error) {
	id, err := parseID(c.Param(key))
	if err != nil {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return id, nil
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}
