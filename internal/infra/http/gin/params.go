package ginserver

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"stayhub/internal/domain/shared/daterange"
)

func parseID(c *gin.Context, name string) (int64, error) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, name)
	}
	return id, nil
}

// parseDate accepts RFC3339 timestamps and plain calendar dates, read as UTC midnight.
func parseDate(name, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", errBadRequest, name)
	}
	t, err := daterange.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC3339 or YYYY-MM-DD", errBadRequest, name)
	}
	return t, nil
}

func parseOptionalID(name, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, name)
	}
	return id, nil
}
