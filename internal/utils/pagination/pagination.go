package pagination

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Pagination struct {
	Page  int
	Limit int
}

// ParseFromRequest reads page and limit from the query string. Bad or
// missing values fall back to page 1 and DefaultLimit; limit is capped at
// MaxLimit.
func ParseFromRequest(c *fiber.Ctx) Pagination {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(DefaultLimit)))
	if err != nil || limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Pagination{Page: page, Limit: limit}
}

// DaysFromRequest reads the days query parameter, falling back to def.
func DaysFromRequest(c *fiber.Ctx, def int) int {
	days, err := strconv.Atoi(c.Query("days"))
	if err != nil || days < 1 {
		return def
	}
	return days
}
