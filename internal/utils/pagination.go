package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Pagination is the normalized page window for catalog and order listings.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

// ParsePagination reads the page and limit query params, falling back to
// page 1 with 20 items on anything missing or malformed.
func ParsePagination(c *fiber.Ctx) Pagination {
	page := atoiOr(c.Query("page", "1"), 1)
	limit := atoiOr(c.Query("limit", "20"), 20)
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	return Pagination{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

func atoiOr(value string, fallback int) int {
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	return fallback
}
