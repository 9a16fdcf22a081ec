package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/coverage-service/internal/auth"
	"github.com/spec-kit/coverage-service/internal/domain"
	apperrors "github.com/spec-kit/coverage-service/pkg/util/errorutil"
)

func currentIdentity(c *fiber.Ctx) (domain.Identity, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok || identity == nil || identity.UserID == "" {
		return domain.Identity{}, apperrors.NewUnauthorized("authentication required")
	}
	return *identity, nil
}

func parseTime(val string) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

const (
	maxPageSize = 100
	maxPage     = 10000
)

// pagination reads page and page_size, clamping both so the derived offset
// stays small.
func pagination(c *fiber.Ctx, defaultSize int) (limit, offset int) {
	page := parseInt(c.Query("page"), 1)
	if page > maxPage {
		page = maxPage
	}
	size := parseInt(c.Query("page_size"), defaultSize)
	if size > maxPageSize {
		size = maxPageSize
	}
	return size, (page - 1) * size
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}
