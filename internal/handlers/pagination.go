package handlers

import (
	"math"
	"strconv"

	"linkly/internal/apperr"
	"linkly/internal/services"
)

func parsePaginationParams(pageStr, limitStr string) (int64, int64, error) {
	page := int64(1)
	limit := int64(services.DefaultPageLimit)

	if pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return 0, 0, apperr.BadRequest("page must be a positive integer", apperr.CodeValidation)
		}
		page = p
	}

	if limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 || l > services.MaxPageLimit {
			return 0, 0, apperr.BadRequest("limit must be between 1 and 100", apperr.CodeValidation)
		}
		limit = l
	}

	// page-1 items of size limit must be skippable without overflowing.
	if page-1 > math.MaxInt64/limit {
		return 0, 0, apperr.BadRequest("page is out of range", apperr.CodeValidation)
	}

	return page, limit, nil
}
