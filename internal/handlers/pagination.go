package handlers

import (
	"math"

	"github.com/saeid-a/TutorAppBack/internal/models"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 50
	// maxPage keeps (page-1)*limit from overflowing into a negative offset.
	maxPage = math.MaxInt32 / maxPageLimit
)

func pageOffset(page, limit int) int {
	return (page - 1) * limit
}

func buildPaginationMeta(page, limit, total int) models.PaginationMeta {
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return models.PaginationMeta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
