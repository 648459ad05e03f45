package utils

import (
	"math"
	"strconv"
)

const MaxPageLimit = 100

// MaxPage membatasi page agar offset tetap muat di int32.
const MaxPage = math.MaxInt32 / MaxPageLimit

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
	TotalItems int64 `json:"totalItems"`
}

// ParsePage membaca query page/limit. Nilai tidak valid memakai default.
func ParsePage(pageRaw, limitRaw string, defaultLimit int) (page, limit int) {
	page, _ = strconv.Atoi(pageRaw)
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	limit, _ = strconv.Atoi(limitRaw)
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Pagination{Page: page, Limit: limit, TotalPages: totalPages, TotalItems: total}
}

func Skip(page, limit int) int64 {
	if page < 1 {
		return 0
	}
	if page > MaxPage {
		page = MaxPage
	}
	return int64(page-1) * int64(limit)
}
