package util

import "math"

const (
	DefaultPerPage = 6
	MaxPerPage     = 100
	// MaxPage keeps (page-1)*perPage inside a 32-bit offset.
	MaxPage = math.MaxInt32 / MaxPerPage
)

// Normalize clamps paging input to sane values.
func Normalize(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if perPage <= 0 || perPage > MaxPerPage {
		perPage = DefaultPerPage
	}
	return page, perPage
}

func Calculate(page, perPage int) (offset, limit int) {
	page, perPage = Normalize(page, perPage)
	return (page - 1) * perPage, perPage
}
