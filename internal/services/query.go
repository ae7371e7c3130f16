package services

import "github.com/shopspring/decimal"

const maxPageSize = 500

var hundred = decimal.NewFromInt(100)

// normalizePage clamps paging input to page >= 1 and 1 <= limit <= maxPageSize.
func normalizePage(page, limit, fallback int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = fallback
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// percent is part/whole*100 rounded to two places, or 0 for an empty whole.
func percent(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromInt(part).Mul(hundred).Div(decimal.NewFromInt(whole)).Round(2).InexactFloat64()
}
