package utils

const pageSizeDefault = 20
const pageSizeMax = 100

// Page returns the sub-slice of items selected by offset and limit. Nil or
// out-of-range values fall back to defaults; the limit is capped. The result
// shares backing storage with items.
func Page[T any](items []T, offset, limit *int) []T {
	start := 0
	size := pageSizeDefault

	if offset != nil && *offset >= 0 {
		start = *offset
	}
	if limit != nil && *limit > 0 {
		size = min(*limit, pageSizeMax)
	}

	if start >= len(items) {
		return items[:0]
	}
	return items[start:min(start+size, len(items))]
}
