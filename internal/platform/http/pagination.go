package http

// ClampLimit enforces the [min, max] bound on a caller-supplied limit,
// falling back to def when the caller omitted one (limit <= 0).
func ClampLimit(limit, def, min, max int) int {
	if limit <= 0 {
		limit = def
	}
	if limit < min {
		limit = min
	}
	if limit > max {
		limit = max
	}
	return limit
}
