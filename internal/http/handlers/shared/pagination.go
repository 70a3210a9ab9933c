package shared

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// NormalizePagination 收拢分页入参，页大小限定在 (0, 100]
func NormalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
