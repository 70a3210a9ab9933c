package repository

import "gorm.io/gorm"

// applyPagination 统一的 LIMIT/OFFSET 拼装，page 从 1 起算，
// pageSize 不合法时不加分页
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
