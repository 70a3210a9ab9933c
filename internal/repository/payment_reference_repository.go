package repository

import (
	"errors"
	"strings"

	"github.com/nairamart-next/internal/models"

	"gorm.io/gorm"
)

// PaymentReferenceRepository 入账参考号数据访问接口
type PaymentReferenceRepository interface {
	Create(ref *models.PaymentReference) error
	GetByReference(reference string) (*models.PaymentReference, error)
	List(filter PaymentReferenceListFilter) ([]models.PaymentReference, int64, error)
	WithTx(tx *gorm.DB) *GormPaymentReferenceRepository
}

// GormPaymentReferenceRepository GORM 入账参考号仓储实现
type GormPaymentReferenceRepository struct {
	db *gorm.DB
}

// NewPaymentReferenceRepository 创建入账参考号仓储
func NewPaymentReferenceRepository(db *gorm.DB) *GormPaymentReferenceRepository {
	return &GormPaymentReferenceRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentReferenceRepository) WithTx(tx *gorm.DB) *GormPaymentReferenceRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentReferenceRepository{db: tx}
}

// Create 写入参考号记录。
// reference 列带唯一索引，冲突时返回的错误可用 IsDuplicateKeyError 判定。
func (r *GormPaymentReferenceRepository) Create(ref *models.PaymentReference) error {
	return r.db.Create(ref).Error
}

// GetByReference 按参考号查询
func (r *GormPaymentReferenceRepository) GetByReference(reference string) (*models.PaymentReference, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}
	var ref models.PaymentReference
	if err := r.db.Where("reference = ?", reference).First(&ref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ref, nil
}

// List 分页查询入账记录
func (r *GormPaymentReferenceRepository) List(filter PaymentReferenceListFilter) ([]models.PaymentReference, int64, error) {
	query := r.db.Model(&models.PaymentReference{})
	if filter.Reference != "" {
		like := "%" + filter.Reference + "%"
		query = query.Where("reference "+likeOperatorByDialect(dbDialectName(r.db))+" ?", like)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var refs []models.PaymentReference
	if err := query.Order("id desc").Find(&refs).Error; err != nil {
		return nil, 0, err
	}
	return refs, total, nil
}
