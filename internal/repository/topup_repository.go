package repository

import (
	"errors"
	"strings"

	"github.com/nairamart-next/internal/models"

	"gorm.io/gorm"
)

// TopupRepository 充值请求数据访问接口
type TopupRepository interface {
	Create(req *models.TopupRequest) error
	Update(req *models.TopupRequest) error
	GetByID(id uint) (*models.TopupRequest, error)
	GetByReference(reference string) (*models.TopupRequest, error)
	List(filter TopupRequestListFilter) ([]models.TopupRequest, int64, error)
	WithTx(tx *gorm.DB) *GormTopupRepository
}

// GormTopupRepository GORM 充值请求仓储实现
type GormTopupRepository struct {
	db *gorm.DB
}

// NewTopupRepository 创建充值请求仓储
func NewTopupRepository(db *gorm.DB) *GormTopupRepository {
	return &GormTopupRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTopupRepository) WithTx(tx *gorm.DB) *GormTopupRepository {
	if tx == nil {
		return r
	}
	return &GormTopupRepository{db: tx}
}

// Create 创建充值请求
func (r *GormTopupRepository) Create(req *models.TopupRequest) error {
	return r.db.Create(req).Error
}

// Update 更新充值请求
func (r *GormTopupRepository) Update(req *models.TopupRequest) error {
	return r.db.Save(req).Error
}

// GetByID 按ID获取充值请求
func (r *GormTopupRepository) GetByID(id uint) (*models.TopupRequest, error) {
	if id == 0 {
		return nil, nil
	}
	var req models.TopupRequest
	if err := r.db.First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// GetByReference 按扣款参考号获取充值请求
func (r *GormTopupRepository) GetByReference(reference string) (*models.TopupRequest, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}
	var req models.TopupRequest
	if err := r.db.Where("reference = ?", reference).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// List 分页查询充值请求
func (r *GormTopupRepository) List(filter TopupRequestListFilter) ([]models.TopupRequest, int64, error) {
	query := r.db.Model(&models.TopupRequest{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
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

	var reqs []models.TopupRequest
	if err := query.Order("id desc").Find(&reqs).Error; err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}
