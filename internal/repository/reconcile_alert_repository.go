package repository

import (
	"errors"

	"github.com/nairamart-next/internal/models"

	"gorm.io/gorm"
)

// ReconcileAlertRepository 对账告警数据访问接口
type ReconcileAlertRepository interface {
	Create(alert *models.ReconcileAlert) error
	Update(alert *models.ReconcileAlert) error
	GetByID(id uint) (*models.ReconcileAlert, error)
	List(filter ReconcileAlertListFilter) ([]models.ReconcileAlert, int64, error)
	WithTx(tx *gorm.DB) *GormReconcileAlertRepository
}

// GormReconcileAlertRepository GORM 对账告警仓储实现
type GormReconcileAlertRepository struct {
	db *gorm.DB
}

// NewReconcileAlertRepository 创建对账告警仓储
func NewReconcileAlertRepository(db *gorm.DB) *GormReconcileAlertRepository {
	return &GormReconcileAlertRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReconcileAlertRepository) WithTx(tx *gorm.DB) *GormReconcileAlertRepository {
	if tx == nil {
		return r
	}
	return &GormReconcileAlertRepository{db: tx}
}

// Create 创建对账告警
func (r *GormReconcileAlertRepository) Create(alert *models.ReconcileAlert) error {
	return r.db.Create(alert).Error
}

// Update 更新对账告警
func (r *GormReconcileAlertRepository) Update(alert *models.ReconcileAlert) error {
	return r.db.Save(alert).Error
}

// GetByID 按ID获取对账告警
func (r *GormReconcileAlertRepository) GetByID(id uint) (*models.ReconcileAlert, error) {
	if id == 0 {
		return nil, nil
	}
	var alert models.ReconcileAlert
	if err := r.db.First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &alert, nil
}

// List 分页查询对账告警
func (r *GormReconcileAlertRepository) List(filter ReconcileAlertListFilter) ([]models.ReconcileAlert, int64, error) {
	query := r.db.Model(&models.ReconcileAlert{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Reference != "" {
		query = query.Where("reference = ?", filter.Reference)
	}
	if filter.Email != "" {
		query = query.Where("email = ?", filter.Email)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var alerts []models.ReconcileAlert
	if err := query.Order("id desc").Find(&alerts).Error; err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}
