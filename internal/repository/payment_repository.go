package repository

import (
	"time"

	"gorm.io/gorm"

	"voltage-backend/internal/models"
)

type PaymentOrderRepository interface {
	Create(order *models.PaymentOrder) error
	GetByID(id uint) (*models.PaymentOrder, error)
	GetByReference(reference string) (*models.PaymentOrder, error)
	FindPending(studentID, lectureID uint) (*models.PaymentOrder, error)
	ReferenceExists(reference string) (bool, error)
	// TransitionStatus moves the order from one status to another only if it is
	// still in the expected status. It reports whether the row changed.
	TransitionStatus(id uint, from, to models.PaymentStatus, paidAt *time.Time, notes string) (bool, error)
	ListByStudent(studentID uint) ([]models.PaymentOrder, error)
	ListByStatus(status models.PaymentStatus, limit int) ([]models.PaymentOrder, error)
	ListStalePending(before time.Time, limit int) ([]models.PaymentOrder, error)
}

type ActivationCodeRepository interface {
	CreateBatch(codes []models.ActivationCode) error
	GetByCode(code string) (*models.ActivationCode, error)
	Exists(code string) (bool, error)
	// Redeem marks an unused code as used by userID. It reports false when the
	// code does not exist or was already used.
	Redeem(code string, userID uint, at time.Time) (bool, error)
	ListByLecture(lectureID uint) ([]models.ActivationCode, error)
}

type WalletConfigRepository interface {
	GetActive() (*models.WalletConfig, error)
	// ReplaceActive deactivates every wallet and stores config as the active one.
	ReplaceActive(config *models.WalletConfig) error
}

type paymentOrderRepository struct {
	db *gorm.DB
}

func NewPaymentOrderRepository(db *gorm.DB) PaymentOrderRepository {
	return &paymentOrderRepository{db: db}
}

func (r *paymentOrderRepository) Create(order *models.PaymentOrder) error {
	return r.db.Omit("Student", "Lecture").Create(order).Error
}

func (r *paymentOrderRepository) GetByID(id uint) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	err := r.db.Preload("Lecture").First(&order, id).Error
	return &order, err
}

func (r *paymentOrderRepository) GetByReference(reference string) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	err := r.db.Preload("Lecture").Where("reference_code = ?", reference).First(&order).Error
	return &order, err
}

func (r *paymentOrderRepository) FindPending(studentID, lectureID uint) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	err := r.db.
		Preload("Lecture").
		Where("student_id = ? AND lecture_id = ? AND status = ?", studentID, lectureID, models.PaymentStatusPending).
		Order("id DESC").
		First(&order).Error
	return &order, err
}

func (r *paymentOrderRepository) ReferenceExists(reference string) (bool, error) {
	var count int64
	err := r.db.Model(&models.PaymentOrder{}).Where("reference_code = ?", reference).Count(&count).Error
	return count > 0, err
}

func (r *paymentOrderRepository) TransitionStatus(id uint, from, to models.PaymentStatus, paidAt *time.Time, notes string) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}
	if notes != "" {
		updates["admin_notes"] = notes
	}

	result := r.db.Model(&models.PaymentOrder{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *paymentOrderRepository) ListByStudent(studentID uint) ([]models.PaymentOrder, error) {
	var orders []models.PaymentOrder
	err := r.db.
		Preload("Lecture").
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error
	return orders, err
}

func (r *paymentOrderRepository) ListByStatus(status models.PaymentStatus, limit int) ([]models.PaymentOrder, error) {
	query := r.db.Preload("Lecture").Order("created_at ASC").Order("id ASC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var orders []models.PaymentOrder
	err := query.Find(&orders).Error
	return orders, err
}

func (r *paymentOrderRepository) ListStalePending(before time.Time, limit int) ([]models.PaymentOrder, error) {
	query := r.db.
		Where("status = ? AND created_at < ?", models.PaymentStatusPending, before).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var orders []models.PaymentOrder
	err := query.Find(&orders).Error
	return orders, err
}

type activationCodeRepository struct {
	db *gorm.DB
}

func NewActivationCodeRepository(db *gorm.DB) ActivationCodeRepository {
	return &activationCodeRepository{db: db}
}

func (r *activationCodeRepository) CreateBatch(codes []models.ActivationCode) error {
	if len(codes) == 0 {
		return nil
	}
	return r.db.Omit("Lecture").CreateInBatches(codes, 100).Error
}

func (r *activationCodeRepository) GetByCode(code string) (*models.ActivationCode, error) {
	var activation models.ActivationCode
	err := r.db.Preload("Lecture").Where("code = ?", code).First(&activation).Error
	return &activation, err
}

func (r *activationCodeRepository) Exists(code string) (bool, error) {
	var count int64
	err := r.db.Model(&models.ActivationCode{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

func (r *activationCodeRepository) Redeem(code string, userID uint, at time.Time) (bool, error) {
	result := r.db.Model(&models.ActivationCode{}).
		Where("code = ? AND is_used = ?", code, false).
		Updates(map[string]interface{}{
			"is_used":    true,
			"used_by_id": userID,
			"used_at":    at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *activationCodeRepository) ListByLecture(lectureID uint) ([]models.ActivationCode, error) {
	var codes []models.ActivationCode
	err := r.db.Where("lecture_id = ?", lectureID).Order("id ASC").Find(&codes).Error
	return codes, err
}

type walletConfigRepository struct {
	db *gorm.DB
}

func NewWalletConfigRepository(db *gorm.DB) WalletConfigRepository {
	return &walletConfigRepository{db: db}
}

func (r *walletConfigRepository) GetActive() (*models.WalletConfig, error) {
	var config models.WalletConfig
	err := r.db.Where("is_active = ?", true).Order("id DESC").First(&config).Error
	return &config, err
}

func (r *walletConfigRepository) ReplaceActive(config *models.WalletConfig) error {
	if err := r.db.Model(&models.WalletConfig{}).
		Where("is_active = ?", true).
		UpdateColumn("is_active", false).Error; err != nil {
		return err
	}
	config.IsActive = true
	return r.db.Create(config).Error
}
