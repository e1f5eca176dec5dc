package repository

import (
	"gorm.io/gorm"

	"voltage-backend/internal/models"
)

type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByPhone(phone string) (*models.User, error)
	ExistsByPhone(phone string) (bool, error)
	// AdjustBattery adds delta to the stored level, clamped to [0, 100], and
	// returns the resulting level.
	AdjustBattery(id uint, delta int) (int, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	return &user, err
}

func (r *userRepository) GetByPhone(phone string) (*models.User, error) {
	var user models.User
	err := r.db.Where("phone_number = ?", phone).First(&user).Error
	return &user, err
}

func (r *userRepository) ExistsByPhone(phone string) (bool, error) {
	var count int64
	err := r.db.Unscoped().Model(&models.User{}).Where("phone_number = ?", phone).Count(&count).Error
	return count > 0, err
}

func (r *userRepository) AdjustBattery(id uint, delta int) (int, error) {
	expr := gorm.Expr(
		"CASE WHEN battery_level + ? > ? THEN ? WHEN battery_level + ? < ? THEN ? ELSE battery_level + ? END",
		delta, models.MaxBatteryLevel, models.MaxBatteryLevel,
		delta, models.MinBatteryLevel, models.MinBatteryLevel,
		delta,
	)

	result := r.db.Model(&models.User{}).Where("id = ?", id).UpdateColumn("battery_level", expr)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var level int
	if err := r.db.Model(&models.User{}).Where("id = ?", id).Pluck("battery_level", &level).Error; err != nil {
		return 0, err
	}
	return level, nil
}
