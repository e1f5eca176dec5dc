package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"voltage-backend/internal/authorization"
)

const (
	MinBatteryLevel = 0
	MaxBatteryLevel = 100
)

type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	PhoneNumber string                 `gorm:"size:11;uniqueIndex;not null" json:"phone_number"`
	ParentPhone string                 `gorm:"size:11" json:"parent_phone,omitempty"`
	Password    string                 `gorm:"not null" json:"-"`
	FirstName   string                 `gorm:"not null" json:"first_name"`
	LastName    string                 `json:"last_name"`
	Role        authorization.UserRole `gorm:"type:varchar(16);default:'student'" json:"role"`
	Grade       int                    `json:"grade,omitempty"`
	Governorate string                 `gorm:"size:20" json:"governorate,omitempty"`

	BatteryLevel int `gorm:"not null;default:0" json:"battery_level"`
}

func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.PhoneNumber
	}
	return name
}

// ClampBattery bounds a battery level to the allowed range.
func ClampBattery(level int) int {
	if level > MaxBatteryLevel {
		return MaxBatteryLevel
	}
	if level < MinBatteryLevel {
		return MinBatteryLevel
	}
	return level
}

type Chapter struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	Grade       int    `gorm:"not null;index" json:"grade"`
	Order       int    `gorm:"not null;default:0" json:"order"`
	IsActive    bool   `gorm:"not null;default:true" json:"is_active"`

	LecturesCount int64 `gorm:"-" json:"lectures_count"`
}

type Lecture struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ChapterID   uint    `gorm:"not null;index" json:"chapter_id"`
	Chapter     Chapter `gorm:"constraint:OnDelete:CASCADE;" json:"chapter,omitempty"`
	Title       string  `gorm:"not null" json:"title"`
	Description string  `json:"description"`
	VideoURL    string  `gorm:"not null" json:"video_url"`
	// Duration is expressed in whole minutes and stays 0 until enrichment succeeds.
	Duration   int    `gorm:"not null;default:0" json:"duration"`
	PDFFile    string `json:"pdf_file,omitempty"`
	PriceCents int64  `gorm:"not null;default:0" json:"price_cents"`
	IsFree     bool   `gorm:"not null;default:false" json:"is_free"`
	Order      int    `gorm:"not null;default:0" json:"order"`
	IsActive   bool   `gorm:"not null;default:true" json:"is_active"`
}

// FormatAmount renders minor units as a fixed two decimal string.
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
