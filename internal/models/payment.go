package models

import (
	"strings"
	"time"

	"voltage-backend/pkg/utils"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
	PaymentStatusExpired PaymentStatus = "expired"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusExpired:
		return true
	default:
		return false
	}
}

type PaymentMethod string

const (
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodFawry  PaymentMethod = "fawry"
	PaymentMethodCode   PaymentMethod = "code"
)

type WalletType string

const (
	WalletEtisalat WalletType = "etisalat"
	WalletVodafone WalletType = "vodafone"
	WalletOrange   WalletType = "orange"
	WalletWe       WalletType = "we"
)

func (w WalletType) IsValid() bool {
	switch w {
	case WalletEtisalat, WalletVodafone, WalletOrange, WalletWe:
		return true
	default:
		return false
	}
}

// PaymentOrder tracks a manual wallet transfer for one lecture. At most one
// pending order exists per (student, lecture); see database.Migrate.
type PaymentOrder struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ReferenceCode string `gorm:"size:10;uniqueIndex;not null" json:"reference_code"`

	StudentID uint    `gorm:"not null;index" json:"student_id"`
	Student   User    `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	LectureID uint    `gorm:"not null;index" json:"lecture_id"`
	Lecture   Lecture `gorm:"constraint:OnDelete:CASCADE;" json:"lecture,omitempty"`

	AmountCents   int64         `gorm:"not null" json:"amount_cents"`
	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null;default:'wallet'" json:"payment_method"`
	Status        PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	StudentPhone  string        `gorm:"size:15" json:"student_phone"`
	AdminNotes    string        `gorm:"type:text" json:"-"`

	PaidAt *time.Time `json:"paid_at,omitempty"`
}

type WalletConfig struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	WalletType   WalletType `gorm:"type:varchar(20);not null;default:'etisalat'" json:"wallet_type"`
	WalletNumber string     `gorm:"size:15;not null" json:"wallet_number"`
	WalletName   string     `gorm:"size:100;not null" json:"wallet_name"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
}

// ActivationCode is a single-use voucher that enrolls its redeemer in a lecture.
type ActivationCode struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Code      string  `gorm:"size:12;uniqueIndex;not null" json:"code"`
	LectureID uint    `gorm:"not null;index" json:"lecture_id"`
	Lecture   Lecture `gorm:"constraint:OnDelete:CASCADE;" json:"lecture,omitempty"`

	IsUsed   bool       `gorm:"not null;default:false" json:"is_used"`
	UsedByID *uint      `json:"used_by_id,omitempty"`
	UsedAt   *time.Time `json:"used_at,omitempty"`
}

// NormalizeActivationCode strips separators and whitespace and upper-cases the code.
func NormalizeActivationCode(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(utils.NormalizeDigits(raw)) {
		switch {
		case r == '-' || r == '_' || r == ' ' || r == '\t' || r == '\n' || r == '\r':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

type Checkout struct {
	Order    PaymentOrder  `json:"order"`
	Amount   string        `json:"amount"`
	Currency string        `json:"currency"`
	Wallet   *WalletConfig `json:"wallet,omitempty"`
}
