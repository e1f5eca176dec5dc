package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"gorm.io/gorm"

	"voltage-backend/internal/metrics"
	"voltage-backend/internal/models"
	"voltage-backend/internal/repository"
	"voltage-backend/pkg/logger"
	"voltage-backend/pkg/utils"
	"voltage-backend/pkg/validator"
)

const (
	maxReferenceAttempts = 100
	staleOrderBatchSize  = 500
	adminOrderListLimit  = 500
)

// PaymentConfig holds the checkout settings of the payment service.
type PaymentConfig struct {
	Currency        string
	OrderTTL        time.Duration
	ReferenceDigits int
}

// PaymentService reconciles manual wallet payments into enrollments.
type PaymentService struct {
	store        repository.Store
	config       PaymentConfig
	now          func() time.Time
	newReference func() (string, error)
}

func NewPaymentService(store repository.Store, cfg PaymentConfig) *PaymentService {
	if cfg.ReferenceDigits <= 0 {
		cfg.ReferenceDigits = 6
	}
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if cfg.Currency == "" {
		cfg.Currency = "EGP"
	}

	service := &PaymentService{
		store:  store,
		config: cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
	service.newReference = func() (string, error) {
		return randomDigits(service.config.ReferenceDigits)
	}
	return service
}

func (s *PaymentService) ensureStore() error {
	if s == nil || s.store == nil {
		return errors.New("payment repository is not configured")
	}
	return nil
}

// CreateOrder returns the pending order of the student for the lecture,
// creating it when none exists.
func (s *PaymentService) CreateOrder(ctx context.Context, studentID, lectureID uint) (*models.Checkout, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}

	repos := s.store.Repositories(ctx)
	lecture, err := repos.Lectures.GetByID(lectureID)
	if err != nil {
		return nil, notFound(err)
	}
	if !lecture.IsActive {
		return nil, ErrNotFound
	}
	if lecture.IsFree {
		return nil, ErrLectureIsFree
	}

	if _, err := repos.Enrollments.Get(studentID, lecture.ID); err == nil {
		return nil, ErrAlreadyEnrolled
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	student, err := repos.Users.GetByID(studentID)
	if err != nil {
		return nil, notFound(err)
	}

	order, err := s.pendingOrCreate(repos, student, lecture)
	if err != nil {
		return nil, err
	}
	order.Lecture = *lecture

	return s.checkout(repos, order)
}

func (s *PaymentService) pendingOrCreate(repos repository.Repositories, student *models.User, lecture *models.Lecture) (*models.PaymentOrder, error) {
	existing, err := repos.Orders.FindPending(student.ID, lecture.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		reference, err := s.newReference()
		if err != nil {
			return nil, err
		}

		taken, err := repos.Orders.ReferenceExists(reference)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}

		order := &models.PaymentOrder{
			ReferenceCode: reference,
			StudentID:     student.ID,
			LectureID:     lecture.ID,
			AmountCents:   lecture.PriceCents,
			PaymentMethod: models.PaymentMethodWallet,
			Status:        models.PaymentStatusPending,
			StudentPhone:  student.PhoneNumber,
		}

		err = repos.Orders.Create(order)
		if err == nil {
			metrics.ObserveOrderStatus(models.PaymentStatusPending)
			logger.Info("Payment order created", map[string]interface{}{
				"order_id":   order.ID,
				"reference":  order.ReferenceCode,
				"student_id": student.ID,
				"lecture_id": lecture.ID,
			})
			return order, nil
		}
		if !repository.IsDuplicateKeyError(err) {
			return nil, err
		}

		// Either the reference was taken concurrently or another request
		// created the pending order first.
		if existing, findErr := repos.Orders.FindPending(student.ID, lecture.ID); findErr == nil {
			return existing, nil
		}
	}

	return nil, fmt.Errorf("could not allocate a unique reference code after %d attempts", maxReferenceAttempts)
}

func (s *PaymentService) checkout(repos repository.Repositories, order *models.PaymentOrder) (*models.Checkout, error) {
	result := &models.Checkout{
		Order:    *order,
		Amount:   models.FormatAmount(order.AmountCents),
		Currency: s.config.Currency,
	}

	wallet, err := repos.Wallets.GetActive()
	switch {
	case err == nil:
		result.Wallet = wallet
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	return result, nil
}

// Status returns an order by reference when it belongs to the student.
func (s *PaymentService) Status(ctx context.Context, studentID uint, reference string) (*models.PaymentOrder, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}

	order, err := s.store.Repositories(ctx).Orders.GetByReference(utils.NormalizeDigits(strings.TrimSpace(reference)))
	if err != nil {
		return nil, notFound(err)
	}
	if order.StudentID != studentID {
		return nil, ErrNotFound
	}
	return order, nil
}

func (s *PaymentService) ListOrders(ctx context.Context, studentID uint) ([]models.PaymentOrder, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}
	return s.store.Repositories(ctx).Orders.ListByStudent(studentID)
}

func (s *PaymentService) ListByStatus(ctx context.Context, status models.PaymentStatus) ([]models.PaymentOrder, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}
	if status != "" && !status.IsValid() {
		return nil, newValidationError("unknown payment status %q", status)
	}
	return s.store.Repositories(ctx).Orders.ListByStatus(status, adminOrderListLimit)
}

// Confirm marks a pending order as paid and enrolls the student. Confirming a
// paid order again succeeds without side effects beyond ensuring the
// enrollment exists.
func (s *PaymentService) Confirm(ctx context.Context, orderID uint, notes string) (*models.PaymentOrder, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}

	notes = validator.SanitizeString(strings.TrimSpace(notes))
	var (
		confirmed *models.PaymentOrder
		newlyPaid bool
		enrolled  bool
	)

	err := s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		order, err := repos.Orders.GetByID(orderID)
		if err != nil {
			return notFound(err)
		}

		switch order.Status {
		case models.PaymentStatusPaid:
		case models.PaymentStatusPending:
			paidAt := s.now()
			changed, err := repos.Orders.TransitionStatus(order.ID, models.PaymentStatusPending, models.PaymentStatusPaid, &paidAt, notes)
			if err != nil {
				return err
			}
			if !changed {
				order, err = repos.Orders.GetByID(orderID)
				if err != nil {
					return err
				}
				if order.Status != models.PaymentStatusPaid {
					return ErrOrderNotPending
				}
				break
			}
			newlyPaid = true
			order.Status = models.PaymentStatusPaid
			order.PaidAt = &paidAt
			if notes != "" {
				order.AdminNotes = notes
			}
		default:
			return ErrOrderNotPending
		}

		_, created, err := repos.Enrollments.GetOrCreate(order.StudentID, order.LectureID, models.EnrollmentSourcePayment)
		if err != nil {
			return err
		}
		enrolled = created
		confirmed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if newlyPaid {
		metrics.ObserveOrderStatus(models.PaymentStatusPaid)
		logger.Info("Payment order confirmed", map[string]interface{}{
			"order_id":   confirmed.ID,
			"reference":  confirmed.ReferenceCode,
			"student_id": confirmed.StudentID,
			"lecture_id": confirmed.LectureID,
		})
	}
	if enrolled {
		metrics.ObserveEnrollment(models.EnrollmentSourcePayment)
	}

	return confirmed, nil
}

// Expire closes a pending order. Expiring an expired order is a no-op; paid
// and failed orders are rejected.
func (s *PaymentService) Expire(ctx context.Context, orderID uint, notes string) (*models.PaymentOrder, error) {
	return s.closePending(ctx, orderID, models.PaymentStatusExpired, notes)
}

// Fail records that the transfer could not be matched.
func (s *PaymentService) Fail(ctx context.Context, orderID uint, notes string) (*models.PaymentOrder, error) {
	return s.closePending(ctx, orderID, models.PaymentStatusFailed, notes)
}

func (s *PaymentService) closePending(ctx context.Context, orderID uint, target models.PaymentStatus, notes string) (*models.PaymentOrder, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}

	repos := s.store.Repositories(ctx)
	order, err := repos.Orders.GetByID(orderID)
	if err != nil {
		return nil, notFound(err)
	}

	switch order.Status {
	case target:
		return order, nil
	case models.PaymentStatusPending:
	default:
		return nil, ErrOrderNotPending
	}

	notes = validator.SanitizeString(strings.TrimSpace(notes))
	changed, err := repos.Orders.TransitionStatus(order.ID, models.PaymentStatusPending, target, nil, notes)
	if err != nil {
		return nil, err
	}

	order, err = repos.Orders.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if !changed && order.Status != target {
		return nil, ErrOrderNotPending
	}

	if changed {
		metrics.ObserveOrderStatus(target)
		logger.Info("Payment order closed", map[string]interface{}{
			"order_id":  order.ID,
			"reference": order.ReferenceCode,
			"status":    string(target),
		})
	}
	return order, nil
}

// ExpireStale expires pending orders older than the configured TTL and returns
// how many were expired. A zero TTL disables the sweep.
func (s *PaymentService) ExpireStale(ctx context.Context) (int, error) {
	if err := s.ensureStore(); err != nil {
		return 0, err
	}
	if s.config.OrderTTL <= 0 {
		return 0, nil
	}

	repos := s.store.Repositories(ctx)
	orders, err := repos.Orders.ListStalePending(s.now().Add(-s.config.OrderTTL), staleOrderBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, order := range orders {
		changed, err := repos.Orders.TransitionStatus(order.ID, models.PaymentStatusPending, models.PaymentStatusExpired, nil, "")
		if err != nil {
			return expired, err
		}
		if changed {
			expired++
			metrics.ObserveOrderStatus(models.PaymentStatusExpired)
		}
	}

	if expired > 0 {
		logger.Info("Expired stale payment orders", map[string]interface{}{"count": expired})
	}
	return expired, nil
}

// SetWallet replaces the wallet students transfer money to.
func (s *PaymentService) SetWallet(ctx context.Context, req models.SetWalletRequest) (*models.WalletConfig, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}

	walletType := models.WalletType(strings.ToLower(strings.TrimSpace(req.WalletType)))
	if !walletType.IsValid() {
		return nil, newValidationError("unknown wallet type %q", req.WalletType)
	}
	name := validator.SanitizeString(strings.TrimSpace(req.WalletName))
	if name == "" {
		return nil, newValidationError("wallet name is required")
	}

	wallet := &models.WalletConfig{
		WalletType:   walletType,
		WalletNumber: utils.NormalizePhone(req.WalletNumber),
		WalletName:   name,
	}

	err := s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		return repos.Wallets.ReplaceActive(wallet)
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// randomDigits returns a uniformly random decimal string of n digits,
// leading zeros included.
func randomDigits(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		digit, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate reference code: %w", err)
		}
		b.WriteByte(byte('0' + digit.Int64()))
	}
	return b.String(), nil
}
