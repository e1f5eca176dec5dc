package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"voltage-backend/internal/models"
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func TestCreateOrderReusesPendingOrder(t *testing.T) {
	store := newTestStore(t)
	student := seedStudent(t, store, "01012121212", 0)
	lecture := seedLecture(t, store, false)
	svc := NewPaymentService(store, PaymentConfig{Currency: "egp"})
	ctx := context.Background()

	first, err := svc.CreateOrder(ctx, student.ID, lecture.ID)
	require.NoError(t, err)
	require.Regexp(t, sixDigits, first.Order.ReferenceCode)
	require.Equal(t, models.PaymentStatusPending, first.Order.Status)
	require.Equal(t, int64(15000), first.Order.AmountCents)
	require.Equal(t, "150.00", first.Amount)
	require.Equal(t, "EGP", first.Currency)
	require.Nil(t, first.Wallet)

	second, err := svc.CreateOrder(ctx, student.ID, lecture.ID)
	require.NoError(t, err)
	require.Equal(t, first.Order.ID, second.Order.ID)
	require.Equal(t, first.Order.ReferenceCode, second.Order.ReferenceCode)
}

func TestCreateOrderRetriesTakenReference(t *testing.T) {
	store := newTestStore(t)
	lecture := seedLecture(t, store, false)
	alice := seedStudent(t, store, "01013131313", 0)
	bob := seedStudent(t, store, "01014141414", 0)
	svc := NewPaymentService(store, PaymentConfig{})
	ctx := context.Background()

	references := []string{"000042", "000042", "000043"}
	svc.newReference = func() (string, error) {
		next := references[0]
		references = references[1:]
		return next, nil
	}

	first, err := svc.CreateOrder(ctx, alice.ID, lecture.ID)
	require.NoError(t, err)
	require.Equal(t, "000042", first.Order.ReferenceCode)

	second, err := svc.CreateOrder(ctx, bob.ID, lecture.ID)
	require.NoError(t, err)
	require.Equal(t, "000043", second.Order.ReferenceCode)
}

func TestCreateOrderRejectsFreeAndOwnedLectures(t *testing.T) {
	store := newTestStore(t)
	student := seedStudent(t, store, "01015151515", 0)
	free := seedLecture(t, store, true)
	paid := seedLecture(t, store, false)
	svc := NewPaymentService(store, PaymentConfig{})
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, student.ID, free.ID)
	require.ErrorIs(t, err, ErrLectureIsFree)

	enroll(t, store, student.ID, paid.ID)
	_, err = svc.CreateOrder(ctx, student.ID, paid.ID)
	require.ErrorIs(t, err, ErrAlreadyEnrolled)

	_, err = svc.CreateOrder(ctx, student.ID, 9999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmEnrollsAndIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	student := seedStudent(t, store, "01016161616", 0)
	lecture := seedLecture(t, store, false)
	svc := NewPaymentService(store, PaymentConfig{})
	now := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	checkout, err := svc.CreateOrder(ctx, student.ID, lecture.ID)
	require.NoError(t, err)

	order, err := svc.Confirm(ctx, checkout.Order.ID, "matched transfer")
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPaid, order.Status)
	require.NotNil(t, order.PaidAt)
	require.Equal(t, "matched transfer", order.AdminNotes)

	enrollment := enroll(t, store, student.ID, lecture.ID)
	require.Equal(t, models.EnrollmentSourcePayment, enrollment.Source)

	now = now.Add(2 * time.Hour)
	again, err := svc.Confirm(ctx, checkout.Order.ID, "")
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPaid, again.Status)
	require.NotNil(t, again.PaidAt)
	require.True(t, again.PaidAt.Equal(*order.PaidAt), "second confirm must keep the first paid_at, got %v", again.PaidAt)

	enrollments, err := store.Repositories(ctx).Enrollments.ListByStudent(student.ID)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)

	_, err = svc.Expire(ctx, checkout.Order.ID, "")
	require.ErrorIs(t, err, ErrOrderNotPending, "paid orders cannot be expired")
	_, err = svc.Fail(ctx, checkout.Order.ID, "")
	require.ErrorIs(t, err, ErrOrderNotPending)
}

func TestExpireIsNoOpWhenAlreadyExpired(t *testing.T) {
	store := newTestStore(t)
	student := seedStudent(t, store, "01017171717", 0)
	lecture := seedLecture(t, store, false)
	svc := NewPaymentService(store, PaymentConfig{})
	ctx := context.Background()

	checkout, err := svc.CreateOrder(ctx, student.ID, lecture.ID)
	require.NoError(t, err)

	order, err := svc.Expire(ctx, checkout.Order.ID, "no transfer")
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusExpired, order.Status)

	order, err = svc.Expire(ctx, checkout.Order.ID, "")
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusExpired, order.Status)

	_, err = svc.Confirm(ctx, checkout.Order.ID, "")
	require.ErrorIs(t, err, ErrOrderNotPending)

	fresh, err := svc.CreateOrder(ctx, student.ID, lecture.ID)
	require.NoError(t, err)
	require.NotEqual(t, checkout.Order.ID, fresh.Order.ID, "a closed order is never reused")

	_, err = svc.Confirm(ctx, 9999, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExpireStaleUsesOrderTTL(t *testing.T) {
	store := newTestStore(t)
	student := seedStudent(t, store, "01018181818", 0)
	lecture := seedLecture(t, store, false)
	ctx := context.Background()

	svc := NewPaymentService(store, PaymentConfig{OrderTTL: time.Hour})
	checkout, err := svc.CreateOrder(ctx, student.ID, lecture.ID)
	require.NoError(t, err)

	expired, err := svc.ExpireStale(ctx)
	require.NoError(t, err)
	require.Zero(t, expired)

	svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	expired, err = svc.ExpireStale(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, expired)

	order, err := svc.Status(ctx, student.ID, checkout.Order.ReferenceCode)
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusExpired, order.Status)

	disabled := NewPaymentService(store, PaymentConfig{})
	disabled.now = svc.now
	expired, err = disabled.ExpireStale(ctx)
	require.NoError(t, err)
	require.Zero(t, expired)
}

func TestStatusIsScopedToStudent(t *testing.T) {
	store := newTestStore(t)
	owner := seedStudent(t, store, "01019191919", 0)
	other := seedStudent(t, store, "01020202020", 0)
	lecture := seedLecture(t, store, false)
	svc := NewPaymentService(store, PaymentConfig{})
	ctx := context.Background()

	checkout, err := svc.CreateOrder(ctx, owner.ID, lecture.ID)
	require.NoError(t, err)

	order, err := svc.Status(ctx, owner.ID, " "+checkout.Order.ReferenceCode+" ")
	require.NoError(t, err)
	require.Equal(t, checkout.Order.ID, order.ID)

	_, err = svc.Status(ctx, other.ID, checkout.Order.ReferenceCode)
	require.ErrorIs(t, err, ErrNotFound)

	pending, err := svc.ListByStatus(ctx, models.PaymentStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = svc.ListByStatus(ctx, models.PaymentStatus("refunded"))
	require.True(t, IsValidationError(err))
}

func TestSetWalletReplacesActiveWallet(t *testing.T) {
	store := newTestStore(t)
	student := seedStudent(t, store, "01021212121", 0)
	lecture := seedLecture(t, store, false)
	svc := NewPaymentService(store, PaymentConfig{})
	ctx := context.Background()

	_, err := svc.SetWallet(ctx, models.SetWalletRequest{WalletType: "paypal", WalletNumber: "01000000000", WalletName: "Voltage"})
	require.True(t, IsValidationError(err))

	_, err = svc.SetWallet(ctx, models.SetWalletRequest{WalletType: "vodafone", WalletNumber: "01000000000", WalletName: "Old"})
	require.NoError(t, err)
	wallet, err := svc.SetWallet(ctx, models.SetWalletRequest{WalletType: " Etisalat ", WalletNumber: "01111111111", WalletName: "Voltage"})
	require.NoError(t, err)
	require.Equal(t, models.WalletEtisalat, wallet.WalletType)

	checkout, err := svc.CreateOrder(ctx, student.ID, lecture.ID)
	require.NoError(t, err)
	require.NotNil(t, checkout.Wallet)
	require.Equal(t, "01111111111", checkout.Wallet.WalletNumber)
}
