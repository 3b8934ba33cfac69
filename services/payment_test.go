package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"project/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeGateway struct {
	checkoutCalls int
	checkoutErr   error
	statuses      map[string]*TransactionStatus
	lastRequest   CheckoutRequest
	// duringCheckout, when set, runs while the checkout call is in flight.
	duringCheckout func()
}

func (f *fakeGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	f.checkoutCalls++
	f.lastRequest = req
	if f.duringCheckout != nil {
		f.duringCheckout()
	}
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	sid := fmt.Sprintf("sess-%d", f.checkoutCalls)
	return &CheckoutSession{SessionID: sid, URL: "https://pay.example.com/" + sid}, nil
}

func (f *fakeGateway) CheckTransaction(ctx context.Context, sessionID string) (*TransactionStatus, error) {
	if s, ok := f.statuses[sessionID]; ok {
		return s, nil
	}
	return &TransactionStatus{SessionID: sessionID, StatusDesc: "pending"}, nil
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Order{}, &models.Payment{}))
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, status models.OrderStatus, budget float64) *models.Order {
	t.Helper()
	user := models.User{ID: uuid.NewString(), Name: "Budi", Email: uuid.NewString() + "@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	order := models.Order{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		ServiceType: "Website",
		Description: "Company profile",
		Budget:      budget,
		Status:      status,
	}
	require.NoError(t, db.Create(&order).Error)
	return &order
}

func newTestService(db *gorm.DB, gw Gateway) *PaymentService {
	cfg := testConfig("")
	return NewPaymentService(db, gw, cfg, nil)
}

func TestInitiateDPPayment(t *testing.T) {
	db := setupDB(t)
	gw := &fakeGateway{}
	svc := newTestService(db, gw)
	order := seedOrder(t, db, models.OrderPendingDPPayment, 5000000)

	result, err := svc.InitiatePayment(context.Background(), order.ID, models.PaymentTypeDP)
	require.NoError(t, err)
	assert.Equal(t, float64(500000), result.Amount)
	assert.Equal(t, "sess-1", result.SessionID)
	assert.NotEmpty(t, result.PaymentURL)
	assert.Equal(t, order.ID, gw.lastRequest.ReferenceID)

	var payment models.Payment
	require.NoError(t, db.First(&payment, "order_id = ?", order.ID).Error)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Equal(t, models.PaymentTypeDP, payment.PaymentType)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderPendingDPPayment, reloaded.Status)
}

func TestInitiateFullPaymentMovesOrder(t *testing.T) {
	db := setupDB(t)
	gw := &fakeGateway{}
	svc := newTestService(db, gw)
	order := seedOrder(t, db, models.OrderDemoReady, 5000000)

	result, err := svc.InitiatePayment(context.Background(), order.ID, models.PaymentTypeFull)
	require.NoError(t, err)
	assert.Equal(t, float64(4500000), result.Amount)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderPendingFullPayment, reloaded.Status)
}

func TestInitiateDuplicateReturnsExistingSession(t *testing.T) {
	db := setupDB(t)
	gw := &fakeGateway{}
	svc := newTestService(db, gw)
	order := seedOrder(t, db, models.OrderPendingDPPayment, 1000000)

	first, err := svc.InitiatePayment(context.Background(), order.ID, models.PaymentTypeDP)
	require.NoError(t, err)
	second, err := svc.InitiatePayment(context.Background(), order.ID, models.PaymentTypeDP)
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, first.PaymentID, second.PaymentID)
	assert.Equal(t, 1, gw.checkoutCalls, "second initiate must not hit the gateway")

	var count int64
	db.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestInitiateLosingRaceKeepsWinnersSession(t *testing.T) {
	db := setupDB(t)
	gw := &fakeGateway{}
	svc := newTestService(db, gw)
	order := seedOrder(t, db, models.OrderPendingDPPayment, 1000000)

	// A competing initiate commits its pending row while ours is still at the
	// gateway; the transactional re-check must pick it up instead of writing a
	// second pending payment.
	winnerSID := "sess-winner"
	gw.duringCheckout = func() {
		winner := models.Payment{
			ID:              uuid.NewString(),
			OrderID:         order.ID,
			PaymentType:     models.PaymentTypeDP,
			Amount:          100000,
			IpaymuSessionID: &winnerSID,
			Status:          models.PaymentPending,
		}
		require.NoError(t, db.Create(&winner).Error)
	}

	result, err := svc.InitiatePayment(context.Background(), order.ID, models.PaymentTypeDP)
	require.NoError(t, err)
	assert.Equal(t, winnerSID, result.SessionID)

	var count int64
	db.Model(&models.Payment{}).Where("order_id = ? AND status = ?", order.ID, models.PaymentPending).Count(&count)
	assert.EqualValues(t, 1, count, "only the winner's pending row may exist")
}

func TestInitiateRejectsWrongStage(t *testing.T) {
	db := setupDB(t)
	svc := newTestService(db, &fakeGateway{})

	order := seedOrder(t, db, models.OrderPendingApproval, 1000000)
	_, err := svc.InitiatePayment(context.Background(), order.ID, models.PaymentTypeDP)
	assert.ErrorIs(t, err, ErrOrderNotPayable)

	_, err = svc.InitiatePayment(context.Background(), order.ID, models.PaymentTypeFull)
	assert.ErrorIs(t, err, ErrOrderNotPayable)

	_, err = svc.InitiatePayment(context.Background(), order.ID, models.PaymentType("refund"))
	assert.ErrorIs(t, err, ErrUnknownPaymentType)

	_, err = svc.InitiatePayment(context.Background(), uuid.NewString(), models.PaymentTypeDP)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestInitiateGatewayFailureLeavesNothingBehind(t *testing.T) {
	db := setupDB(t)
	gw := &fakeGateway{checkoutErr: &GatewayError{Message: "maintenance"}}
	svc := newTestService(db, gw)
	order := seedOrder(t, db, models.OrderPendingDPPayment, 1000000)

	_, err := svc.InitiatePayment(context.Background(), order.ID, models.PaymentTypeDP)
	require.Error(t, err)
	var gwErr *GatewayError
	assert.True(t, errors.As(err, &gwErr))

	var count int64
	db.Model(&models.Payment{}).Count(&count)
	assert.EqualValues(t, 0, count, "no payment row on gateway failure")

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderPendingDPPayment, reloaded.Status, "order untouched on gateway failure")
}

func initiated(t *testing.T, db *gorm.DB, svc *PaymentService, status models.OrderStatus, ptype models.PaymentType) (*models.Order, string) {
	t.Helper()
	order := seedOrder(t, db, status, 5000000)
	result, err := svc.InitiatePayment(context.Background(), order.ID, ptype)
	require.NoError(t, err)
	return order, result.SessionID
}

func TestReconcileDPSuccess(t *testing.T) {
	db := setupDB(t)
	svc := newTestService(db, &fakeGateway{})
	order, sid := initiated(t, db, svc, models.OrderPendingDPPayment, models.PaymentTypeDP)

	err := svc.ReconcileCallback(context.Background(), CallbackPayload{
		SessionID: sid, RawStatus: "berhasil", ReferenceID: order.ID, TransactionID: "trx-9",
	})
	require.NoError(t, err)

	var payment models.Payment
	require.NoError(t, db.First(&payment, "order_id = ?", order.ID).Error)
	assert.Equal(t, models.PaymentSuccess, payment.Status)
	if assert.NotNil(t, payment.IpaymuTransactionID) {
		assert.Equal(t, "trx-9", *payment.IpaymuTransactionID)
	}

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderPendingApproval, reloaded.Status)
}

func TestReconcileDPFailureLoopsBack(t *testing.T) {
	db := setupDB(t)
	svc := newTestService(db, &fakeGateway{})
	order, sid := initiated(t, db, svc, models.OrderPendingDPPayment, models.PaymentTypeDP)

	err := svc.ReconcileCallback(context.Background(), CallbackPayload{SessionID: sid, RawStatus: "gagal"})
	require.NoError(t, err)

	var payment models.Payment
	require.NoError(t, db.First(&payment, "order_id = ?", order.ID).Error)
	assert.Equal(t, models.PaymentFailed, payment.Status)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderPendingDPPayment, reloaded.Status, "failed DP loops back so the customer can retry")
}

func TestReconcileFullSuccessCompletesOrder(t *testing.T) {
	db := setupDB(t)
	svc := newTestService(db, &fakeGateway{})
	order, sid := initiated(t, db, svc, models.OrderDemoReady, models.PaymentTypeFull)

	err := svc.ReconcileCallback(context.Background(), CallbackPayload{SessionID: sid, RawStatus: "berhasil"})
	require.NoError(t, err)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderCompleted, reloaded.Status)
}

func TestReconcileFullFailureReturnsToDemoReady(t *testing.T) {
	db := setupDB(t)
	svc := newTestService(db, &fakeGateway{})
	order, sid := initiated(t, db, svc, models.OrderDemoReady, models.PaymentTypeFull)

	err := svc.ReconcileCallback(context.Background(), CallbackPayload{SessionID: sid, RawStatus: "expired"})
	require.NoError(t, err)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderDemoReady, reloaded.Status)
}

func TestReconcileSuccessTokenIsExact(t *testing.T) {
	db := setupDB(t)
	svc := newTestService(db, &fakeGateway{})
	order, sid := initiated(t, db, svc, models.OrderPendingDPPayment, models.PaymentTypeDP)

	// anything that is not exactly "berhasil" is a failure
	err := svc.ReconcileCallback(context.Background(), CallbackPayload{SessionID: sid, RawStatus: "Berhasil"})
	require.NoError(t, err)

	var payment models.Payment
	require.NoError(t, db.First(&payment, "order_id = ?", order.ID).Error)
	assert.Equal(t, models.PaymentFailed, payment.Status)
}

func TestReconcileDuplicateDeliveryIsNoOp(t *testing.T) {
	db := setupDB(t)
	svc := newTestService(db, &fakeGateway{})
	order, sid := initiated(t, db, svc, models.OrderPendingDPPayment, models.PaymentTypeDP)

	cb := CallbackPayload{SessionID: sid, RawStatus: "berhasil"}
	require.NoError(t, svc.ReconcileCallback(context.Background(), cb))
	require.NoError(t, svc.ReconcileCallback(context.Background(), cb), "same outcome twice is idempotent")

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderPendingApproval, reloaded.Status, "order transition applied exactly once")
}

func TestReconcileConflictingOutcome(t *testing.T) {
	db := setupDB(t)
	svc := newTestService(db, &fakeGateway{})
	_, sid := initiated(t, db, svc, models.OrderPendingDPPayment, models.PaymentTypeDP)

	require.NoError(t, svc.ReconcileCallback(context.Background(), CallbackPayload{SessionID: sid, RawStatus: "berhasil"}))
	err := svc.ReconcileCallback(context.Background(), CallbackPayload{SessionID: sid, RawStatus: "gagal"})
	assert.ErrorIs(t, err, ErrReconciliationConflict)
}

func TestReconcileUnknownSession(t *testing.T) {
	db := setupDB(t)
	svc := newTestService(db, &fakeGateway{})

	err := svc.ReconcileCallback(context.Background(), CallbackPayload{SessionID: "no-such-session", RawStatus: "berhasil"})
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestReconcileMissingSessionID(t *testing.T) {
	db := setupDB(t)
	svc := newTestService(db, &fakeGateway{})

	err := svc.ReconcileCallback(context.Background(), CallbackPayload{RawStatus: "berhasil"})
	assert.ErrorIs(t, err, ErrMalformedCallback)
}

func TestSyncPendingPayments(t *testing.T) {
	db := setupDB(t)
	gw := &fakeGateway{statuses: map[string]*TransactionStatus{}}
	svc := newTestService(db, gw)

	settledOrder, settledSID := initiated(t, db, svc, models.OrderPendingDPPayment, models.PaymentTypeDP)
	expiredOrder, expiredSID := initiated(t, db, svc, models.OrderDemoReady, models.PaymentTypeFull)
	stillOrder, stillSID := initiated(t, db, svc, models.OrderPendingDPPayment, models.PaymentTypeDP)

	gw.statuses[settledSID] = &TransactionStatus{SessionID: settledSID, StatusDesc: "berhasil"}
	gw.statuses[expiredSID] = &TransactionStatus{SessionID: expiredSID, StatusDesc: "expired"}
	gw.statuses[stillSID] = &TransactionStatus{SessionID: stillSID, StatusDesc: "pending"}

	// age the payments past the sweep grace period
	db.Model(&models.Payment{}).Where("1 = 1").Update("created_at", time.Now().Add(-time.Hour))

	svc.SyncPendingPayments(context.Background(), 15*time.Minute)

	var o models.Order
	require.NoError(t, db.First(&o, "id = ?", settledOrder.ID).Error)
	assert.Equal(t, models.OrderPendingApproval, o.Status)

	o = models.Order{}
	require.NoError(t, db.First(&o, "id = ?", expiredOrder.ID).Error)
	assert.Equal(t, models.OrderDemoReady, o.Status)

	o = models.Order{}
	require.NoError(t, db.First(&o, "id = ?", stillOrder.ID).Error)
	assert.Equal(t, models.OrderPendingDPPayment, o.Status, "gateway-pending payments are left alone")

	var p models.Payment
	require.NoError(t, db.First(&p, "order_id = ?", stillOrder.ID).Error)
	assert.Equal(t, models.PaymentPending, p.Status)
}
