package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"project/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ipaymuSuccessToken is the exact, case-sensitive token iPaymu sends for a
// settled payment. Anything else counts as failed.
const ipaymuSuccessToken = "berhasil"

// Gateway is the slice of the iPaymu client the payment service needs. Tests
// substitute a fake.
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	CheckTransaction(ctx context.Context, sessionID string) (*TransactionStatus, error)
}

// Notifier delivers best-effort order notifications (email). May be nil.
type Notifier interface {
	NotifyOrderStatus(email, name string, order *models.Order)
}

// PaymentService owns the order-payment reconciliation flow: it initiates
// gateway checkouts, persists payment attempts and applies webhook outcomes
// to order status exactly once.
type PaymentService struct {
	db       *gorm.DB
	gateway  Gateway
	cfg      IpaymuConfig
	notifier Notifier
}

func NewPaymentService(db *gorm.DB, gateway Gateway, cfg IpaymuConfig, notifier Notifier) *PaymentService {
	return &PaymentService{db: db, gateway: gateway, cfg: cfg, notifier: notifier}
}

// InitiateResult is what the customer-facing handler needs to redirect the
// payer to checkout.
type InitiateResult struct {
	PaymentID  string  `json:"payment_id"`
	SessionID  string  `json:"session_id"`
	PaymentURL string  `json:"payment_url"`
	Amount     float64 `json:"amount"`
}

// InitiatePayment builds and signs a checkout request for the given order and
// payment type, persists the pending payment row and moves the order into its
// awaiting-payment stage. On any gateway failure nothing is persisted and the
// order is left untouched.
//
// A second initiation for the same (order, type) while a payment is still
// pending returns the existing checkout session instead of creating another
// row.
func (s *PaymentService) InitiatePayment(ctx context.Context, orderID string, paymentType models.PaymentType) (*InitiateResult, error) {
	if paymentType != models.PaymentTypeDP && paymentType != models.PaymentTypeFull {
		return nil, ErrUnknownPaymentType
	}

	var order models.Order
	err := s.db.WithContext(ctx).Preload("User").Where("id = ?", orderID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !order.IsPayable(paymentType) {
		return nil, ErrOrderNotPayable
	}

	amount, err := models.ComputeAmount(order.Budget, paymentType)
	if err != nil {
		return nil, err
	}

	// Short-circuit before touching the gateway when a checkout is already
	// open for this order/type.
	if existing, err := s.pendingPayment(ctx, s.db, orderID, paymentType); err != nil {
		return nil, err
	} else if existing != nil {
		return resultFrom(existing), nil
	}

	label := "DP"
	if paymentType == models.PaymentTypeFull {
		label = "Pelunasan"
	}
	buyerName, buyerEmail, buyerPhone := buyerContact(&order)
	session, err := s.gateway.CreateCheckout(ctx, CheckoutRequest{
		Product:     []string{fmt.Sprintf("%s - %s", label, order.ServiceType)},
		Qty:         []string{"1"},
		Price:       []string{strconv.FormatFloat(amount, 'f', -1, 64)},
		ReturnURL:   s.cfg.ReturnURL,
		CancelURL:   s.cfg.CancelURL,
		NotifyURL:   s.cfg.NotifyURL,
		ReferenceID: order.ID,
		BuyerName:   buyerName,
		BuyerEmail:  buyerEmail,
		BuyerPhone:  buyerPhone,
	})
	if err != nil {
		return nil, err
	}

	payment := models.Payment{
		ID:              uuid.NewString(),
		OrderID:         order.ID,
		PaymentType:     paymentType,
		Amount:          amount,
		IpaymuSessionID: &session.SessionID,
		PaymentURL:      &session.URL,
		Status:          models.PaymentPending,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the order row so concurrent initiates for the same order
		// serialize here, then re-check with a locking read: a concurrent
		// initiate may have committed while we were talking to the gateway,
		// and a plain read would miss its row under REPEATABLE READ.
		var locked models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, "id = ?", order.ID).Error; err != nil {
			return err
		}
		existing, err := s.pendingPayment(ctx, tx.Clauses(clause.Locking{Strength: "UPDATE"}), orderID, paymentType)
		if err != nil {
			return err
		}
		if existing != nil {
			log.Printf("[payment] duplicate initiate for order %s type %s, keeping session %s", orderID, paymentType, deref(existing.IpaymuSessionID))
			payment = *existing
			return nil
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Order{}).
			Where("id = ?", order.ID).
			Update("status", models.AwaitingPaymentStatus(paymentType)).Error
	})
	if err != nil {
		return nil, err
	}
	return resultFrom(&payment), nil
}

func (s *PaymentService) pendingPayment(ctx context.Context, tx *gorm.DB, orderID string, t models.PaymentType) (*models.Payment, error) {
	var p models.Payment
	err := tx.WithContext(ctx).
		Where("order_id = ? AND payment_type = ? AND status = ?", orderID, t, models.PaymentPending).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func resultFrom(p *models.Payment) *InitiateResult {
	return &InitiateResult{
		PaymentID:  p.ID,
		SessionID:  deref(p.IpaymuSessionID),
		PaymentURL: deref(p.PaymentURL),
		Amount:     p.Amount,
	}
}

func buyerContact(order *models.Order) (name, email, phone string) {
	if order.User == nil {
		return "", "", ""
	}
	if order.User.Phone != nil {
		phone = *order.User.Phone
	}
	return order.User.Name, order.User.Email, phone
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// CallbackPayload is the strict value a decoded webhook boundary hands to the
// reconciler. RawStatus is the gateway's native token, untranslated.
type CallbackPayload struct {
	SessionID     string
	RawStatus     string
	ReferenceID   string
	TransactionID string
}

// Outcome normalizes the gateway's status vocabulary to our payment statuses.
func (p CallbackPayload) Outcome() models.PaymentStatus {
	if p.RawStatus == ipaymuSuccessToken {
		return models.PaymentSuccess
	}
	return models.PaymentFailed
}

// ReconcileCallback applies a gateway outcome to the payment and its order.
//
// The payment row is flipped with a conditional update keyed on
// status='pending'; affected-rows tells pending-to-settled apart from
// duplicates without a prior read, so concurrent deliveries of the same
// callback settle exactly once. A repeat delivery with the same outcome is a
// no-op; a conflicting outcome against a settled payment is rejected.
func (s *PaymentService) ReconcileCallback(ctx context.Context, cb CallbackPayload) error {
	if cb.SessionID == "" {
		return ErrMalformedCallback
	}
	outcome := cb.Outcome()

	var settled *models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": outcome}
		if cb.TransactionID != "" {
			updates["ipaymu_transaction_id"] = cb.TransactionID
		}
		res := tx.Model(&models.Payment{}).
			Where("ipaymu_session_id = ? AND status = ?", cb.SessionID, models.PaymentPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			var existing models.Payment
			if err := tx.Where("ipaymu_session_id = ?", cb.SessionID).First(&existing).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrPaymentNotFound
				}
				return err
			}
			if existing.Status == outcome {
				// Duplicate delivery of an outcome we already applied.
				return nil
			}
			return ErrReconciliationConflict
		}

		var payment models.Payment
		if err := tx.Where("ipaymu_session_id = ?", cb.SessionID).First(&payment).Error; err != nil {
			return err
		}
		next := models.NextStatusAfterPayment(payment.PaymentType, outcome == models.PaymentSuccess)
		res = tx.Model(&models.Order{}).Where("id = ?", payment.OrderID).Update("status", next)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOrderNotFound
		}
		settled = &payment
		return nil
	})
	if err != nil {
		return err
	}

	if settled != nil && outcome == models.PaymentSuccess {
		s.notifyStatus(ctx, settled.OrderID)
	}
	return nil
}

func (s *PaymentService) notifyStatus(ctx context.Context, orderID string) {
	if s.notifier == nil {
		return
	}
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("User").Where("id = ?", orderID).First(&order).Error; err != nil {
		log.Printf("[payment] notify skipped, load order %s: %v", orderID, err)
		return
	}
	if order.User == nil {
		return
	}
	go s.notifier.NotifyOrderStatus(order.User.Email, order.User.Name, &order)
}

// SyncPendingPayments asks the gateway for the status of payments that have
// been pending longer than the grace period and pushes any settled outcome
// through the regular reconcile path. Run from the cron scheduler.
func (s *PaymentService) SyncPendingPayments(ctx context.Context, olderThan time.Duration) {
	var pendings []models.Payment
	cutoff := time.Now().Add(-olderThan)
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ? AND ipaymu_session_id IS NOT NULL", models.PaymentPending, cutoff).
		Find(&pendings).Error
	if err != nil {
		log.Printf("[payment] sweep query failed: %v", err)
		return
	}

	for i := range pendings {
		p := &pendings[i]
		sid := deref(p.IpaymuSessionID)
		status, err := s.gateway.CheckTransaction(ctx, sid)
		if err != nil {
			log.Printf("[payment] sweep inquiry %s failed: %v", sid, err)
			continue
		}
		var raw string
		switch {
		case status.Succeeded():
			raw = ipaymuSuccessToken
		case status.Expired():
			raw = status.StatusDesc
		default:
			// Still pending at the gateway, leave it alone.
			continue
		}
		cb := CallbackPayload{SessionID: sid, RawStatus: raw, ReferenceID: p.OrderID}
		if err := s.ReconcileCallback(ctx, cb); err != nil {
			log.Printf("[payment] sweep reconcile %s failed: %v", sid, err)
		}
	}
}
