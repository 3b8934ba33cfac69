package models

import (
	"fmt"
	"math"
	"time"
)

type PaymentType string

const (
	PaymentTypeDP   PaymentType = "dp"
	PaymentTypeFull PaymentType = "full"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Fraction of the order budget charged per payment type. The deposit is always
// 10% and the balance the remaining 90%.
const (
	DPFraction   = 0.10
	FullFraction = 0.90
)

type Payment struct {
	ID                  string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderID             string        `gorm:"type:varchar(36);not null;index" json:"order_id"`
	Order               *Order        `gorm:"foreignKey:OrderID" json:"-"`
	PaymentType         PaymentType   `gorm:"type:varchar(8);not null" json:"payment_type"`
	Amount              float64       `gorm:"type:decimal(15,2);not null" json:"amount"`
	IpaymuSessionID     *string       `gorm:"type:varchar(191);uniqueIndex" json:"ipaymu_session_id,omitempty"`
	IpaymuTransactionID *string       `gorm:"type:varchar(191)" json:"ipaymu_transaction_id,omitempty"`
	PaymentURL          *string       `gorm:"type:text" json:"payment_url,omitempty"`
	Status              PaymentStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// Settled reports whether the payment already reached a terminal status.
func (p *Payment) Settled() bool {
	return p.Status == PaymentSuccess || p.Status == PaymentFailed
}

// ComputeAmount returns the rupiah amount charged for a payment of the given
// type against a budget. Amounts are rounded to whole rupiah.
func ComputeAmount(budget float64, t PaymentType) (float64, error) {
	if budget <= 0 {
		return 0, fmt.Errorf("budget must be positive, got %v", budget)
	}
	switch t {
	case PaymentTypeDP:
		return math.Round(budget * DPFraction), nil
	case PaymentTypeFull:
		return math.Round(budget * FullFraction), nil
	}
	return 0, fmt.Errorf("unknown payment type %q", t)
}
