package models

import "time"

type OrderStatus string

const (
	OrderPendingDPPayment   OrderStatus = "pending_dp_payment"
	OrderPendingApproval    OrderStatus = "pending_approval"
	OrderApproved           OrderStatus = "approved"
	OrderRejected           OrderStatus = "rejected"
	OrderInProgress         OrderStatus = "in_progress"
	OrderDemoReady          OrderStatus = "demo_ready"
	OrderPendingFullPayment OrderStatus = "pending_full_payment"
	OrderCompleted          OrderStatus = "completed"
)

var orderStatuses = map[OrderStatus]bool{
	OrderPendingDPPayment:   true,
	OrderPendingApproval:    true,
	OrderApproved:           true,
	OrderRejected:           true,
	OrderInProgress:         true,
	OrderDemoReady:          true,
	OrderPendingFullPayment: true,
	OrderCompleted:          true,
}

func ValidOrderStatus(s string) bool {
	return orderStatuses[OrderStatus(s)]
}

type Order struct {
	ID          string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string      `gorm:"type:varchar(36);not null;index" json:"user_id"`
	User        *User       `gorm:"foreignKey:UserID" json:"-"`
	ServiceType string      `gorm:"type:varchar(100);not null" json:"service_type"`
	Description string      `gorm:"type:text;not null" json:"description"`
	Budget      float64     `gorm:"type:decimal(15,2);not null" json:"budget"`
	Status      OrderStatus `gorm:"type:varchar(32);not null;default:'pending_dp_payment'" json:"status"`
	DemoLink    *string     `gorm:"type:text" json:"demo_link,omitempty"`
	FinalLink   *string     `gorm:"type:text" json:"-"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// AwaitingPaymentStatus returns the stage an order sits in while a checkout of
// the given type is open.
func AwaitingPaymentStatus(t PaymentType) OrderStatus {
	if t == PaymentTypeFull {
		return OrderPendingFullPayment
	}
	return OrderPendingDPPayment
}

// NextStatusAfterPayment maps a reconciled payment outcome to the order status
// it produces. Failures loop the order back to the stage where the customer
// can retry: a failed balance payment returns to demo_ready, not to the
// open-checkout stage.
func NextStatusAfterPayment(t PaymentType, success bool) OrderStatus {
	if success {
		if t == PaymentTypeFull {
			return OrderCompleted
		}
		return OrderPendingApproval
	}
	if t == PaymentTypeFull {
		return OrderDemoReady
	}
	return OrderPendingDPPayment
}

// IsPayable reports whether a payment of type t may be initiated while the
// order is in its current stage.
func (o *Order) IsPayable(t PaymentType) bool {
	switch t {
	case PaymentTypeDP:
		return o.Status == OrderPendingDPPayment
	case PaymentTypeFull:
		return o.Status == OrderDemoReady || o.Status == OrderPendingFullPayment
	}
	return false
}

// staffTransitions lists the manual status changes staff may apply. Payment
// driven transitions go through NextStatusAfterPayment instead.
var staffTransitions = map[OrderStatus][]OrderStatus{
	OrderPendingApproval: {OrderApproved, OrderRejected},
	OrderApproved:        {OrderInProgress, OrderDemoReady},
	OrderInProgress:      {OrderDemoReady},
}

func CanStaffTransition(from, to OrderStatus) bool {
	for _, next := range staffTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type FinalLinkState string

const (
	FinalLinkNone      FinalLinkState = "none"
	FinalLinkReady     FinalLinkState = "ready"
	FinalLinkAvailable FinalLinkState = "available"
)

// finalLinkReadySentinel is what non-admin viewers see in place of the real
// URL while the balance has not been paid.
const finalLinkReadySentinel = "ready"

type OrderView struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	ServiceType    string         `json:"service_type"`
	Description    string         `json:"description"`
	Budget         float64        `json:"budget"`
	Status         OrderStatus    `json:"status"`
	DemoLink       *string        `json:"demo_link"`
	FinalLink      *string        `json:"final_link"`
	FinalLinkState FinalLinkState `json:"final_link_state"`
	CreatedAt      string         `json:"created_at"`
	UpdatedAt      string         `json:"updated_at"`
}

// Project builds the read model for a viewer. The raw final_link column always
// holds the true value; masking happens here, at read time only. Admin viewers
// always get the raw link.
func (o *Order) Project(viewerIsAdmin bool) OrderView {
	v := OrderView{
		ID:          o.ID,
		UserID:      o.UserID,
		ServiceType: o.ServiceType,
		Description: o.Description,
		Budget:      o.Budget,
		Status:      o.Status,
		DemoLink:    o.DemoLink,
		CreatedAt:   o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   o.UpdatedAt.Format(time.RFC3339),
	}
	switch {
	case o.FinalLink == nil:
		v.FinalLinkState = FinalLinkNone
	case !viewerIsAdmin && o.Status != OrderCompleted:
		sentinel := finalLinkReadySentinel
		v.FinalLink = &sentinel
		v.FinalLinkState = FinalLinkReady
	default:
		v.FinalLink = o.FinalLink
		v.FinalLinkState = FinalLinkAvailable
	}
	return v
}
