package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextStatusAfterPayment(t *testing.T) {
	tests := []struct {
		name    string
		ptype   PaymentType
		success bool
		want    OrderStatus
	}{
		{"dp success", PaymentTypeDP, true, OrderPendingApproval},
		{"dp failure", PaymentTypeDP, false, OrderPendingDPPayment},
		{"full success", PaymentTypeFull, true, OrderCompleted},
		{"full failure", PaymentTypeFull, false, OrderDemoReady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStatusAfterPayment(tt.ptype, tt.success))
		})
	}
}

func TestIsPayable(t *testing.T) {
	tests := []struct {
		status OrderStatus
		ptype  PaymentType
		want   bool
	}{
		{OrderPendingDPPayment, PaymentTypeDP, true},
		{OrderPendingApproval, PaymentTypeDP, false},
		{OrderCompleted, PaymentTypeDP, false},
		{OrderDemoReady, PaymentTypeFull, true},
		{OrderPendingFullPayment, PaymentTypeFull, true},
		{OrderInProgress, PaymentTypeFull, false},
		{OrderPendingDPPayment, PaymentTypeFull, false},
		{OrderRejected, PaymentTypeDP, false},
	}
	for _, tt := range tests {
		o := Order{Status: tt.status}
		assert.Equal(t, tt.want, o.IsPayable(tt.ptype), "status=%s type=%s", tt.status, tt.ptype)
	}
}

func TestCanStaffTransition(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{OrderPendingApproval, OrderApproved},
		{OrderPendingApproval, OrderRejected},
		{OrderApproved, OrderInProgress},
		{OrderApproved, OrderDemoReady},
		{OrderInProgress, OrderDemoReady},
	}
	for _, tt := range allowed {
		assert.True(t, CanStaffTransition(tt.from, tt.to), "%s -> %s should be allowed", tt.from, tt.to)
	}

	denied := []struct{ from, to OrderStatus }{
		// payment driven moves never go through staff hands
		{OrderPendingDPPayment, OrderPendingApproval},
		{OrderDemoReady, OrderCompleted},
		{OrderPendingFullPayment, OrderCompleted},
		// terminal states stay terminal
		{OrderRejected, OrderApproved},
		{OrderCompleted, OrderInProgress},
		// no skipping stages
		{OrderPendingApproval, OrderDemoReady},
		{OrderPendingDPPayment, OrderCompleted},
	}
	for _, tt := range denied {
		assert.False(t, CanStaffTransition(tt.from, tt.to), "%s -> %s should be denied", tt.from, tt.to)
	}
}

func TestProjectMasksFinalLink(t *testing.T) {
	link := "https://files.example.com/deliverables/abc.zip"

	t.Run("no link yet", func(t *testing.T) {
		o := Order{Status: OrderInProgress}
		v := o.Project(false)
		assert.Nil(t, v.FinalLink)
		assert.Equal(t, FinalLinkNone, v.FinalLinkState)
	})

	t.Run("link set before completion", func(t *testing.T) {
		o := Order{Status: OrderPendingFullPayment, FinalLink: &link}
		v := o.Project(false)
		if assert.NotNil(t, v.FinalLink) {
			assert.Equal(t, "ready", *v.FinalLink)
		}
		assert.Equal(t, FinalLinkReady, v.FinalLinkState)
	})

	t.Run("link revealed after completion", func(t *testing.T) {
		o := Order{Status: OrderCompleted, FinalLink: &link}
		v := o.Project(false)
		if assert.NotNil(t, v.FinalLink) {
			assert.Equal(t, link, *v.FinalLink)
		}
		assert.Equal(t, FinalLinkAvailable, v.FinalLinkState)
	})

	t.Run("admin always sees raw link", func(t *testing.T) {
		o := Order{Status: OrderInProgress, FinalLink: &link}
		v := o.Project(true)
		if assert.NotNil(t, v.FinalLink) {
			assert.Equal(t, link, *v.FinalLink)
		}
		assert.Equal(t, FinalLinkAvailable, v.FinalLinkState)
	})

	t.Run("demo link never masked", func(t *testing.T) {
		demo := "https://demo.example.com/preview"
		o := Order{Status: OrderDemoReady, DemoLink: &demo, FinalLink: &link}
		v := o.Project(false)
		if assert.NotNil(t, v.DemoLink) {
			assert.Equal(t, demo, *v.DemoLink)
		}
	})
}
