package controllers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"project/models"
	"project/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func callbackFixture(t *testing.T, verifySignature bool) (*PaymentCallbackController, *gorm.DB, string) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Order{}, &models.Payment{}))

	user := models.User{ID: uuid.NewString(), Name: "Budi", Email: "budi@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	order := models.Order{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		ServiceType: "Website",
		Description: "Company profile",
		Budget:      5000000,
		Status:      models.OrderPendingDPPayment,
	}
	require.NoError(t, db.Create(&order).Error)

	sid := "sess-callback-1"
	payment := models.Payment{
		ID:              uuid.NewString(),
		OrderID:         order.ID,
		PaymentType:     models.PaymentTypeDP,
		Amount:          500000,
		IpaymuSessionID: &sid,
		Status:          models.PaymentPending,
	}
	require.NoError(t, db.Create(&payment).Error)

	cfg := services.IpaymuConfig{
		BaseURL:        "https://sandbox.ipaymu.com/api/v2",
		VA:             "0000001234567890",
		APIKey:         "SANDBOX-ABC123",
		ReturnURL:      "https://shop.example.com/thanks",
		NotifyURL:      "https://shop.example.com/v1/payments/callback",
		VerifyCallback: verifySignature,
	}
	gateway := services.NewIpaymu(cfg)
	service := services.NewPaymentService(db, gateway, cfg, nil)
	return NewPaymentCallbackController(service, gateway), db, sid
}

func postCallback(c *PaymentCallbackController, contentType, body string, sign func([]byte) string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	if sign != nil {
		req.Header.Set("signature", sign([]byte(body)))
	}
	rec := httptest.NewRecorder()
	c.Handle(rec, req)
	return rec
}

func TestCallbackFormSuccess(t *testing.T) {
	c, db, sid := callbackFixture(t, false)

	form := url.Values{}
	form.Set("sid", sid)
	form.Set("status", "berhasil")
	form.Set("trx_id", "trx-7")

	rec := postCallback(c, "application/x-www-form-urlencoded", form.Encode(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var payment models.Payment
	require.NoError(t, db.First(&payment, "ipaymu_session_id = ?", sid).Error)
	assert.Equal(t, models.PaymentSuccess, payment.Status)

	var order models.Order
	require.NoError(t, db.First(&order, "id = ?", payment.OrderID).Error)
	assert.Equal(t, models.OrderPendingApproval, order.Status)
}

func TestCallbackJSONSuccess(t *testing.T) {
	c, db, sid := callbackFixture(t, false)

	body := `{"sid":"` + sid + `","status":"berhasil","trx_id":"trx-8"}`
	rec := postCallback(c, "application/json", body, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var payment models.Payment
	require.NoError(t, db.First(&payment, "ipaymu_session_id = ?", sid).Error)
	assert.Equal(t, models.PaymentSuccess, payment.Status)
}

func TestCallbackMissingSID(t *testing.T) {
	c, _, _ := callbackFixture(t, false)
	rec := postCallback(c, "application/x-www-form-urlencoded", "status=berhasil", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackUnknownSession(t *testing.T) {
	c, _, _ := callbackFixture(t, false)
	rec := postCallback(c, "application/x-www-form-urlencoded", "sid=nope&status=berhasil", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCallbackConflict(t *testing.T) {
	c, _, sid := callbackFixture(t, false)

	rec := postCallback(c, "application/x-www-form-urlencoded", "sid="+sid+"&status=berhasil", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// retry with the same outcome acks again
	rec = postCallback(c, "application/x-www-form-urlencoded", "sid="+sid+"&status=berhasil", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// conflicting outcome is rejected for manual review
	rec = postCallback(c, "application/x-www-form-urlencoded", "sid="+sid+"&status=gagal", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCallbackSignatureEnforced(t *testing.T) {
	c, _, sid := callbackFixture(t, true)
	body := "sid=" + sid + "&status=berhasil"

	rec := postCallback(c, "application/x-www-form-urlencoded", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "missing signature rejected")

	rec = postCallback(c, "application/x-www-form-urlencoded", body, func([]byte) string { return "deadbeef" })
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "bad signature rejected")

	rec = postCallback(c, "application/x-www-form-urlencoded", body, c.Gateway.Sign)
	assert.Equal(t, http.StatusOK, rec.Code, "valid signature accepted")
}
