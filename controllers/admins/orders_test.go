package admins

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"project/database"
	"project/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAdminDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Order{}))
	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })
	return db
}

func seedOrderWithStatus(t *testing.T, db *gorm.DB, status models.OrderStatus) *models.Order {
	t.Helper()
	order := models.Order{
		ID:          uuid.NewString(),
		UserID:      uuid.NewString(),
		ServiceType: "Website",
		Description: "Company profile",
		Budget:      1000000,
		Status:      status,
	}
	require.NoError(t, db.Create(&order).Error)
	return &order
}

func putFinalLink(orderID string, body map[string]interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPut, "/v1/admin/orders/"+orderID+"/final", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req = mux.SetURLVars(req, map[string]string{"id": orderID})
	rec := httptest.NewRecorder()
	SetFinalHandler(rec, req)
	return rec
}

func TestSetFinalStoresLink(t *testing.T) {
	db := setupAdminDB(t)
	order := seedOrderWithStatus(t, db, models.OrderInProgress)

	rec := putFinalLink(order.ID, map[string]interface{}{"final_link": "https://cdn.example.com/final.zip"})
	assert.Equal(t, http.StatusOK, rec.Code)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	require.NotNil(t, reloaded.FinalLink)
	assert.Equal(t, "https://cdn.example.com/final.zip", *reloaded.FinalLink)
	assert.Equal(t, models.OrderInProgress, reloaded.Status, "status unchanged without an override")
}

func TestSetFinalRejectedOrderIsConflict(t *testing.T) {
	db := setupAdminDB(t)
	order := seedOrderWithStatus(t, db, models.OrderRejected)

	rec := putFinalLink(order.ID, map[string]interface{}{"final_link": "https://cdn.example.com/final.zip"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Nil(t, reloaded.FinalLink)
}

func TestSetFinalStatusOverrideOnlyCompleted(t *testing.T) {
	db := setupAdminDB(t)
	order := seedOrderWithStatus(t, db, models.OrderInProgress)

	rec := putFinalLink(order.ID, map[string]interface{}{
		"final_link": "https://cdn.example.com/final.zip",
		"status":     string(models.OrderApproved),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Nil(t, reloaded.FinalLink)
	assert.Equal(t, models.OrderInProgress, reloaded.Status)

	rec = putFinalLink(order.ID, map[string]interface{}{
		"final_link": "https://cdn.example.com/final.zip",
		"status":     string(models.OrderCompleted),
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderCompleted, reloaded.Status)
}
