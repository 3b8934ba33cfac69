package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"project/database"
	"project/models"
	"project/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupUsersDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Order{}))
	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })
	return db
}

func getMe(userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req = req.WithContext(context.WithValue(req.Context(), utils.UserIDKey, userID))
	rec := httptest.NewRecorder()
	MeHandler(rec, req)
	return rec
}

func TestMeReturnsAccount(t *testing.T) {
	db := setupUsersDB(t)
	user := models.User{ID: uuid.NewString(), Name: "Budi", Email: "budi@example.com", Password: "$2a$10$secret"}
	require.NoError(t, db.Create(&user).Error)
	for _, status := range []models.OrderStatus{models.OrderCompleted, models.OrderInProgress} {
		order := models.Order{ID: uuid.NewString(), UserID: user.ID, ServiceType: "Website", Description: "x", Budget: 1000000, Status: status}
		require.NoError(t, db.Create(&order).Error)
	}

	rec := getMe(user.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			User struct {
				ID    string `json:"id"`
				Email string `json:"email"`
				Role  string `json:"role"`
			} `json:"user"`
			Orders struct {
				Total     int64 `json:"total"`
				Completed int64 `json:"completed"`
			} `json:"orders"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, user.ID, resp.Data.User.ID)
	assert.Equal(t, "budi@example.com", resp.Data.User.Email)
	assert.Equal(t, "user", resp.Data.User.Role)
	assert.EqualValues(t, 2, resp.Data.Orders.Total)
	assert.EqualValues(t, 1, resp.Data.Orders.Completed)
	assert.NotContains(t, rec.Body.String(), "$2a$10$secret", "password hash must never leave the API")
}

func TestMeUnknownUser(t *testing.T) {
	setupUsersDB(t)
	rec := getMe(uuid.NewString())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
