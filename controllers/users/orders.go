package users

import (
	"log"
	"net/http"
	"strings"

	"project/database"
	"project/middleware"
	"project/models"
	"project/utils"

	"github.com/google/uuid"
)

type CreateOrderRequest struct {
	ServiceType string  `json:"service_type" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Budget      float64 `json:"budget"`
}

// CreateOrderHandler opens a new order for the authenticated user. Orders start
// at pending_dp_payment; nothing moves until the down payment settles.
func CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var req CreateOrderRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	req.ServiceType = strings.TrimSpace(req.ServiceType)
	req.Description = strings.TrimSpace(req.Description)
	if req.ServiceType == "" || req.Description == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Jenis layanan dan deskripsi tidak boleh kosong"})
		return
	}
	if req.Budget <= 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Budget harus lebih besar dari 0"})
		return
	}

	order := models.Order{
		ID:          uuid.NewString(),
		UserID:      userID,
		ServiceType: req.ServiceType,
		Description: req.Description,
		Budget:      req.Budget,
		Status:      models.OrderPendingDPPayment,
	}
	if err := database.DB.Create(&order).Error; err != nil {
		log.Printf("[orders] DB error creating order for user %s: %v", userID, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	dpAmount, _ := models.ComputeAmount(order.Budget, models.PaymentTypeDP)
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Pesanan berhasil dibuat. Silakan lakukan pembayaran DP.",
		Data: map[string]interface{}{
			"order":     order.Project(false),
			"dp_amount": dpAmount,
		},
	})
}

// ListOrdersHandler returns the authenticated user's orders, newest first.
func ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var orders []models.Order
	if err := database.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	views := make([]models.OrderView, 0, len(orders))
	for i := range orders {
		views = append(views, orders[i].Project(false))
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: views})
}
