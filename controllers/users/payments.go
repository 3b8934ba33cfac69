package users

import (
	"errors"
	"log"
	"net/http"

	"project/database"
	"project/middleware"
	"project/models"
	"project/services"
	"project/utils"
)

// PaymentController carries the payment service so handlers stay thin.
type PaymentController struct {
	Service *services.PaymentService
}

func NewPaymentController(service *services.PaymentService) *PaymentController {
	return &PaymentController{Service: service}
}

type InitiatePaymentRequest struct {
	OrderID     string `json:"order_id" validate:"required"`
	PaymentType string `json:"payment_type" validate:"required"`
}

// InitiateHandler starts a checkout session for the order's DP or balance
// payment. The order must belong to the caller and be in a payable stage.
func (c *PaymentController) InitiateHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var req InitiatePaymentRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	paymentType := models.PaymentType(req.PaymentType)
	if paymentType != models.PaymentTypeDP && paymentType != models.PaymentTypeFull {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Jenis pembayaran tidak dikenal"})
		return
	}

	// Ownership check before touching the gateway.
	var order models.Order
	if err := database.DB.First(&order, "id = ?", req.OrderID).Error; err != nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Pesanan tidak ditemukan"})
		return
	}
	if order.UserID != userID {
		utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Pesanan ini bukan milik Anda"})
		return
	}

	result, err := c.Service.InitiatePayment(r.Context(), req.OrderID, paymentType)
	if err != nil {
		var gwErr *services.GatewayError
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Pesanan tidak ditemukan"})
		case errors.Is(err, services.ErrOrderNotPayable):
			utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "Pesanan tidak dapat dibayar pada tahap ini"})
		case errors.Is(err, services.ErrUnknownPaymentType):
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Jenis pembayaran tidak dikenal"})
		case errors.As(err, &gwErr):
			log.Printf("[payments] gateway error initiating %s/%s: %v", req.OrderID, paymentType, err)
			utils.WriteJSON(w, http.StatusBadGateway, utils.APIResponse{Success: false, Message: "Gagal membuat sesi pembayaran. Silakan coba lagi."})
		default:
			log.Printf("[payments] error initiating %s/%s: %v", req.OrderID, paymentType, err)
			utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		}
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Sesi pembayaran berhasil dibuat",
		Data: map[string]interface{}{
			"payment_id":  result.PaymentID,
			"session_id":  result.SessionID,
			"payment_url": result.PaymentURL,
			"amount":      result.Amount,
		},
	})
}

// HistoryHandler lists the caller's payments across all their orders.
func HistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var payments []models.Payment
	err := database.DB.
		Joins("JOIN orders ON orders.id = payments.order_id").
		Where("orders.user_id = ?", userID).
		Order("payments.created_at DESC").
		Find(&payments).Error
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: payments})
}
