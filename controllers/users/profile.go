package users

import (
	"errors"
	"net/http"

	"project/database"
	"project/models"
	"project/utils"

	"gorm.io/gorm"
)

// MeHandler returns the authenticated account together with a small order
// summary.
func MeHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	db := database.DB
	var user models.User
	if err := db.First(&user, "id = ?", uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "User not found"})
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Database error"})
		return
	}

	var totalOrders, completedOrders int64
	db.Model(&models.Order{}).Where("user_id = ?", user.ID).Count(&totalOrders)
	db.Model(&models.Order{}).Where("user_id = ? AND status = ?", user.ID, models.OrderCompleted).Count(&completedOrders)

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"user": map[string]interface{}{
				"id":         user.ID,
				"name":       user.Name,
				"email":      user.Email,
				"phone":      user.Phone,
				"role":       user.Role(),
				"created_at": user.CreatedAt,
			},
			"orders": map[string]interface{}{
				"total":     totalOrders,
				"completed": completedOrders,
			},
		},
	})
}
