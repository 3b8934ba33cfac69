package admins

import (
	"net/http"
	"strconv"

	"project/database"
	"project/models"
	"project/utils"
)

// ListUsersHandler returns registered accounts, newest first, with basic
// pagination via ?page= and ?per_page=.
func ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 25
	}

	var total int64
	if err := database.DB.Model(&models.User{}).Count(&total).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	var users []models.User
	err := database.DB.
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&users).Error
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"users": users,
			"meta":  utils.PageMeta{Page: page, PerPage: perPage, Total: total},
		},
	})
}
