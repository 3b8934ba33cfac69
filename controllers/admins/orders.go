package admins

import (
	"log"
	"net/http"
	"strings"
	"time"

	"project/database"
	"project/middleware"
	"project/models"
	"project/utils"

	"github.com/gorilla/mux"
)

type adminOrderView struct {
	models.OrderView
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

func adminView(o *models.Order) adminOrderView {
	v := adminOrderView{OrderView: o.Project(true)}
	if o.User != nil {
		v.UserName = o.User.Name
		v.UserEmail = o.User.Email
	}
	return v
}

// ListOrdersHandler returns every order with its customer, unmasked.
func ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	q := database.DB.Preload("User").Order("created_at DESC")
	if status := r.URL.Query().Get("status"); status != "" {
		if !models.ValidOrderStatus(status) {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Status tidak dikenal"})
			return
		}
		q = q.Where("status = ?", status)
	}

	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	views := make([]adminOrderView, 0, len(orders))
	for i := range orders {
		views = append(views, adminView(&orders[i]))
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: views})
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatusHandler applies a manual staff transition. Payment driven moves
// (into and out of the awaiting-payment stages) are rejected here; those only
// happen through reconciliation.
func UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	var req UpdateStatusRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	if !models.ValidOrderStatus(req.Status) {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Status tidak dikenal"})
		return
	}
	target := models.OrderStatus(req.Status)

	var order models.Order
	if err := database.DB.First(&order, "id = ?", orderID).Error; err != nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Pesanan tidak ditemukan"})
		return
	}

	if !models.CanStaffTransition(order.Status, target) {
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{
			Success: false,
			Message: "Perubahan status tidak diizinkan",
			Data:    map[string]interface{}{"from": order.Status, "to": target},
		})
		return
	}

	if err := database.DB.Model(&order).Update("status", target).Error; err != nil {
		log.Printf("[admin] DB error updating order %s status: %v", orderID, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}
	order.Status = target

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Status pesanan diperbarui", Data: order.Project(true)})
}

type SetDemoRequest struct {
	DemoLink string `json:"demo_link" validate:"required"`
	Status   string `json:"status"`
}

// SetDemoHandler stores the preview link. Unless told otherwise the order moves
// to demo_ready so the customer can inspect the work and pay the balance.
func SetDemoHandler(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	var req SetDemoRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	req.DemoLink = strings.TrimSpace(req.DemoLink)
	if req.DemoLink == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Link demo tidak boleh kosong"})
		return
	}

	target := models.OrderDemoReady
	if req.Status != "" {
		if !models.ValidOrderStatus(req.Status) {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Status tidak dikenal"})
			return
		}
		target = models.OrderStatus(req.Status)
	}

	var order models.Order
	if err := database.DB.First(&order, "id = ?", orderID).Error; err != nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Pesanan tidak ditemukan"})
		return
	}

	updates := map[string]interface{}{"demo_link": req.DemoLink, "status": target}
	if err := database.DB.Model(&order).Updates(updates).Error; err != nil {
		log.Printf("[admin] DB error setting demo link on %s: %v", orderID, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}
	order.DemoLink = &req.DemoLink
	order.Status = target

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Link demo disimpan", Data: order.Project(true)})
}

type SetFinalRequest struct {
	FinalLink string `json:"final_link" validate:"required"`
	Status    string `json:"status"`
}

// SetFinalHandler stores the deliverable link. The raw value stays hidden from
// the customer until the balance is paid and the order completes.
func SetFinalHandler(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	var req SetFinalRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	req.FinalLink = strings.TrimSpace(req.FinalLink)
	if req.FinalLink == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Link final tidak boleh kosong"})
		return
	}

	var order models.Order
	if err := database.DB.First(&order, "id = ?", orderID).Error; err != nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Pesanan tidak ditemukan"})
		return
	}
	if order.Status == models.OrderRejected {
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "Pesanan yang ditolak tidak dapat menerima link final"})
		return
	}

	updates := map[string]interface{}{"final_link": req.FinalLink}
	if req.Status != "" {
		// The only status this action may set is completed; every other move
		// goes through the status endpoint or reconciliation.
		if req.Status != string(models.OrderCompleted) {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Status hanya dapat diubah ke completed"})
			return
		}
		updates["status"] = req.Status
	}
	if err := database.DB.Model(&order).Updates(updates).Error; err != nil {
		log.Printf("[admin] DB error setting final link on %s: %v", orderID, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}
	order.FinalLink = &req.FinalLink
	if req.Status != "" {
		order.Status = models.OrderStatus(req.Status)
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Link final disimpan", Data: order.Project(true)})
}

// UploadDeliverableHandler receives the finished work as a multipart upload,
// stores it in object storage, and records a presigned URL as the final link.
func UploadDeliverableHandler(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	var order models.Order
	if err := database.DB.First(&order, "id = ?", orderID).Error; err != nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Pesanan tidak ditemukan"})
		return
	}
	if order.Status == models.OrderRejected {
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "Pesanan yang ditolak tidak dapat menerima link final"})
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Gagal membaca berkas"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Berkas tidak ditemukan pada permintaan"})
		return
	}
	defer file.Close()

	objectName, err := utils.UploadDeliverable(order.ID, header.Filename, file)
	if err != nil {
		log.Printf("[admin] upload deliverable for %s failed: %v", orderID, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Gagal mengunggah berkas"})
		return
	}

	link, err := utils.DeliverableURL(objectName, 7*24*time.Hour)
	if err != nil {
		log.Printf("[admin] presign deliverable %s failed: %v", objectName, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Gagal membuat tautan berkas"})
		return
	}

	if err := database.DB.Model(&order).Update("final_link", link).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}
	order.FinalLink = &link

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Berkas berhasil diunggah",
		Data:    map[string]interface{}{"object": objectName, "order": order.Project(true)},
	})
}
