package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"project/database"
	"project/models"
	"project/utils"
)

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutHandler revokes a specific refresh token and (optionally) the access token jti from Authorization header
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid JSON body"})
		return
	}
	if req.RefreshToken == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "refresh_token is required"})
		return
	}

	// Attempt to revoke access-token jti if Authorization header is present.
	// Parsing errors are ignored; the refresh token is revoked either way.
	if claims, err := utils.ClaimsFromHeader(r); err == nil {
		if jti, ok := claims["jti"].(string); ok && jti != "" {
			var ttl time.Duration
			if expRaw, ok := claims["exp"].(float64); ok {
				ttl = time.Until(time.Unix(int64(expRaw), 0))
			}
			if ttl < 0 {
				ttl = 0
			}
			_ = utils.RevokeJTI(jti, ttl)
		}
	}

	if database.DB == nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}
	// If row not found still return success to avoid token enumeration
	_ = database.DB.Model(&models.RefreshToken{}).Where("id = ?", req.RefreshToken).Update("revoked", true).Error
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Logged out"})
}
