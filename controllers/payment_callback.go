package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"project/services"
	"project/utils"
)

// PaymentCallbackController handles the asynchronous payment notifications the
// gateway posts after a checkout settles.
type PaymentCallbackController struct {
	Service *services.PaymentService
	Gateway *services.Ipaymu
}

func NewPaymentCallbackController(service *services.PaymentService, gateway *services.Ipaymu) *PaymentCallbackController {
	return &PaymentCallbackController{Service: service, Gateway: gateway}
}

// callbackBody mirrors the gateway's JSON notification fields.
type callbackBody struct {
	SessionID     string `json:"sid"`
	Status        string `json:"status"`
	ReferenceID   string `json:"reference_id"`
	TransactionID string `json:"trx_id"`
}

// decodeCallback accepts either an urlencoded form or a JSON object; the
// gateway has been seen sending both.
func decodeCallback(contentType string, body []byte) (services.CallbackPayload, error) {
	var out services.CallbackPayload
	if strings.Contains(contentType, "application/json") {
		var cb callbackBody
		if err := json.Unmarshal(body, &cb); err != nil {
			return out, err
		}
		out.SessionID = cb.SessionID
		out.RawStatus = cb.Status
		out.ReferenceID = cb.ReferenceID
		out.TransactionID = cb.TransactionID
		return out, nil
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return out, err
	}
	out.SessionID = values.Get("sid")
	out.RawStatus = values.Get("status")
	out.ReferenceID = values.Get("reference_id")
	out.TransactionID = values.Get("trx_id")
	return out, nil
}

// Handle reconciles a notification. The response body is for the gateway, not
// for humans; 200 tells it to stop retrying.
func (c *PaymentCallbackController) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid body"})
		return
	}

	if c.Gateway != nil && c.Gateway.RequireCallbackSignature() {
		if !c.Gateway.VerifyCallbackSignature(body, r.Header.Get("signature")) {
			log.Printf("[callback] signature mismatch from %s", r.RemoteAddr)
			utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Invalid signature"})
			return
		}
	}

	payload, err := decodeCallback(r.Header.Get("Content-Type"), body)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid callback payload"})
		return
	}

	if err := c.Service.ReconcileCallback(r.Context(), payload); err != nil {
		switch {
		case errors.Is(err, services.ErrMalformedCallback):
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid callback payload"})
		case errors.Is(err, services.ErrPaymentNotFound):
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Unknown payment session"})
		case errors.Is(err, services.ErrReconciliationConflict):
			// conflicting outcome for a settled payment, needs manual review
			log.Printf("[callback] conflicting outcome for sid=%s status=%q", payload.SessionID, payload.RawStatus)
			utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "Payment already settled with a different outcome"})
		default:
			log.Printf("[callback] reconcile failed for sid=%s: %v", payload.SessionID, err)
			utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		}
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "OK"})
}
