package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"project/utils"
)

// ValidateJSON decodes the request body into dst and runs the struct
// validator. On any failure it writes the error response itself and returns a
// non-nil error; handlers just return.
//
// Order, demo/final link and auth payloads are all small flat objects, so
// unknown fields are rejected outright rather than ignored.
func ValidateJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	ct := r.Header.Get("Content-Type")
	if ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		utils.WriteJSON(w, http.StatusUnsupportedMediaType, utils.APIResponse{Success: false, Message: "Content-Type must be application/json"})
		return http.ErrNotSupported
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			// body cap from MaxBodyMiddleware tripped mid-decode
			utils.WriteJSON(w, http.StatusRequestEntityTooLarge, utils.APIResponse{Success: false, Message: "Body permintaan terlalu besar"})
		case errors.Is(err, io.EOF):
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Body permintaan kosong"})
		default:
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid JSON body"})
		}
		return err
	}

	if err := utils.ValidateStruct(dst); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Validation failed", Data: err.Error()})
		return err
	}
	return nil
}
