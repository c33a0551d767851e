package api

import (
	"encoding/json"
	"net/http"

	"carbooker/internal/models"
)

// response is the envelope every endpoint answers with.
type response struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Data    interface{}      `json:"data,omitempty"`
	Meta    *models.PageMeta `json:"meta,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, statusCode int, data interface{}) {
	writeJSON(w, statusCode, response{Success: true, Data: data})
}

func writePage(w http.ResponseWriter, data interface{}, meta *models.PageMeta) {
	writeJSON(w, http.StatusOK, response{Success: true, Data: data, Meta: meta})
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, response{Success: true, Message: message})
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, response{Success: false, Message: message})
}
