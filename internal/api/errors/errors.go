// Пакет errors — ответы об ошибках WatchGraph API.
// Тело всегда одного вида: {"error": {"code": "...", "message": "..."}},
// код однозначно определяется HTTP-статусом.
package errors

import (
	"encoding/json"
	"net/http"
)

// Машиночитаемые коды из OpenAPI контракта.
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeConflict           = "CONFLICT"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeInternalError      = "INTERNAL_ERROR"
)

// codeByStatus — соответствие HTTP-статуса коду ошибки.
var codeByStatus = map[int]string{
	http.StatusBadRequest:          CodeValidationError,
	http.StatusNotFound:            CodeNotFound,
	http.StatusUnauthorized:        CodeUnauthorized,
	http.StatusConflict:            CodeConflict,
	http.StatusBadGateway:          CodeStorageUnavailable,
	http.StatusInternalServerError: CodeInternalError,
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Write отправляет ошибку с кодом, выведенным из статуса.
// Неизвестные статусы получают INTERNAL_ERROR.
func Write(w http.ResponseWriter, status int, message string) {
	code, ok := codeByStatus[status]
	if !ok {
		code = CodeInternalError
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{Code: code, Message: message}})
}

// ValidationError — 400: вход не прошёл проверку.
func ValidationError(w http.ResponseWriter, message string) {
	Write(w, http.StatusBadRequest, message)
}

// NotFound — 404.
func NotFound(w http.ResponseWriter, message string) {
	Write(w, http.StatusNotFound, message)
}

// Unauthorized — 401: нет токена или он отвергнут.
func Unauthorized(w http.ResponseWriter, message string) {
	Write(w, http.StatusUnauthorized, message)
}

// Conflict — 409.
func Conflict(w http.ResponseWriter, message string) {
	Write(w, http.StatusConflict, message)
}

// StorageUnavailable — 502: blob-хранилище evidence не ответило.
func StorageUnavailable(w http.ResponseWriter, message string) {
	Write(w, http.StatusBadGateway, message)
}

// InternalError — 500.
func InternalError(w http.ResponseWriter, message string) {
	Write(w, http.StatusInternalServerError, message)
}
