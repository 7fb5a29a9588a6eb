package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"finease/internal/auth"
	"finease/internal/core"
	"finease/internal/log"
)

// JSONResponseBuilder provides a fluent API for JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a builder with a 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write encodes the body. Encoding happens before the status is sent, so a
// body that cannot be encoded turns into a 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	payload, err := json.Marshal(b.body)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(payload, '\n'))
}

// MessageResponse is the body of every error response.
type MessageResponse struct {
	Message string `json:"message"`
}

type CreateResponse struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

type UpdateResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ModifiedCount int64  `json:"modifiedCount"`
}

type DeleteResponse struct {
	Acknowledged bool   `json:"acknowledged"`
	DeletedCount int64  `json:"deletedCount"`
	Message      string `json:"message"`
}

const (
	msgInternal        = "internal server error"
	msgTokenNotFound   = "token not found"
	msgInvalidToken    = "invalid token"
	msgForbidden       = "forbidden access"
	msgNotFound        = "transaction not found"
	msgTooManyRequests = "too many requests, please try again later"
)

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(MessageResponse{Message: message})
}

// requestError is a malformed request; its message is safe to return.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error { return &requestError{msg: msg} }

// writeError maps err to its status and a client-safe message. Only 5xx
// causes are logged here; their detail never reaches the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classifyError(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).LogError(r.Context(), "Request failed", err, r.Method+" "+r.URL.Path, log.ErrorTypeDatabase)
	}
	writeMessage(w, status, message)
}

func classifyError(err error) (int, string) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, reqErr.msg
	case errors.Is(err, auth.ErrTokenNotFound):
		return http.StatusUnauthorized, msgTokenNotFound
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized, msgInvalidToken
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden, msgForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, core.ErrInvalid):
		return http.StatusBadRequest, validationMessage(err)
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// validationMessage drops operation prefixes added while the error
// travelled up, keeping the part that describes the input.
func validationMessage(err error) string {
	s := err.Error()
	if i := strings.Index(s, core.ErrInvalid.Error()); i >= 0 {
		return s[i:]
	}
	return s
}
