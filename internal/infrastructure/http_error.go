package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mateusmacedo/carpool-bff/internal/domain"
)

// ErrorBody é o corpo JSON devolvido em qualquer resposta de erro.
type ErrorBody struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

var authStatus = map[domain.AuthKind]int{
	domain.AuthNotFound:        http.StatusNotFound,
	domain.AuthBadCredentials:  http.StatusUnauthorized,
	domain.AuthInactive:        http.StatusForbidden,
	domain.AuthInvalidPassword: http.StatusBadRequest,
	domain.AuthConflict:        http.StatusConflict,
	domain.AuthUnauthorized:    http.StatusUnauthorized,
	domain.AuthUnreachable:     http.StatusBadGateway,
	domain.AuthUnknown:         http.StatusBadGateway,
}

// StatusFor traduz um erro da camada de aplicação para o status HTTP e o corpo da resposta.
func StatusFor(err error) (int, ErrorBody) {
	var (
		validation *domain.ValidationError
		auth       *domain.AuthError
		partial    *domain.PartialWriteInconsistency
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, ErrorBody{Error: "validation", Message: err.Error(), Fields: validation.Fields}
	case errors.As(err, &auth):
		status, ok := authStatus[auth.Kind]
		if !ok {
			status = http.StatusBadGateway
		}
		return status, ErrorBody{Error: string(auth.Kind), Message: err.Error()}
	case errors.As(err, &partial):
		return http.StatusInternalServerError, ErrorBody{Error: "partial_write", Message: err.Error()}
	case errors.Is(err, domain.ErrStorage):
		return http.StatusInternalServerError, ErrorBody{Error: "storage", Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorBody{Error: "timeout", Message: err.Error()}
	default:
		return http.StatusInternalServerError, ErrorBody{Error: "internal", Message: err.Error()}
	}
}

func WriteError(w http.ResponseWriter, err error) {
	status, body := StatusFor(err)
	WriteJSON(w, status, body)
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
