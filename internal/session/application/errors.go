package application

import (
	"errors"
	"net/http"

	"github.com/mateusmacedo/carpool-bff/internal/domain"
	sessionDomain "github.com/mateusmacedo/carpool-bff/internal/session/domain"
)

func gatewayStatus(err error) (int, bool) {
	var gwErr *sessionDomain.GatewayError
	if !errors.As(err, &gwErr) {
		return 0, false
	}
	return gwErr.Status, true
}

func mapLoginError(err error) error {
	status, ok := gatewayStatus(err)
	if !ok {
		return domain.NewAuthError(domain.AuthUnknown, err)
	}

	switch status {
	case 0:
		return domain.NewAuthError(domain.AuthUnreachable, err)
	case http.StatusNotFound:
		return domain.NewAuthError(domain.AuthNotFound, err)
	case http.StatusBadRequest:
		return domain.NewAuthError(domain.AuthBadCredentials, err)
	case http.StatusUnauthorized:
		return domain.NewAuthError(domain.AuthInactive, err)
	default:
		return domain.NewAuthError(domain.AuthUnknown, err)
	}
}

// mapRegisterError trata 500 como conflito: o serviço de contas responde 500 quando o
// e-mail já está em uso.
func mapRegisterError(err error) error {
	status, ok := gatewayStatus(err)
	if !ok {
		return domain.NewAuthError(domain.AuthUnknown, err)
	}

	switch status {
	case 0:
		return domain.NewAuthError(domain.AuthUnreachable, err)
	case http.StatusBadRequest:
		return domain.NewAuthError(domain.AuthInvalidPassword, err)
	case http.StatusConflict, http.StatusInternalServerError:
		return domain.NewAuthError(domain.AuthConflict, err)
	default:
		return domain.NewAuthError(domain.AuthUnknown, err)
	}
}

func mapAccountError(err error) error {
	status, ok := gatewayStatus(err)
	if !ok {
		return domain.NewAuthError(domain.AuthUnknown, err)
	}

	switch status {
	case 0:
		return domain.NewAuthError(domain.AuthUnreachable, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.NewAuthError(domain.AuthUnauthorized, err)
	case http.StatusNotFound:
		return domain.NewAuthError(domain.AuthNotFound, err)
	case http.StatusBadRequest, http.StatusConflict:
		return domain.NewAuthError(domain.AuthConflict, err)
	default:
		return domain.NewAuthError(domain.AuthUnknown, err)
	}
}
