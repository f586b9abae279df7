// Package domain reúne a taxonomia de erros compartilhada pelos slices de marketplace e sessão.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation casa com qualquer ValidationError.
	ErrValidation = errors.New("validation error")
	// ErrAuth casa com qualquer AuthError.
	ErrAuth = errors.New("auth error")
	// ErrStorage casa com qualquer StorageError.
	ErrStorage = errors.New("storage error")
	// ErrPartialWrite casa com qualquer PartialWriteInconsistency.
	ErrPartialWrite = errors.New("partial write inconsistency")
)

// ValidationError lista os campos obrigatórios ausentes ou inválidos.
type ValidationError struct {
	Fields []string
}

func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	return "invalid or missing fields: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// AuthKind classifica o resultado informado pelo serviço remoto de contas.
type AuthKind string

const (
	AuthNotFound        AuthKind = "not_found"
	AuthBadCredentials  AuthKind = "bad_credentials"
	AuthInactive        AuthKind = "inactive"
	AuthInvalidPassword AuthKind = "invalid_password"
	AuthConflict        AuthKind = "conflict"
	AuthUnauthorized    AuthKind = "unauthorized"
	AuthUnreachable     AuthKind = "unreachable"
	AuthUnknown         AuthKind = "unknown"
)

type AuthError struct {
	Kind AuthKind
	Err  error
}

func NewAuthError(kind AuthKind, err error) *AuthError {
	return &AuthError{Kind: kind, Err: err}
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "auth: " + string(e.Kind)
	}
	return fmt.Sprintf("auth: %s: %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}

// IsAuthKind informa se err é um AuthError do tipo indicado.
func IsAuthKind(err error, kind AuthKind) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) && authErr.Kind == kind
}

// StorageError envolve qualquer falha do meio de persistência.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func NewStorageError(op, key string, err error) *StorageError {
	return &StorageError{Op: op, Key: key, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// PartialWriteInconsistency indica que uma operação sobre dois stores falhou no meio e
// que desfazer a primeira escrita também falhou, deixando os stores divergentes.
type PartialWriteInconsistency struct {
	Op      string
	ID      string
	Cause   error
	UndoErr error
}

func (e *PartialWriteInconsistency) Error() string {
	return fmt.Sprintf("%s %s left stores divergent: %v (undo failed: %v)", e.Op, e.ID, e.Cause, e.UndoErr)
}

func (e *PartialWriteInconsistency) Unwrap() []error {
	return []error{e.Cause, e.UndoErr}
}

func (e *PartialWriteInconsistency) Is(target error) bool {
	return target == ErrPartialWrite
}
