package domain

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Profile é o perfil devolvido pelo serviço de contas.
type Profile struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	PhotoUser   string `json:"photoUser,omitempty"`
	Address     string `json:"address,omitempty"`
	IsVerified  bool   `json:"isVerified"`
	IsActive    bool   `json:"isActive"`
	RoleUser    string `json:"roleUser,omitempty"`
	LastLogin   string `json:"lastLogin,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// DisplayName prefere o username e cai para o e-mail.
func (p Profile) DisplayName() string {
	if p.Username != "" {
		return p.Username
	}
	return p.Email
}

type Tokens struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	TokenExpired string `json:"tokenExpired,omitempty"`
}

// Session tem o mesmo formato achatado da resposta de login/registro.
type Session struct {
	Profile
	Tokens
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterFields struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
}

// CompletionFields completa o perfil depois do cadastro.
type CompletionFields struct {
	PhotoUser string `json:"photoUser"`
	Address   string `json:"address"`
	RoleUser  string `json:"roleUser"` // ROLE_DRIVER ou ROLE_PASSENGER
}

type ProfileUpdate struct {
	Username    string `json:"username,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	PhotoUser   string `json:"photoUser,omitempty"`
	Address     string `json:"address,omitempty"`
}

// Gateway é o serviço remoto de contas. Falhas chegam como *GatewayError.
type Gateway interface {
	Login(ctx context.Context, credentials Credentials) (Session, error)
	Register(ctx context.Context, fields RegisterFields) (Session, error)
	Me(ctx context.Context, token string) (Profile, error)
	Logout(ctx context.Context, token string) error
	Refresh(ctx context.Context, refreshToken string) (Session, error)
	CompleteProfile(ctx context.Context, token string, fields CompletionFields) (Profile, error)
	UpdateProfile(ctx context.Context, token string, update ProfileUpdate) (Profile, error)
	DeleteAccount(ctx context.Context, token string) error
}

// GatewayError carrega o status HTTP devolvido pelo serviço de contas. Status zero significa
// que o serviço não foi alcançado (rede, timeout ou circuito aberto).
type GatewayError struct {
	Status int
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Unreachable() {
		return fmt.Sprintf("account gateway unreachable: %v", e.Err)
	}
	return fmt.Sprintf("account gateway responded %d", e.Status)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func (e *GatewayError) Unreachable() bool {
	return e.Status == 0
}

type ChangeKind string

const (
	ChangeLogin    ChangeKind = "login"
	ChangeRegister ChangeKind = "register"
	ChangeRefresh  ChangeKind = "refresh"
	ChangeProfile  ChangeKind = "profile"
	ChangeLogout   ChangeKind = "logout"
	ChangeClear    ChangeKind = "clear"
)

// Change é o sinal "sessão mudou" entregue aos observadores.
type Change struct {
	Kind ChangeKind `json:"kind"`
	At   time.Time  `json:"at"`
}

// Notifier difunde mudanças de sessão para todos os observadores, inclusive de outros processos.
type Notifier interface {
	Notify(ctx context.Context, change Change) error
	Subscribe(ctx context.Context) (*Subscription, error)
}

// Subscription entrega mudanças em C até ser liberada por Close ou pelo cancelamento do
// contexto usado em Subscribe. Depois de liberada, C é fechado.
type Subscription struct {
	C       <-chan Change
	release func()
	once    sync.Once
}

func NewSubscription(c <-chan Change, release func()) *Subscription {
	return &Subscription{C: c, release: release}
}

// Close é idempotente.
func (s *Subscription) Close() {
	s.once.Do(s.release)
}
