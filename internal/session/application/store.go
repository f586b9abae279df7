package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mateusmacedo/carpool-bff/internal/domain"
	sessionDomain "github.com/mateusmacedo/carpool-bff/internal/session/domain"
	pkgApp "github.com/mateusmacedo/carpool-bff/pkg/application"
)

const (
	TokenKey        = "token"
	RefreshTokenKey = "refreshToken"
)

// Store é o único dono do par de tokens. O perfil fica em cache associado ao token que o
// obteve, e cada mudança é difundida pelo Notifier.
type Store struct {
	gateway  sessionDomain.Gateway
	medium   domain.Medium
	notifier sessionDomain.Notifier
	clock    func() time.Time
	logger   pkgApp.AppLogger

	mu         sync.Mutex
	profile    *sessionDomain.Profile
	profileFor string
}

func NewStore(gateway sessionDomain.Gateway, medium domain.Medium, notifier sessionDomain.Notifier, logger pkgApp.AppLogger) *Store {
	return &Store{
		gateway:  gateway,
		medium:   medium,
		notifier: notifier,
		clock:    time.Now,
		logger:   logger,
	}
}

func (s *Store) Login(ctx context.Context, credentials sessionDomain.Credentials) (sessionDomain.Session, error) {
	session, err := s.gateway.Login(ctx, credentials)
	if err != nil {
		authErr := mapLoginError(err)
		pkgApp.LogError(ctx, s.logger, "Erro ao autenticar usuário", authErr, nil)
		return sessionDomain.Session{}, authErr
	}

	if err := s.establish(ctx, session); err != nil {
		return sessionDomain.Session{}, err
	}

	pkgApp.LogInfo(ctx, s.logger, "Usuário autenticado", map[string]interface{}{"user_id": session.ID})
	s.notify(ctx, sessionDomain.ChangeLogin)
	return session, nil
}

func (s *Store) Register(ctx context.Context, fields sessionDomain.RegisterFields) (sessionDomain.Session, error) {
	session, err := s.gateway.Register(ctx, fields)
	if err != nil {
		authErr := mapRegisterError(err)
		pkgApp.LogError(ctx, s.logger, "Erro ao cadastrar usuário", authErr, nil)
		return sessionDomain.Session{}, authErr
	}

	if err := s.establish(ctx, session); err != nil {
		return sessionDomain.Session{}, err
	}

	pkgApp.LogInfo(ctx, s.logger, "Usuário cadastrado", map[string]interface{}{"user_id": session.ID})
	s.notify(ctx, sessionDomain.ChangeRegister)
	return session, nil
}

// establish persiste o par de tokens e guarda o perfil em cache. Se só o primeiro token
// for gravado, ele é apagado para não deixar um par incompleto.
func (s *Store) establish(ctx context.Context, session sessionDomain.Session) error {
	if session.Token == "" {
		return domain.NewAuthError(domain.AuthUnknown, errors.New("gateway returned no access token"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.medium.Put(ctx, TokenKey, []byte(session.Token)); err != nil {
		return err
	}
	if err := s.medium.Put(ctx, RefreshTokenKey, []byte(session.RefreshToken)); err != nil {
		if undoErr := s.medium.Delete(ctx, TokenKey); undoErr != nil {
			pkgApp.LogError(ctx, s.logger, "Erro ao descartar token de acesso", undoErr, nil)
		}
		return err
	}

	profile := session.Profile
	s.profile = &profile
	s.profileFor = session.Token
	return nil
}

// CurrentUser devolve nil, sem chamar o gateway, quando não há token. Um token expirado ou
// inválido também resulta em nil; não há renovação automática.
func (s *Store) CurrentUser(ctx context.Context) (*sessionDomain.Profile, error) {
	token, err := s.readScalar(ctx, TokenKey)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}

	profile, err := s.gateway.Me(ctx, token)
	if err != nil {
		var gwErr *sessionDomain.GatewayError
		if errors.As(err, &gwErr) {
			switch {
			case gwErr.Unreachable():
				return nil, domain.NewAuthError(domain.AuthUnreachable, err)
			case gwErr.Status == 401 || gwErr.Status == 403 || gwErr.Status == 404:
				pkgApp.LogDebug(ctx, s.logger, "Token recusado, sessão considerada ausente", map[string]interface{}{"status": gwErr.Status})
				s.resetCache()
				return nil, nil
			}
		}
		return nil, domain.NewAuthError(domain.AuthUnknown, err)
	}

	s.mu.Lock()
	s.profile = &profile
	s.profileFor = token
	s.mu.Unlock()

	return &profile, nil
}

// Refresh troca o refresh token guardado por um novo par. Só acontece quando chamado.
func (s *Store) Refresh(ctx context.Context) (sessionDomain.Session, error) {
	refreshToken, err := s.readScalar(ctx, RefreshTokenKey)
	if err != nil {
		return sessionDomain.Session{}, err
	}
	if refreshToken == "" {
		return sessionDomain.Session{}, domain.NewAuthError(domain.AuthUnauthorized, errors.New("no refresh token held"))
	}

	session, err := s.gateway.Refresh(ctx, refreshToken)
	if err != nil {
		authErr := mapAccountError(err)
		pkgApp.LogError(ctx, s.logger, "Erro ao renovar token", authErr, nil)
		return sessionDomain.Session{}, authErr
	}

	if err := s.establish(ctx, session); err != nil {
		return sessionDomain.Session{}, err
	}

	s.notify(ctx, sessionDomain.ChangeRefresh)
	return session, nil
}

// Logout avisa o gateway sem esperar sucesso e então apaga todo o estado local.
func (s *Store) Logout(ctx context.Context) error {
	token, err := s.readScalar(ctx, TokenKey)
	if err != nil {
		pkgApp.LogError(ctx, s.logger, "Erro ao ler token antes do logout", err, nil)
	}

	if token != "" {
		if err := s.gateway.Logout(ctx, token); err != nil {
			pkgApp.LogDebug(ctx, s.logger, "Falha no logout remoto ignorada", map[string]interface{}{"error": err.Error()})
		}
	}

	if err := s.clearLocal(ctx); err != nil {
		return err
	}

	pkgApp.LogInfo(ctx, s.logger, "Usuário desconectado", nil)
	s.notify(ctx, sessionDomain.ChangeLogout)
	return nil
}

// Clear apaga o estado local sem falar com o gateway.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.clearLocal(ctx); err != nil {
		return err
	}
	s.notify(ctx, sessionDomain.ChangeClear)
	return nil
}

func (s *Store) CompleteProfile(ctx context.Context, fields sessionDomain.CompletionFields) (sessionDomain.Profile, error) {
	return s.updateProfile(ctx, func(token string) (sessionDomain.Profile, error) {
		return s.gateway.CompleteProfile(ctx, token, fields)
	})
}

func (s *Store) UpdateProfile(ctx context.Context, update sessionDomain.ProfileUpdate) (sessionDomain.Profile, error) {
	return s.updateProfile(ctx, func(token string) (sessionDomain.Profile, error) {
		return s.gateway.UpdateProfile(ctx, token, update)
	})
}

func (s *Store) updateProfile(ctx context.Context, call func(token string) (sessionDomain.Profile, error)) (sessionDomain.Profile, error) {
	token, err := s.requireToken(ctx)
	if err != nil {
		return sessionDomain.Profile{}, err
	}

	profile, err := call(token)
	if err != nil {
		authErr := mapAccountError(err)
		pkgApp.LogError(ctx, s.logger, "Erro ao atualizar perfil", authErr, nil)
		return sessionDomain.Profile{}, authErr
	}

	s.mu.Lock()
	s.profile = &profile
	s.profileFor = token
	s.mu.Unlock()

	s.notify(ctx, sessionDomain.ChangeProfile)
	return profile, nil
}

// DeleteAccount remove a conta remota e, em seguida, o estado local.
func (s *Store) DeleteAccount(ctx context.Context) error {
	token, err := s.requireToken(ctx)
	if err != nil {
		return err
	}

	if err := s.gateway.DeleteAccount(ctx, token); err != nil {
		authErr := mapAccountError(err)
		pkgApp.LogError(ctx, s.logger, "Erro ao excluir conta", authErr, nil)
		return authErr
	}

	if err := s.clearLocal(ctx); err != nil {
		return err
	}

	pkgApp.LogInfo(ctx, s.logger, "Conta excluída", nil)
	s.notify(ctx, sessionDomain.ChangeLogout)
	return nil
}

func (s *Store) Subscribe(ctx context.Context) (*sessionDomain.Subscription, error) {
	return s.notifier.Subscribe(ctx)
}

// CurrentOwner responde só a partir do perfil em cache, e apenas se ele pertence ao token
// guardado no momento.
func (s *Store) CurrentOwner(ctx context.Context) (string, string, bool) {
	token, err := s.readScalar(ctx, TokenKey)
	if err != nil || token == "" {
		return "", "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profile == nil || s.profileFor != token || s.profile.ID == "" {
		return "", "", false
	}
	return s.profile.ID, s.profile.DisplayName(), true
}

func (s *Store) requireToken(ctx context.Context) (string, error) {
	token, err := s.readScalar(ctx, TokenKey)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", domain.NewAuthError(domain.AuthUnauthorized, errors.New("no access token held"))
	}
	return token, nil
}

func (s *Store) readScalar(ctx context.Context, key string) (string, error) {
	value, err := s.medium.Get(ctx, key)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(value), nil
}

func (s *Store) clearLocal(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.medium.Clear(ctx); err != nil {
		pkgApp.LogError(ctx, s.logger, "Erro ao limpar estado local", err, nil)
		return err
	}
	s.profile = nil
	s.profileFor = ""
	return nil
}

func (s *Store) resetCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = nil
	s.profileFor = ""
}

func (s *Store) notify(ctx context.Context, kind sessionDomain.ChangeKind) {
	change := sessionDomain.Change{Kind: kind, At: s.clock().UTC()}
	if err := s.notifier.Notify(ctx, change); err != nil {
		pkgApp.LogError(ctx, s.logger, "Erro ao notificar mudança de sessão", err, map[string]interface{}{"kind": string(kind)})
	}
}
