package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"socialvibe/internal/domain"
	"socialvibe/internal/infra/metrics"
	"socialvibe/internal/usecase/confirm"
	"socialvibe/internal/usecase/persist"
)

const storeName = "session"

// record хранит сессию вместе с владельцем остального локального состояния.
// Owner переживает сброс сессии после неудачного verify.
type record struct {
	domain.Session
	Owner string `json:"owner,omitempty"`
}

// Store хранит текущую сессию и проводит вход, регистрацию и выход через шлюз.
type Store struct {
	mu        sync.Mutex
	session   domain.Session
	owner     string
	auth      domain.AuthGateway
	storage   domain.StateStorage
	ns        persist.Namespace
	resetters []domain.Resetter
	log       zerolog.Logger
}

// NewStore создаёт хранилище сессии. storage может быть nil, тогда состояние не сохраняется.
func NewStore(auth domain.AuthGateway, storage domain.StateStorage, logger zerolog.Logger) *Store {
	logger = logger.With().Str("component", storeName).Logger()
	return &Store{
		auth:    auth,
		storage: storage,
		ns:      persist.New(storage, domain.NamespaceSession, logger),
		log:     logger,
	}
}

// Register добавляет хранилища, которые сбрасываются при выходе.
func (s *Store) Register(resetters ...domain.Resetter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetters = append(s.resetters, resetters...)
}

// Restore загружает сохранённую сессию. Неполная запись игнорируется.
func (s *Store) Restore(ctx context.Context) error {
	var saved record
	ok, err := s.ns.Load(ctx, &saved)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if !ok {
		return nil
	}
	owner := saved.Owner
	if owner == "" {
		owner = saved.UserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = owner
	if saved.UserID == "" || saved.UserName == "" || !saved.Role.Valid() {
		return nil
	}
	s.session = saved.Session
	return nil
}

// SetUser регистрирует пользователя, если в creds задана роль, иначе выполняет вход.
// Затем сессия целиком заполняется из ответа verify. При любой ошибке сессия не меняется.
func (s *Store) SetUser(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	if creds.Role != nil && !creds.Role.Valid() {
		return domain.Session{}, fmt.Errorf("set user: %w: %q", domain.ErrUnknownRole, string(*creds.Role))
	}
	authenticate := func(ctx context.Context) error {
		if creds.Signup() {
			return s.auth.Signup(ctx, creds)
		}
		return s.auth.Login(ctx, creds.UserName, creds.Password)
	}
	if err := authenticate(ctx); err != nil {
		return domain.Session{}, fmt.Errorf("set user: %w", err)
	}
	user, err := confirm.Fetch(ctx, s.verify, func(user domain.User) {
		s.switchOwner(ctx, user.ID)
		s.apply(user)
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("set user: verify: %w", err)
	}
	s.log.Info().Str("user_id", user.ID).Str("role", user.Role.String()).Bool("signup", creds.Signup()).Msg("session: authenticated")
	return domain.SessionFromUser(user), nil
}

// VerifyUser восстанавливает личность по сессионной cookie.
// ErrUnauthenticated сбрасывает сессию в анонимную; остальные хранилища не трогаются.
func (s *Store) VerifyUser(ctx context.Context) (domain.User, error) {
	user, err := confirm.Fetch(ctx, s.verify, s.apply)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			s.forget()
			return domain.User{}, err
		}
		return domain.User{}, fmt.Errorf("verify user: %w", err)
	}
	return user, nil
}

// GetUser возвращает текущую сессию.
func (s *Store) GetUser() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// ClearUser завершает удалённую сессию, затем одной операцией стирает всё
// сохранённое состояние клиента и сбрасывает зарегистрированные хранилища.
// Если удалённый выход не удался, ничего не меняется.
func (s *Store) ClearUser(ctx context.Context) error {
	if err := s.auth.Logout(ctx); err != nil {
		return fmt.Errorf("clear user: %w", err)
	}

	var clearErr error
	if s.storage != nil {
		if err := s.storage.Clear(ctx); err != nil {
			clearErr = fmt.Errorf("clear user: wipe state: %w", err)
		}
	}

	s.mu.Lock()
	s.session = domain.Anonymous()
	s.owner = ""
	resetters := append([]domain.Resetter(nil), s.resetters...)
	s.mu.Unlock()

	for _, r := range resetters {
		r.Reset()
	}
	metrics.IncStoreMutation(storeName, "clear")
	s.log.Info().Msg("session: cleared")
	return clearErr
}

// Reset сбрасывает сессию в памяти без сетевых вызовов.
func (s *Store) Reset() {
	s.mu.Lock()
	s.session = domain.Anonymous()
	s.mu.Unlock()
}

// verify отклоняет неполную личность, чтобы поля сессии задавались только вместе.
func (s *Store) verify(ctx context.Context) (domain.User, error) {
	user, err := s.auth.Verify(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if user.ID == "" || user.UserName == "" || !user.Role.Valid() {
		return domain.User{}, &domain.RemoteError{Operation: "verify", Message: "incomplete identity", Kind: domain.ErrUnauthenticated}
	}
	return user, nil
}

// switchOwner стирает состояние другого пользователя перед входом под новым.
func (s *Store) switchOwner(ctx context.Context, userID string) {
	s.mu.Lock()
	owner := s.owner
	resetters := append([]domain.Resetter(nil), s.resetters...)
	s.mu.Unlock()
	if owner == "" || owner == userID {
		return
	}
	if s.storage != nil {
		if err := s.storage.Clear(ctx); err != nil {
			s.log.Warn().Err(err).Msg("session: wipe previous user state failed")
		}
	}
	for _, r := range resetters {
		r.Reset()
	}
	metrics.IncStoreMutation(storeName, "switch")
	s.log.Info().Str("from", owner).Str("to", userID).Msg("session: user switched, local state reset")
}

func (s *Store) apply(user domain.User) {
	next := domain.SessionFromUser(user)
	s.mu.Lock()
	s.session = next
	s.owner = next.UserID
	s.ns.Save(record{Session: next, Owner: next.UserID})
	s.mu.Unlock()
	metrics.IncStoreMutation(storeName, "set")
}

// forget делает сессию анонимной, сохраняя владельца локального состояния.
func (s *Store) forget() {
	s.mu.Lock()
	s.session = domain.Anonymous()
	s.ns.Save(record{Owner: s.owner})
	s.mu.Unlock()
	metrics.IncStoreMutation(storeName, "forget")
}
