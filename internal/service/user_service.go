package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/limaJavier/smartclassroom/internal/domain"
	"github.com/limaJavier/smartclassroom/internal/store"
)

const minPasswordLength = 6

var (
	ErrMissingCredentials = errors.New("please fill in all fields")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters long")
	ErrUnknownUser        = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

type NewUser struct {
	Username string      `json:"username" validate:"required,max=64"`
	Name     string      `json:"name" validate:"max=100"`
	Type     domain.Role `json:"type" validate:"required,oneof=admin teacher student"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=6"`
}

// UserUpdate changes only the fields that are set
type UserUpdate struct {
	Name     *string      `json:"name" validate:"omitempty,max=100"`
	Email    *string      `json:"email" validate:"omitempty,email"`
	Type     *domain.Role `json:"type" validate:"omitempty,oneof=admin teacher student"`
	Password *string      `json:"password" validate:"omitempty,min=6"`
}

type UserService interface {
	// Create registers a user. A user with the same username and type is returned unchanged.
	Create(ctx context.Context, actor domain.User, input NewUser) (domain.User, error)
	// Bootstrap creates input as the first admin when no admin exists yet
	Bootstrap(ctx context.Context, input NewUser) (domain.User, bool, error)
	List(ctx context.Context, actor domain.User) ([]domain.User, error)
	Update(ctx context.Context, actor domain.User, id string, update UserUpdate) (domain.User, error)
	Delete(ctx context.Context, actor domain.User, id string) error
	Login(ctx context.Context, username, password string, role domain.Role) (domain.Session, domain.User, error)
	// Session resolves a session id into its user. Expired sessions are removed.
	Session(ctx context.Context, id string) (domain.Session, domain.User, error)
	Logout(ctx context.Context, id string) error
	CheckPermission(user domain.User, required domain.Role) bool
}

type userService struct {
	store      store.Store
	validate   *validator.Validate
	sessionTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewUserService(
	st store.Store,
	validate *validator.Validate,
	sessionTTL time.Duration,
	logger *zap.Logger,
	now func() time.Time,
) UserService {
	return &userService{
		store:      st,
		validate:   validate,
		sessionTTL: sessionTTL,
		logger:     logger,
		now:        now,
	}
}

// persistentId survives user deletion so recreated users keep their id
type persistentId struct {
	Id       string      `json:"id"`
	Username string      `json:"username"`
	Type     domain.Role `json:"type"`
	Email    string      `json:"email"`
}

func (s *userService) Create(ctx context.Context, actor domain.User, input NewUser) (domain.User, error) {
	if !actor.Can(domain.RoleAdmin) {
		return domain.User{}, ErrForbidden
	}
	return s.create(ctx, input)
}

func (s *userService) Bootstrap(ctx context.Context, input NewUser) (domain.User, bool, error) {
	users, err := s.users(ctx)
	if err != nil {
		return domain.User{}, false, err
	}
	if lo.SomeBy(users, func(user domain.User) bool { return user.Type == domain.RoleAdmin }) {
		return domain.User{}, false, nil
	}
	input.Type = domain.RoleAdmin
	user, err := s.create(ctx, input)
	return user, err == nil, err
}

func (s *userService) create(ctx context.Context, input NewUser) (domain.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validate.Struct(input); err != nil {
		return domain.User{}, validationError(err)
	}

	users, err := s.users(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if existing, ok := lo.Find(users, func(user domain.User) bool {
		return user.Username == input.Username && user.Type == input.Type
	}); ok {
		return existing.Public(), nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("cannot hash password: %w", err)
	}

	//** Reuse the id of a previously deleted user
	ids := []persistentId{}
	if _, err := store.GetJSON(ctx, s.store, store.PersistentIdsKey, &ids); err != nil {
		return domain.User{}, err
	}
	id := uuid.NewString()
	if previous, ok := lo.Find(ids, func(entry persistentId) bool {
		return entry.Username == input.Username && entry.Type == input.Type
	}); ok {
		id = previous.Id
	}

	now := s.now().UTC()
	user := domain.User{
		Id:           id,
		Username:     input.Username,
		Name:         lo.Ternary(input.Name != "", input.Name, input.Username),
		Type:         input.Type,
		Email:        input.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.save(ctx, append(users, user)); err != nil {
		return domain.User{}, err
	}

	s.logger.Info("user created", zap.String("id", user.Id), zap.String("type", string(user.Type)))
	return user.Public(), nil
}

func (s *userService) List(ctx context.Context, actor domain.User) ([]domain.User, error) {
	if !actor.Can(domain.RoleAdmin) {
		return nil, ErrForbidden
	}
	users, err := s.users(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(user domain.User, _ int) domain.User { return user.Public() }), nil
}

func (s *userService) Update(ctx context.Context, actor domain.User, id string, update UserUpdate) (domain.User, error) {
	if !actor.Can(domain.RoleAdmin) {
		return domain.User{}, ErrForbidden
	}
	if err := s.validate.Struct(update); err != nil {
		return domain.User{}, validationError(err)
	}

	users, err := s.users(ctx)
	if err != nil {
		return domain.User{}, err
	}
	index := slices.IndexFunc(users, func(user domain.User) bool { return user.Id == id })
	if index == -1 {
		return domain.User{}, ErrUnknownUser
	}

	user := &users[index]
	if update.Name != nil {
		user.Name = strings.TrimSpace(*update.Name)
	}
	if update.Email != nil {
		user.Email = strings.TrimSpace(*update.Email)
	}
	if update.Type != nil {
		user.Type = *update.Type
	}
	if update.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*update.Password), bcrypt.DefaultCost)
		if err != nil {
			return domain.User{}, fmt.Errorf("cannot hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.save(ctx, users); err != nil {
		return domain.User{}, err
	}
	return user.Public(), nil
}

func (s *userService) Delete(ctx context.Context, actor domain.User, id string) error {
	if !actor.Can(domain.RoleAdmin) {
		return ErrForbidden
	}

	users, err := s.users(ctx)
	if err != nil {
		return err
	}
	remaining := lo.Reject(users, func(user domain.User, _ int) bool { return user.Id == id })
	if len(remaining) == len(users) {
		return ErrUnknownUser
	}
	if err := store.SetJSON(ctx, s.store, store.UsersKey, remaining); err != nil {
		return err
	}

	s.logger.Info("user deleted", zap.String("id", id), zap.String("by", actor.Username))
	return nil
}

func (s *userService) Login(ctx context.Context, username, password string, role domain.Role) (domain.Session, domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.Session{}, domain.User{}, ErrMissingCredentials
	}
	if len(password) < minPasswordLength {
		return domain.Session{}, domain.User{}, ErrPasswordTooShort
	}

	users, err := s.users(ctx)
	if err != nil {
		return domain.Session{}, domain.User{}, err
	}
	user, ok := lo.Find(users, func(user domain.User) bool {
		return user.Username == username && user.Type == role
	})
	if !ok {
		return domain.Session{}, domain.User{}, ErrUnknownUser
	}

	if user.PasswordHash == "" {
		s.logger.Warn("login to an account without a password set", zap.String("id", user.Id))
	} else if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.Session{}, domain.User{}, ErrInvalidCredentials
	}

	now := s.now().UTC()
	session := domain.Session{
		Id:        uuid.NewString(),
		UserId:    user.Id,
		LoginTime: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := store.SetJSON(ctx, s.store, store.SessionPrefix+session.Id, session); err != nil {
		return domain.Session{}, domain.User{}, err
	}

	s.logger.Info("user logged in", zap.String("id", user.Id), zap.String("type", string(user.Type)))
	return session, user.Public(), nil
}

func (s *userService) Session(ctx context.Context, id string) (domain.Session, domain.User, error) {
	if id == "" {
		return domain.Session{}, domain.User{}, ErrSessionNotFound
	}

	var session domain.Session
	found, err := store.GetJSON(ctx, s.store, store.SessionPrefix+id, &session)
	if err != nil {
		return domain.Session{}, domain.User{}, err
	}
	if !found {
		return domain.Session{}, domain.User{}, ErrSessionNotFound
	}

	if !s.now().Before(session.ExpiresAt) {
		if err := s.store.Delete(ctx, store.SessionPrefix+id); err != nil {
			s.logger.Warn("cannot remove expired session", zap.Error(err))
		}
		return domain.Session{}, domain.User{}, ErrSessionExpired
	}

	users, err := s.users(ctx)
	if err != nil {
		return domain.Session{}, domain.User{}, err
	}
	user, ok := lo.Find(users, func(user domain.User) bool { return user.Id == session.UserId })
	if !ok {
		return domain.Session{}, domain.User{}, ErrUnknownUser
	}
	return session, user.Public(), nil
}

func (s *userService) Logout(ctx context.Context, id string) error {
	return s.store.Delete(ctx, store.SessionPrefix+id)
}

func (s *userService) CheckPermission(user domain.User, required domain.Role) bool {
	return user.Can(required)
}

func (s *userService) users(ctx context.Context) ([]domain.User, error) {
	users := []domain.User{}
	if _, err := store.GetJSON(ctx, s.store, store.UsersKey, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// save writes the user list and refreshes the persistent id index
func (s *userService) save(ctx context.Context, users []domain.User) error {
	if err := store.SetJSON(ctx, s.store, store.UsersKey, users); err != nil {
		return err
	}

	ids := []persistentId{}
	if _, err := store.GetJSON(ctx, s.store, store.PersistentIdsKey, &ids); err != nil {
		return err
	}
	for _, user := range users {
		entry := persistentId{Id: user.Id, Username: user.Username, Type: user.Type, Email: user.Email}
		index := slices.IndexFunc(ids, func(existing persistentId) bool { return existing.Id == user.Id })
		if index == -1 {
			ids = append(ids, entry)
		} else {
			ids[index] = entry
		}
	}
	return store.SetJSON(ctx, s.store, store.PersistentIdsKey, ids)
}
