package user

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"pairchat/internal/auth"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Store is what the service needs from persistence.
type Store interface {
	CreateUser(ctx context.Context, u *User) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListExcept(ctx context.Context, userID string) ([]Person, error)
}

// Session is an issued credential together with the identity it encodes.
type Session struct {
	Token    string
	Identity auth.Identity
}

type Service struct {
	store    Store
	creds    *auth.Service
	validate *validator.Validate
}

func NewService(store Store, creds *auth.Service) *Service {
	return &Service{
		store:    store,
		creds:    creds,
		validate: validator.New(),
	}
}

func (s *Service) Register(ctx context.Context, req *CredentialsRequest) (*Session, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUserByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u, err := s.store.CreateUser(ctx, &User{
		Username: req.Username,
		Password: string(hashed),
	})
	if err != nil {
		return nil, err
	}

	return s.newSession(u)
}

func (s *Service) Login(ctx context.Context, req *CredentialsRequest) (*Session, error) {
	u, err := s.store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.newSession(u)
}

func (s *Service) ListPeople(ctx context.Context, userID string) ([]Person, error) {
	return s.store.ListExcept(ctx, userID)
}

func (s *Service) newSession(u *User) (*Session, error) {
	identity := auth.Identity{UserID: u.ID, Username: u.Username}
	token, err := s.creds.Issue(identity)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Identity: identity}, nil
}
