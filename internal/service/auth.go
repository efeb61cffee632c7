package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/authgate/authgate-go/internal/metrics"
	"github.com/authgate/authgate-go/internal/model"
	"github.com/authgate/authgate-go/internal/repository"
	"github.com/authgate/authgate-go/internal/validator"
)

// Flow names used for metrics and logs.
const (
	FlowRegister = "register"
	FlowLogin    = "login"
)

// AccountRepository is the persistence boundary AuthService depends on.
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) (model.CreatedAccount, error)
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	FindByID(ctx context.Context, id string) (*model.Account, error)
}

// TokenIssuer signs tokens bound to an account id.
type TokenIssuer interface {
	Issue(accountID string) (string, error)
}

// timingPassword is hashed once and verified on lookup misses, so a login for
// an unknown email costs the same as one with a wrong password.
const timingPassword = "authgate-timing-equalizer"

// AuthService handles registration and login.
type AuthService struct {
	repo    AccountRepository
	hasher  model.PasswordHasher
	tokens  TokenIssuer
	metrics *metrics.Metrics
	logger  *slog.Logger

	dummyHash func() (string, error)
}

// NewAuthService creates a new AuthService. metrics may be nil.
func NewAuthService(repo AccountRepository, hasher model.PasswordHasher, tokens TokenIssuer, m *metrics.Metrics, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		repo:    repo,
		hasher:  hasher,
		tokens:  tokens,
		metrics: m,
		logger:  logger,
		dummyHash: sync.OnceValues(func() (string, error) {
			return hasher.Hash(timingPassword)
		}),
	}
}

// Register validates input, stores a new account with a hashed password and
// returns a token for it.
func (s *AuthService) Register(ctx context.Context, input map[string]string) (model.AuthResult, error) {
	result, err := s.register(ctx, input)
	s.metrics.ObserveAuth(FlowRegister, outcome(err))
	return result, err
}

func (s *AuthService) register(ctx context.Context, input map[string]string) (model.AuthResult, error) {
	fields, violations := validator.ValidateRegister(input)
	if len(violations) > 0 {
		return model.AuthResult{}, &ValidationError{Violations: violations}
	}

	account := model.NewAccount(
		fields.Get(validator.FieldEmail),
		fields.Get(validator.FieldFirstName),
		fields.Get(validator.FieldLastName),
		fields.Get(validator.FieldPassword),
	)

	started := time.Now()
	err := account.HashPassword(s.hasher)
	s.metrics.ObserveHash("hash", started)
	if err != nil {
		return model.AuthResult{}, oops.Code("HASH_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		var dup *repository.DuplicateEmailError
		if errors.As(err, &dup) {
			return model.AuthResult{}, err
		}
		return model.AuthResult{}, oops.Code("REGISTER_FAILED").
			With("operation", "create account").
			Wrap(err)
	}

	return s.issue(created.ID, account.Public())
}

// Login checks credentials and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, input map[string]string) (model.AuthResult, error) {
	result, err := s.login(ctx, input)
	s.metrics.ObserveAuth(FlowLogin, outcome(err))
	return result, err
}

func (s *AuthService) login(ctx context.Context, input map[string]string) (model.AuthResult, error) {
	fields, violations := validator.ValidateLogin(input)
	if len(violations) > 0 {
		return model.AuthResult{}, &ValidationError{Violations: violations}
	}
	email := fields.Get(validator.FieldEmail)
	password := fields.Get(validator.FieldPassword)

	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			s.equalizeTiming(password)
			return model.AuthResult{}, ErrCannotFindUser
		}
		return model.AuthResult{}, oops.Code("LOGIN_FAILED").
			With("operation", "find account by email").
			Wrap(err)
	}

	started := time.Now()
	match, err := account.ComparePassword(s.hasher, password)
	s.metrics.ObserveHash("verify", started)
	if err != nil {
		// A stored hash we cannot parse never verifies.
		s.logger.WarnContext(ctx, "stored password hash is malformed", "account_id", account.ID, "error", err)
		return model.AuthResult{}, ErrInvalidPassword
	}
	if !match {
		return model.AuthResult{}, ErrInvalidPassword
	}

	return s.issue(account.ID, account.Public())
}

// Me returns the public view of the account a token was issued for.
func (s *AuthService) Me(ctx context.Context, accountID string) (model.PublicAccount, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		var fieldErr *repository.FieldError
		if errors.Is(err, repository.ErrAccountNotFound) || errors.As(err, &fieldErr) {
			return model.PublicAccount{}, ErrCannotFindUser
		}
		return model.PublicAccount{}, oops.Code("ME_FAILED").
			With("operation", "find account by id").
			Wrap(err)
	}
	return account.Public(), nil
}

func (s *AuthService) issue(accountID string, account model.PublicAccount) (model.AuthResult, error) {
	token, err := s.tokens.Issue(accountID)
	if err != nil {
		return model.AuthResult{}, oops.Code("TOKEN_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}
	return model.AuthResult{Token: token, Account: account}, nil
}

func (s *AuthService) equalizeTiming(password string) {
	hash, err := s.dummyHash()
	if err != nil {
		return
	}
	_, _ = s.hasher.Verify(password, hash)
}

// outcome classifies err into a metrics label.
func outcome(err error) string {
	var (
		validationErr *ValidationError
		dup           *repository.DuplicateEmailError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &validationErr):
		return "invalid"
	case errors.As(err, &dup):
		return "conflict"
	case errors.Is(err, ErrCannotFindUser):
		return "not_found"
	case errors.Is(err, ErrInvalidPassword):
		return "bad_password"
	default:
		return "error"
	}
}
