// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/gatehouse/pkg/errutil"
)

// MinPasswordLength is the minimum password length in characters.
const MinPasswordLength = 6

// dummyPassword is hashed once per Service so that logins for unknown emails
// pay the same verification cost as logins for real ones.
const dummyPassword = "gatehouse-timing-equalizer" //nolint:gosec // not a credential

// Outcome labels reported to an Observer.
const (
	OutcomeSuccess            = "success"
	OutcomeValidation         = "validation"
	OutcomeAlreadyExists      = "already_exists"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeStorageFailure     = "storage_failure"
	OutcomeError              = "error"
)

// Observer receives the outcome of each registration and login attempt.
type Observer interface {
	ObserveRegister(outcome string)
	ObserveLogin(outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveRegister(string) {}
func (nopObserver) ObserveLogin(string)    {}

// Service provides registration and login.
type Service struct {
	users     UserStore
	hasher    PasswordHasher
	logger    *slog.Logger
	observer  Observer
	tracer    trace.Tracer
	dummyHash string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for operational events.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver sets the outcome observer.
func WithObserver(observer Observer) ServiceOption {
	return func(s *Service) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// NewService creates a new Service.
func NewService(users UserStore, hasher PasswordHasher, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("user store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}

	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, oops.With("operation", "prepare dummy hash").Wrap(err)
	}

	s := &Service{
		users:     users,
		hasher:    hasher,
		logger:    slog.Default(),
		observer:  nopObserver{},
		tracer:    otel.Tracer("github.com/holomush/gatehouse/internal/auth"),
		dummyHash: dummyHash,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a user. Inputs are trimmed before validation.
func (s *Service) Register(ctx context.Context, name, email, password string) (profile Profile, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.Register")
	defer func() { s.finish(span, err, s.observer.ObserveRegister) }()

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)

	if name == "" || email == "" || password == "" {
		return Profile{}, validationError(FieldMissing)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return Profile{}, validationError(FieldPasswordTooShort)
	}

	_, err = s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return Profile{}, AlreadyExistsError(email)
	case !errors.Is(err, ErrNotFound):
		return Profile{}, StorageFailure("find user by email", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return Profile{}, oops.With("operation", "hash password").Wrap(err)
	}

	user, err := s.users.Create(ctx, name, email, hash)
	if errors.Is(err, ErrAlreadyExists) {
		// Lost a race with a concurrent registration for the same email.
		return Profile{}, oops.With("operation", "create user").Wrap(err)
	}
	if err != nil {
		return Profile{}, StorageFailure("create user", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return user.Profile(), nil
}

// Login checks email and password. Unknown emails and wrong passwords fail
// with the same error. The caller is responsible for issuing a session.
func (s *Service) Login(ctx context.Context, email, password string) (profile Profile, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.Login")
	defer func() { s.finish(span, err, s.observer.ObserveLogin) }()

	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)

	if email == "" || password == "" {
		return Profile{}, validationError(FieldMissing)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return Profile{}, StorageFailure("find user by email", err)
		}
		s.hasher.Verify(password, s.dummyHash)
		return Profile{}, errInvalidCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return Profile{}, errInvalidCredentials
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	s.logger.DebugContext(ctx, "user logged in", "user_id", user.ID.String())
	return user.Profile(), nil
}

// Profile returns the current profile for email.
func (s *Service) Profile(ctx context.Context, email string) (Profile, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return Profile{}, err
	}
	if err != nil {
		return Profile{}, StorageFailure("find user by email", err)
	}
	return user.Profile(), nil
}

// upgradeHash replaces an outdated hash after a successful login. Failures
// are logged and do not affect the login.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		errutil.LogError(s.logger, "password rehash failed", err, "user_id", user.ID.String())
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		errutil.LogError(s.logger, "password rehash not stored", err, "user_id", user.ID.String())
		return
	}
	s.logger.InfoContext(ctx, "password hash upgraded", "user_id", user.ID.String())
}

func (s *Service) finish(span trace.Span, err error, observe func(string)) {
	outcome := Outcome(err)
	observe(outcome)
	span.SetAttributes(attribute.String("auth.outcome", outcome))
	if outcome == OutcomeStorageFailure || outcome == OutcomeError {
		span.SetStatus(codes.Error, outcome)
	}
	span.End()
}

// Outcome classifies err into one of the Outcome* labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrInvalidCredentials):
		return OutcomeInvalidCredentials
	case errors.Is(err, ErrAlreadyExists):
		return OutcomeAlreadyExists
	case IsStorageFailure(err):
		return OutcomeStorageFailure
	}
	if _, ok := ValidationField(err); ok {
		return OutcomeValidation
	}
	return OutcomeError
}
