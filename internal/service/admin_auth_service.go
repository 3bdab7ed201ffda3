package service

import (
	"context"
	"errors"
	"strings"

	"carwash/internal/auth"
	"carwash/internal/entities"
	apperrors "carwash/internal/errors"
	"carwash/internal/repository"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*entities.LoginResponse, error)
	CreateUser(ctx context.Context, actor Actor, req entities.CreateUserRequest) (*repository.User, error)
	EnsureAdmin(ctx context.Context, email, password string) error
}

type authService struct {
	users  repository.UserStore
	tokens *auth.TokenService
}

func NewAuthService(users repository.UserStore, tokens *auth.TokenService) AuthService {
	return &authService{users: users, tokens: tokens}
}

var errInvalidCredentials = apperrors.ErrUnauthorized.Withf("invalid credentials")

func (s *authService) Login(ctx context.Context, email, password string) (*entities.LoginResponse, error) {
	if email == "" || password == "" {
		return nil, apperrors.ErrInvalidInput.Withf("email and password are required")
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.WithField("user_id", user.ID).Info("failed login")
		return nil, errInvalidCredentials
	}

	token, exp, err := s.tokens.GenerateToken(user.ID, user.Email, user.IsCarwashAdmin)
	if err != nil {
		return nil, err
	}
	return &entities.LoginResponse{Token: token, ExpiresAt: exp.Unix()}, nil
}

func (s *authService) CreateUser(ctx context.Context, actor Actor, req entities.CreateUserRequest) (*repository.User, error) {
	if !actor.Admin {
		return nil, apperrors.ErrForbidden.Withf("only carwash admins can create users")
	}
	if !strings.Contains(req.Email, "@") {
		return nil, apperrors.ErrInvalidInput.Withf("invalid email format")
	}
	if len(req.Password) < 8 {
		return nil, apperrors.ErrInvalidInput.Withf("password must be at least 8 characters long")
	}
	switch req.NotificationChannel {
	case "", ChannelEmail, ChannelSMS, ChannelNone:
	default:
		return nil, apperrors.ErrInvalidInput.Withf("unknown notification channel %q", req.NotificationChannel)
	}
	if req.NotificationChannel == ChannelSMS && req.Phone == "" {
		return nil, apperrors.ErrInvalidInput.Withf("a phone number is required for sms notifications")
	}

	u := &repository.User{
		Email:               req.Email,
		FullName:            req.FullName,
		Phone:               req.Phone,
		Company:             req.Company,
		IsCarwashAdmin:      req.IsCarwashAdmin,
		NotificationChannel: req.NotificationChannel,
	}
	if err := s.users.CreateUser(ctx, u, req.Password); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"user_id": u.ID, "created_by": actor.UserID}).Info("user created")
	return u, nil
}

// EnsureAdmin creates a carwash admin with the given credentials unless the email is already taken.
func (s *authService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	u := &repository.User{Email: email, FullName: "Carwash admin", IsCarwashAdmin: true, NotificationChannel: ChannelNone}
	if err := s.users.CreateUser(ctx, u, password); err != nil {
		return err
	}
	log.WithField("email", u.Email).Info("bootstrap admin created")
	return nil
}
