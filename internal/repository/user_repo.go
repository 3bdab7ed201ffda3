package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"carwash/internal/db"
	apperrors "carwash/internal/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = `id, email, full_name, phone, company, password_hash, is_carwash_admin, notification_channel, created_at`

type UserRepository struct {
	DB *sqlx.DB
}

func NewUserRepository(conn *sqlx.DB) *UserRepository {
	return &UserRepository{DB: conn}
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) getUser(ctx context.Context, query string, arg any) (*User, error) {
	var row db.User
	if err := r.DB.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound.Withf("user not found")
		}
		return nil, fmt.Errorf("error querying user: %w", err)
	}
	return userFromRow(row), nil
}

func (r *UserRepository) CreateUser(ctx context.Context, u *User, password string) error {
	if err := prepareUser(u, password); err != nil {
		return err
	}
	row := db.User{
		ID:                  u.ID,
		Email:               u.Email,
		FullName:            u.FullName,
		Phone:               nullString(u.Phone),
		Company:             nullString(u.Company),
		PasswordHash:        u.PasswordHash,
		IsCarwashAdmin:      u.IsCarwashAdmin,
		NotificationChannel: u.NotificationChannel,
		CreatedAt:           u.CreatedAt,
	}
	_, err := r.DB.NamedExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (
		:id, :email, :full_name, :phone, :company, :password_hash, :is_carwash_admin, :notification_channel, :created_at)`, row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperrors.ErrConflict.Withf("user %s already exists", u.Email)
		}
		return fmt.Errorf("error inserting user: %w", err)
	}
	return nil
}

// prepareUser fills defaults and replaces the password with its bcrypt hash.
func prepareUser(u *User, password string) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Email == "" || password == "" {
		return apperrors.ErrInvalidInput.Withf("email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	u.PasswordHash = string(hash)
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	if u.NotificationChannel == "" {
		u.NotificationChannel = "email"
	}
	return nil
}
