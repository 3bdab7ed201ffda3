package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

const RoleCarwashAdmin = "carwash_admin"

// Claims is what a verified token tells about its bearer.
type Claims struct {
	UserID  string
	Email   string
	IsAdmin bool
	Exp     int64
}

type TokenService struct {
	secret   []byte
	tokenExp time.Duration
}

func NewTokenService(secret string, exp time.Duration) *TokenService {
	if exp <= 0 {
		exp = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), tokenExp: exp}
}

// GenerateToken signs an HS256 token for the user. It returns the token and its expiry.
func (s *TokenService) GenerateToken(userID, email string, isAdmin bool) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.tokenExp)
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"exp":     exp.Unix(),
		"iat":     now.Unix(),
	}
	if isAdmin {
		claims["role"] = RoleCarwashAdmin
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, exp, nil
}

func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, ErrInvalidToken
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)

	return &Claims{
		UserID:  userID,
		Email:   email,
		IsAdmin: role == RoleCarwashAdmin,
		Exp:     int64(exp),
	}, nil
}
