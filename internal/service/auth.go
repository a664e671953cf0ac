package service

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mifthebest/hw05-final/internal/models"
	"github.com/mifthebest/hw05-final/internal/repository"
	"github.com/mifthebest/hw05-final/internal/validation"
)

// RememberTokenTTL is how long a "remember me" cookie keeps a user
// signed in across sessions.
const RememberTokenTTL = 30 * 24 * time.Hour

type AuthService struct {
	userRepo repository.UserRepository
	secret   []byte
}

type SignupInput struct {
	Username string
	Email    string
	Password string
}

func NewAuthService(userRepo repository.UserRepository, secret string) *AuthService {
	return &AuthService{userRepo: userRepo, secret: []byte(secret)}
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if username == "" || email == "" || in.Password == "" {
		return nil, models.NewValidationError("Username, email, and password are required")
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, models.NewValidationError("Invalid email address")
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	if existing, err := s.userRepo.GetByUsername(ctx, username); err == nil && existing != nil {
		return nil, models.NewValidationError("Username is already taken")
	} else if err != nil && !models.IsCode(err, models.ErrCodeNotFound) {
		return nil, err
	}
	if existing, err := s.userRepo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, models.NewValidationError("Email is already registered")
	} else if err != nil && !models.IsCode(err, models.ErrCodeNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hashed),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, models.NewValidationError("Username and password are required")
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if models.IsCode(err, models.ErrCodeNotFound) {
			return nil, models.NewUnauthorizedError("Invalid username or password")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, models.NewUnauthorizedError("Invalid username or password")
	}
	return user, nil
}

// IssueRememberToken signs a long-lived token used by the "remember me"
// cookie to restore the session after the session cookie expires.
func (s *AuthService) IssueRememberToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"username": user.Username,
		"exp":      time.Now().Add(RememberTokenTTL).Unix(),
		"iat":      time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return signed, nil
}

// VerifyRememberToken parses a remember cookie and loads the user it
// names. Expired or tampered tokens come back as unauthorized.
func (s *AuthService) VerifyRememberToken(ctx context.Context, tokenString string) (*models.User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Invalid remember token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid remember token")
	}
	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid remember token")
	}
	return s.userRepo.GetByID(ctx, uint(id))
}
