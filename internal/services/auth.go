package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"quizzarium-backend/internal/apperrors"
	"quizzarium-backend/internal/models"
	"quizzarium-backend/internal/storage"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenTTL = 24 * time.Hour

// Claims is the JWT payload handed to clients.
type Claims struct {
	UserID  uint   `json:"user_id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Avatar  string `json:"avatar"`
	Blocked bool   `json:"blocked"`
	jwt.RegisteredClaims
}

type RegisterInput struct {
	Email    string `validate:"required,email,max=255"`
	Password string `validate:"required,min=6,max=72"`
	Avatar   *storage.File
}

type AuthService struct {
	db         *gorm.DB
	store      storage.Store
	jwtSecret  []byte
	adminEmail string
}

func NewAuthService(db *gorm.DB, store storage.Store, jwtSecret, adminEmail string) *AuthService {
	return &AuthService{
		db:         db,
		store:      store,
		jwtSecret:  []byte(jwtSecret),
		adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)),
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (string, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateInput(in); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	role := models.RoleClient
	if s.adminEmail != "" && in.Email == s.adminEmail {
		role = models.RoleAdmin
	}

	user := models.User{Email: in.Email, PasswordHash: string(hash), Role: role}
	batch := storage.NewBatch(s.store)
	err = withTx(ctx, s.db, batch, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: email already registered", apperrors.ErrConflict)
		}
		avatar, err := batch.Put(ctx, in.Avatar)
		if err != nil {
			return err
		}
		user.Avatar = avatar
		return tx.Create(&user).Error
	})
	if err != nil {
		return "", err
	}

	return s.GenerateToken(&user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	var user models.User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	}
	if user.Blocked {
		return "", fmt.Errorf("%w: user is blocked", apperrors.ErrForbidden)
	}

	return s.GenerateToken(&user)
}

// Refresh issues a new token from the current database row so role, avatar
// and block changes reach the client.
func (s *AuthService) Refresh(ctx context.Context, userID uint) (string, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return "", notFound(err, "user %d", userID)
	}
	if user.Blocked {
		return "", fmt.Errorf("%w: user is blocked", apperrors.ErrForbidden)
	}
	return s.GenerateToken(&user)
}

func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:  user.ID,
		Email:   user.Email,
		Role:    user.Role,
		Avatar:  user.Avatar,
		Blocked: user.Blocked,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", apperrors.ErrUnauthorized)
	}
	if claims.UserID == 0 {
		return nil, fmt.Errorf("%w: invalid user_id in token", apperrors.ErrUnauthorized)
	}
	return claims, nil
}

// EnsureAdmin creates the configured admin account, or promotes an existing
// user with that email.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		if user.Role == models.RoleAdmin {
			return nil
		}
		log.Printf("[AuthService] promoting %s to admin", email)
		return s.db.WithContext(ctx).Model(&user).Update("role", models.RoleAdmin).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	log.Printf("[AuthService] seeding admin %s", email)
	return s.db.WithContext(ctx).Create(&models.User{Email: email, PasswordHash: string(hash), Role: models.RoleAdmin}).Error
}
