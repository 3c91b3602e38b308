package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/examprep/examprep-backend/internal/config"
	"github.com/examprep/examprep-backend/internal/model"
	"github.com/examprep/examprep-backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	UserID    int `json:"user_id"`
	StudentID int `json:"student_id,omitempty"`
}

// AuthService handles registration, authentication, JWT issuance and the
// single-device login session in Redis.
type AuthService struct {
	users    *repository.UserRepository
	students *repository.StudentRepository
	cfg      *config.Config
	rdb      *redis.Client
}

// NewAuthService creates a new AuthService.
func NewAuthService(users *repository.UserRepository, students *repository.StudentRepository, cfg *config.Config, rdb *redis.Client) *AuthService {
	return &AuthService{users: users, students: students, cfg: cfg, rdb: rdb}
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        req.Email,
		Username:     req.Username,
		FullName:     req.FullName,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a JWT. A second login while one is
// active is rejected until the first logs out or the token expires.
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (string, *model.User, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := s.CheckPassword(user.PasswordHash, req.Password); err != nil {
		return "", nil, err
	}

	studentID := 0
	if student, err := s.students.GetByUserID(ctx, user.ID); err == nil {
		studentID = student.ID
	} else if !errors.Is(err, repository.ErrNotFound) {
		return "", nil, err
	}

	token, err := s.generateToken(ctx, user.ID, studentID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Logout removes the user's login session from Redis, allowing a new login.
func (s *AuthService) Logout(ctx context.Context, userID int) error {
	return s.rdb.Del(ctx, config.CacheKey.UserLoginKey(userID)).Err()
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// generateToken creates a JWT and registers the login in Redis. Returns an
// error if a login already exists on another device.
func (s *AuthService) generateToken(ctx context.Context, userID, studentID int) (string, error) {
	loginKey := config.CacheKey.UserLoginKey(userID)

	existing, err := s.rdb.Get(ctx, loginKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("check login: %w", err)
	}
	if existing != "" {
		return "", ErrLoginAlreadyActive
	}

	jti := uuid.New().String()
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		UserID:    userID,
		StudentID: studentID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	// Login session expires together with the JWT.
	if err := s.rdb.Set(ctx, loginKey, jti, s.cfg.JWTExpiry).Err(); err != nil {
		return "", fmt.Errorf("store login: %w", err)
	}

	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// ValidateLogin checks that the token's JTI matches the active login in Redis.
func (s *AuthService) ValidateLogin(ctx context.Context, userID int, jti string) error {
	stored, err := s.rdb.Get(ctx, config.CacheKey.UserLoginKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return errors.New("no active login")
		}
		return fmt.Errorf("check login: %w", err)
	}
	if stored != jti {
		return errors.New("login invalidated")
	}
	return nil
}
