package service

import (
	"context"
	"errors"
	"time"

	"athlos/cert-portal/internal/domain"
	"athlos/cert-portal/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// --- Error Definitions ---
var (
	ErrAdminAlreadyExists   = errors.New("admin with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed: invalid email or password")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
)

// AuthService handles admin account registration and login for the
// seeding/debug surface.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*domain.AdminUser, error)
	Login(ctx context.Context, email, password string) (token string, admin *domain.AdminUser, err error)
}

type authService struct {
	adminRepo     repository.AdminRepository
	jwtSecret     string
	jwtExpiration time.Duration
}

// NewAuthService creates a new instance of authService.
func NewAuthService(adminRepo repository.AdminRepository, jwtSecret string, jwtExpiration time.Duration) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour
	}
	return &authService{
		adminRepo:     adminRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

// Register creates a new admin account.
func (s *authService) Register(ctx context.Context, name, email, password string) (*domain.AdminUser, error) {
	if name == "" || email == "" || password == "" {
		return nil, errors.New("name, email and password cannot be empty")
	}

	_, err := s.adminRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrAdminAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrHashingFailed
	}

	admin := &domain.AdminUser{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	adminID, err := s.adminRepo.Create(ctx, admin)
	if err != nil {
		return nil, err
	}
	admin.ID = adminID

	return admin, nil
}

// Login verifies credentials and returns a signed JWT.
func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.AdminUser, error) {
	if email == "" || password == "" {
		return "", nil, ErrAuthenticationFailed
	}

	admin, err := s.adminRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrAuthenticationFailed
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrAuthenticationFailed
	}

	token, err := s.generateJWT(admin)
	if err != nil {
		return "", nil, ErrTokenGeneration
	}

	return token, admin, nil
}

func (s *authService) generateJWT(admin *domain.AdminUser) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"uid": admin.ID.Hex(),
		"sub": admin.Email,
		"iat": now.Unix(),
		"exp": now.Add(s.jwtExpiration).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
