package auth

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/aristath/folioplan/internal/domain"
	"github.com/aristath/folioplan/internal/events"
)

// Service handles registration, login and token verification
type Service struct {
	repo       *Repository
	events     *events.Manager
	validate   *validator.Validate
	jwtSecret  []byte
	tokenTTL   time.Duration
	bcryptCost int
	log        zerolog.Logger
}

// ServiceConfig holds auth service dependencies
type ServiceConfig struct {
	Repo       *Repository
	Events     *events.Manager
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
	Log        zerolog.Logger
}

// NewService creates a new auth service
func NewService(cfg ServiceConfig) *Service {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       cfg.Repo,
		events:     cfg.Events,
		validate:   validator.New(),
		jwtSecret:  []byte(cfg.JWTSecret),
		tokenTTL:   cfg.TokenTTL,
		bcryptCost: cost,
		log:        cfg.Log.With().Str("service", "auth").Logger(),
	}
}

// RegisterInput is the payload for account creation
type RegisterInput struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8,max=128"`
	BaseCurrency string `json:"base_currency" validate:"omitempty,len=3,alpha"`
}

// Register creates a new account
func (s *Service) Register(input RegisterInput) (*User, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, domain.NewValidation("invalid registration payload: %v", err)
	}

	existing, err := s.repo.GetByEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.NewConflict("an account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	baseCurrency := input.BaseCurrency
	if baseCurrency == "" {
		baseCurrency = "EUR"
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        input.Email,
		PasswordHash: string(hash),
		BaseCurrency: baseCurrency,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}

	if err := s.repo.Create(user); err != nil {
		return nil, err
	}

	s.events.Emit(events.UserRegistered, "auth", "", map[string]interface{}{
		"user_id": user.ID,
	})

	return user, nil
}

// Login verifies credentials and issues a signed token
func (s *Service) Login(email, password string) (string, *User, error) {
	user, err := s.repo.GetByEmail(email)
	if err != nil {
		return "", nil, err
	}
	if user == nil || !user.IsActive {
		return "", nil, domain.NewUnauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.NewUnauthorized("invalid credentials")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return token, user, nil
}

// VerifyToken validates a bearer token and returns the user id it carries
func (s *Service) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", domain.NewUnauthorized("invalid or expired token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", domain.NewUnauthorized("invalid token claims")
	}

	return claims.Subject, nil
}
