package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/smallbiznis/sorteos/internal/auth/domain"
	"github.com/smallbiznis/sorteos/internal/auth/password"
	"github.com/smallbiznis/sorteos/internal/clock"
	"github.com/smallbiznis/sorteos/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultTokenTTL   = 12 * time.Hour
	minPasswordLength = 8
	tokenIssuer       = "sorteos"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Config config.Config
	Clock  clock.Clock
	GenID  *snowflake.Node
	Repo   domain.Repository
}

type Service struct {
	log    *zap.Logger
	repo   domain.Repository
	clock  clock.Clock
	genID  *snowflake.Node
	secret []byte
	ttl    time.Duration
}

type claims struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	jwt.RegisteredClaims
}

func New(p Params) domain.Service {
	ttl := p.Config.AuthTokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Service{
		log:    p.Log.Named("auth.service"),
		repo:   p.Repo,
		clock:  p.Clock,
		genID:  p.GenID,
		secret: []byte(strings.TrimSpace(p.Config.AuthJWTSecret)),
		ttl:    ttl,
	}
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.AdminUser, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if len(strings.TrimSpace(req.Password)) < minPasswordLength {
		return nil, domain.ErrWeakPassword
	}
	role := req.Role
	if role == "" {
		role = domain.RoleStaff
	}
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	user := &domain.AdminUser{
		ID:           s.genID.Generate(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	if len(s.secret) == 0 {
		return nil, domain.ErrNotConfigured
	}
	email, err := normalizeEmail(req.Email)
	if err != nil || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(req.Password, user.PasswordHash) {
		s.log.Info("login rejected", zap.String("email", email))
		return nil, domain.ErrInvalidCredentials
	}

	now := s.clock.Now().UTC()
	expiresAt := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	raw, err := token.SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	s.log.Info("admin logged in", zap.String("user_id", user.ID.String()))
	return &domain.LoginResult{User: user, RawToken: raw, ExpiresAt: expiresAt}, nil
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Session, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" || len(s.secret) == 0 {
		return nil, domain.ErrInvalidSession
	}

	parser := jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}
	var c claims
	if _, err := parser.ParseWithClaims(rawToken, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}); err != nil {
		return nil, domain.ErrInvalidSession
	}
	if c.Issuer != tokenIssuer || c.ExpiresAt == nil {
		return nil, domain.ErrInvalidSession
	}
	if !s.clock.Now().Before(c.ExpiresAt.Time) {
		return nil, domain.ErrSessionExpired
	}

	userID, err := snowflake.ParseString(c.Subject)
	if err != nil || userID == 0 {
		return nil, domain.ErrInvalidSession
	}
	if !c.Role.Valid() {
		return nil, domain.ErrInvalidSession
	}

	return &domain.Session{
		UserID:    userID,
		Email:     c.Email,
		Role:      c.Role,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

func (s *Service) CurrentUser(ctx context.Context, id snowflake.ID) (*domain.AdminUser, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) EnsureAdmin(ctx context.Context, email, pass string) error {
	if strings.TrimSpace(email) == "" || pass == "" {
		return nil
	}
	_, err := s.CreateUser(ctx, domain.CreateUserRequest{
		Email:    email,
		Password: pass,
		Role:     domain.RoleAdmin,
	})
	switch {
	case err == nil:
		s.log.Info("bootstrap admin created", zap.String("email", strings.ToLower(strings.TrimSpace(email))))
		return nil
	case errors.Is(err, domain.ErrUserExists):
		return nil
	default:
		return err
	}
}

func normalizeEmail(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return "", domain.ErrInvalidCredentials
	}
	return value, nil
}
