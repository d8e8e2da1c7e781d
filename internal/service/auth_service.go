package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"floodwatch/internal/domain"
	"floodwatch/internal/realtime"
	"floodwatch/internal/repository"
	"floodwatch/internal/store"
)

const sessionKeyPrefix = "session:"

// AuthService sign-up, sign-in and session resolution.
type AuthService interface {
	// SignUp registers a resident, or any role when caller is an admin.
	SignUp(ctx context.Context, caller *domain.Profile, req SignUpRequest) (*domain.Profile, error)
	SignIn(ctx context.Context, req SignInRequest) (*SignInResponse, error)
	SignOut(ctx context.Context, token string) error
	// Resolve maps a session token to its profile. Unknown or expired
	// tokens return domain.ErrUnauthenticated.
	Resolve(ctx context.Context, token string) (*domain.Profile, error)
}

type authService struct {
	profiles repository.ProfilesRepository
	sessions store.KV
	ttl      time.Duration
	notify   notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(profiles repository.ProfilesRepository, sessions store.KV, ttl time.Duration, publisher realtime.Publisher, logger *zap.Logger) AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &authService{
		profiles: profiles,
		sessions: sessions,
		ttl:      ttl,
		notify:   notifier{publisher: publisher, logger: logger},
		logger:   logger,
		now:      time.Now,
	}
}

type SignUpRequest struct {
	FullName     string      `json:"full_name"`
	Email        string      `json:"email"`
	Password     string      `json:"password"`
	Phone        string      `json:"phone"`
	Address      string      `json:"address"`
	Role         domain.Role `json:"role"`
	AssignedZone string      `json:"assigned_zone"`
}

type SignInRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	IPAddress string `json:"-"`
}

type SignInResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Profile     *domain.Profile `json:"profile"`
}

// AuthEvent record published on the auth table.
type AuthEvent struct {
	Event  string `json:"event"` // signed_in | signed_out
	UserID string `json:"user_id"`
	Token  string `json:"-"`
}

// HashPassword sha256 hex of lower(email):password.
func HashPassword(email, password string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email)) + ":" + password))
	return hex.EncodeToString(sum[:])
}

func (s *authService) SignUp(ctx context.Context, caller *domain.Profile, req SignUpRequest) (*domain.Profile, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		return nil, validationf("full_name is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, validationf("invalid email %q", req.Email)
	}
	if len(req.Password) < 8 {
		return nil, validationf("password must be at least 8 characters")
	}

	role := domain.RoleResident
	if req.Role != "" && req.Role != domain.RoleResident {
		if caller == nil || caller.Role != domain.RoleMDRRMOAdmin {
			return nil, fmt.Errorf("only admins can create %s accounts: %w", req.Role, domain.ErrForbidden)
		}
		if !req.Role.Valid() {
			return nil, validationf("invalid role %q", req.Role)
		}
		role = req.Role
	}

	now := s.now()
	p := &domain.Profile{
		FullName:     req.FullName,
		Email:        req.Email,
		Role:         role,
		PasswordHash: HashPassword(req.Email, req.Password),
		CreatedAt:    now,
	}
	if req.Phone != "" {
		p.Phone = &req.Phone
	}
	if req.Address != "" {
		p.LastKnownAddress = &req.Address
	}
	if req.AssignedZone != "" {
		p.AssignedZone = &req.AssignedZone
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Profile created", zap.String("user_id", p.UserID), zap.String("role", string(p.Role)))
	s.notify.change(ctx, realtime.TableProfiles, realtime.ChangeInsert, p.UserID, p)
	return p, nil
}

func (s *authService) SignIn(ctx context.Context, req SignInRequest) (*SignInResponse, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		s.logger.Warn("User sign-in failed: missing credentials", zap.String("ip_address", req.IPAddress))
		return nil, domain.ErrInvalidCredential
	}
	p, err := s.profiles.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("User sign-in failed: unknown account",
				zap.String("ip_address", req.IPAddress),
				zap.String("reason", "unknown_account"),
			)
			return nil, domain.ErrInvalidCredential
		}
		return nil, err
	}
	want := HashPassword(req.Email, req.Password)
	if subtle.ConstantTimeCompare([]byte(want), []byte(p.PasswordHash)) != 1 {
		s.logger.Warn("User sign-in failed: wrong password",
			zap.String("ip_address", req.IPAddress),
			zap.String("user_id", p.UserID),
			zap.String("reason", "wrong_password"),
		)
		return nil, domain.ErrInvalidCredential
	}

	token := uuid.New().String()
	if err := s.sessions.Set(ctx, sessionKeyPrefix+token, p.UserID, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	now := s.now()
	if err := s.profiles.Touch(ctx, p.UserID, now); err != nil {
		s.logger.Warn("Failed to touch profile", zap.String("user_id", p.UserID), zap.Error(err))
	}

	s.logger.Info("User signed in", zap.String("user_id", p.UserID), zap.String("role", string(p.Role)))
	s.notify.change(ctx, realtime.TableAuth, realtime.ChangeInsert, p.UserID, AuthEvent{Event: "signed_in", UserID: p.UserID})
	return &SignInResponse{AccessToken: token, ExpiresAt: now.Add(s.ttl), Profile: p}, nil
}

func (s *authService) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrUnauthenticated
	}
	userID, err := s.sessions.Get(ctx, sessionKeyPrefix+token)
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return nil
		}
		return fmt.Errorf("failed to read session: %w", err)
	}
	if err := s.sessions.Del(ctx, sessionKeyPrefix+token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.notify.change(ctx, realtime.TableAuth, realtime.ChangeDelete, userID, AuthEvent{Event: "signed_out", UserID: userID})
	return nil
}

func (s *authService) Resolve(ctx context.Context, token string) (*domain.Profile, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	userID, err := s.sessions.Get(ctx, sessionKeyPrefix+token)
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	return p, nil
}
