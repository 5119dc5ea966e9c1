package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/occasionbuddy/occasionbuddy-backend/internal/users"
	pkgAuth "github.com/occasionbuddy/occasionbuddy-backend/pkg/auth"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/auth/session"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	pkgerrors "github.com/occasionbuddy/occasionbuddy-backend/pkg/errors"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service is the identity gateway used by the auth controllers.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	AdminLogin(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Logout(ctx context.Context, accessID string) error
	Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error)
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error)
	Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies of the auth service.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	// Logger is optional; it only reports failed hash upgrades.
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	users       userRepository
	session     sessionManager
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		users:       params.UserRepo,
		session:     params.SessionManager,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
		now:         now,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := users.NormalizeEmail(req.Email)
	mobile := strings.TrimSpace(req.MobileNo)
	if name == "" || email == "" || mobile == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, email and mobileNo are required")
	}
	if err := security.CheckPassword(req.Password, req.ConfirmPassword); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Name:         name,
		Email:        email,
		MobileNo:     mobile,
		PasswordHash: hash,
		Role:         enums.UserRoleUser,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	now, err := s.recordLogin(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user, now)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	now, err := s.recordLogin(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user, now)
}

// AdminLogin authenticates like Login and then requires the stored role to be admin.
func (s *service) AdminLogin(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if user.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}
	now, err := s.recordLogin(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user, now)
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// Refresh accepts an expired access token, rotates its refresh session and mints a new pair.
// The role in the new token is re-read from the user record.
func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error) {
	if strings.TrimSpace(req.AccessToken) == "" || strings.TrimSpace(req.RefreshToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "access and refresh tokens are required")
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, req.AccessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}

	newAccessID, newRefresh, err := s.session.Rotate(ctx, claims.ID, claims.UserID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		_ = s.session.Revoke(ctx, newAccessID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account no longer exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	now := s.now().UTC()
	access, expiresAt, err := s.mint(user, newAccessID, now)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken:     access,
		RefreshToken:    newRefresh,
		AccessExpiresAt: expiresAt,
		User:            users.FromModel(user),
	}, nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	normalized := users.NormalizeEmail(email)
	if normalized == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	s.upgradeHash(ctx, user, password)
	return user, nil
}

// upgradeHash re-encodes the password under the current Argon2 settings.
// Failures leave the old, still valid hash in place.
func (s *service) upgradeHash(ctx context.Context, user *models.User, password string) {
	if !security.NeedsRehash(user.PasswordHash, s.passwordCfg) {
		return
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "auth.rehash_failed")
		}
		return
	}
	user.PasswordHash = hash
}

func (s *service) recordLogin(ctx context.Context, user *models.User) (time.Time, error) {
	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last login")
	}
	user.LastLoginAt = &now
	return now, nil
}

func (s *service) issueTokens(ctx context.Context, user *models.User, now time.Time) (*TokenResponse, error) {
	accessID := session.NewAccessID()
	access, expiresAt, err := s.mint(user, accessID, now)
	if err != nil {
		return nil, err
	}
	refresh, err := s.session.Generate(ctx, accessID, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return &TokenResponse{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresAt: expiresAt,
		User:            users.FromModel(user),
	}, nil
}

func (s *service) mint(user *models.User, accessID string, now time.Time) (string, time.Time, error) {
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return "", time.Time{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, now.Add(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute), nil
}
