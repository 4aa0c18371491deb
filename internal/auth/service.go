package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"school-service/internal/apperr"
	"school-service/internal/metrics"
	"school-service/internal/model"
	"school-service/internal/store"
)

// Service is the credential session manager: admin-user creation, login,
// logout and access-token refresh.
type Service struct {
	store         store.Store
	tokens        *Tokens
	superAdminKey string
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

func NewService(st store.Store, tokens *Tokens, superAdminKey string, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:         st,
		tokens:        tokens,
		superAdminKey: superAdminKey,
		logger:        logger,
		metrics:       m,
	}
}

// CreateSuperAdmin bootstraps a SuperAdmin. The shared superadmin key is
// the only gate; there is no credential requirement so the very first
// admin can be created.
func (s *Service) CreateSuperAdmin(ctx context.Context, req CreateSuperAdminRequest) (*model.AdminUser, *TokenPair, error) {
	if req.SuperadminKey != s.superAdminKey {
		return nil, nil, apperr.Forbidden("Forbidden: Invalid SuperAdmin key.")
	}

	if _, err := s.store.GetAdminUserByEmail(ctx, req.Email); err == nil {
		return nil, nil, apperr.Conflict("Conflict: User already exists.")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, nil, apperr.Internal("Internal Server Error: Could not create SuperAdmin.", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, apperr.Internal("Internal Server Error: Could not create SuperAdmin.", err)
	}

	user := &model.AdminUser{
		ID:       uuid.NewString(),
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashed),
		Role:     model.RoleSuperAdmin,
		SchoolID: nil,
	}
	if err := s.store.CreateAdminUser(ctx, user); err != nil {
		return nil, nil, apperr.Internal("Internal Server Error: Could not create SuperAdmin.", err)
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// CreateSchoolAdmin creates a SchoolAdmin bound to an existing school.
// The user insert and the append to the school's admin set succeed or
// fail together.
func (s *Service) CreateSchoolAdmin(ctx context.Context, req CreateSchoolAdminRequest) (*model.AdminUser, *TokenPair, error) {
	if _, err := s.store.GetAdminUserByEmail(ctx, req.Email); err == nil {
		return nil, nil, apperr.Conflict("Conflict: User already exists.")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, nil, apperr.Internal("Internal Server Error: Could not create SchoolAdmin.", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, apperr.Internal("Internal Server Error: Could not create SchoolAdmin.", err)
	}

	var user *model.AdminUser
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		school, err := tx.GetSchoolByName(ctx, req.SchoolName)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("School not found.")
			}
			return apperr.Internal("Internal Server Error: Could not create SchoolAdmin.", err)
		}

		user = &model.AdminUser{
			ID:       uuid.NewString(),
			Username: req.Username,
			Email:    req.Email,
			Password: string(hashed),
			Role:     model.RoleSchoolAdmin,
			SchoolID: &school.ID,
		}
		if err := tx.CreateAdminUser(ctx, user); err != nil {
			return apperr.Internal("Internal Server Error: Could not create SchoolAdmin.", err)
		}

		// A freshly minted id cannot already be in the set; the email
		// uniqueness check above is what blocks duplicate admins.
		school.SchoolAdmins = append(school.SchoolAdmins, user.ID)
		if err := tx.UpdateSchool(ctx, school); err != nil {
			return apperr.Internal("Internal Server Error: Could not add school admin.", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login verifies the password and issues a fresh session.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*model.AdminUser, *TokenPair, error) {
	user, err := s.store.GetAdminUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, apperr.NotFound("User not found.")
		}
		return nil, nil, apperr.Internal("Internal Server Error: Could not log in.", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, nil, apperr.Unauthorized("Invalid credentials.")
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.metrics.RecordLogin(ctx)
	s.logger.Info("user logged in", "email", req.Email, "role", user.Role)
	return user, pair, nil
}

// Logout deletes the matching refresh-token row. A token that was never
// issued, or was already rotated out, reports NotFound.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return apperr.Unauthorized("Invalid refresh token.")
	}

	if err := s.store.DeleteRefreshToken(ctx, claims.UserID, refreshToken); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Token not found or already removed.")
		}
		return apperr.Internal("Internal Server Error: Could not log out.", err)
	}
	return nil
}

// RefreshAccess mints a new access credential from a live refresh token.
// The refresh token itself is not rotated. Claims are rebuilt from the
// user record so a role or tenant change is picked up.
func (s *Service) RefreshAccess(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", apperr.Forbidden("Invalid or Expired Token.")
	}

	// A stale token from before a re-login finds no row here: issuing a
	// new session deletes every prior row for the user.
	if _, err := s.store.GetRefreshToken(ctx, claims.UserID, refreshToken); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apperr.Forbidden("Refresh token is invalid or has been removed.")
		}
		return "", apperr.Internal("Internal Server Error: Could not refresh access token.", err)
	}

	user, err := s.store.GetAdminUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apperr.Forbidden("Refresh token is invalid or has been removed.")
		}
		return "", apperr.Internal("Internal Server Error: Could not refresh access token.", err)
	}

	accessToken, err := s.tokens.NewAccessToken(user)
	if err != nil {
		return "", apperr.Internal("Internal Server Error: Could not refresh access token.", err)
	}
	return accessToken, nil
}

// issueTokenPair mints both credentials and stores the refresh token.
// Deleting prior rows and inserting the new one happen in one unit of
// work, so concurrent logins cannot leave two live tokens for a user.
func (s *Service) issueTokenPair(ctx context.Context, user *model.AdminUser) (*TokenPair, error) {
	accessToken, err := s.tokens.NewAccessToken(user)
	if err != nil {
		return nil, apperr.Internal("Internal Server Error: Could not issue tokens.", err)
	}
	refreshToken, err := s.tokens.NewRefreshToken(user.ID)
	if err != nil {
		return nil, apperr.Internal("Internal Server Error: Could not issue tokens.", err)
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.DeleteRefreshTokensByUser(ctx, user.ID); err != nil {
			return err
		}
		return tx.CreateRefreshToken(ctx, &model.RefreshToken{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			Token:     refreshToken,
			CreatedAt: time.Now(),
		})
	})
	if err != nil {
		return nil, apperr.Internal("Internal Server Error: Could not store refresh token.", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
