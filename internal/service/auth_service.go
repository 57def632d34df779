package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"videotube/internal/asset"
	"videotube/internal/metrics"
	"videotube/internal/model"
	"videotube/pkg/apierror"
)

const (
	eventRegister       = "register"
	eventLogin          = "login"
	eventLogout         = "logout"
	eventRefresh        = "refresh"
	eventChangePassword = "change_password"
	eventAuthenticate   = "authenticate"
)

var (
	errUnauthorizedRequest = apierror.Unauthorized("unauthorized request")
	errInvalidRefreshToken = apierror.Unauthorized("invalid refresh token")
	errRefreshTokenReused  = apierror.Unauthorized("refresh token is expired or already used")
)

type RegisterInput struct {
	Username string
	Email    string
	Fullname string
	Password string
	Avatar   *asset.Upload
	Cover    *asset.Upload
}

type LoginInput struct {
	Username string
	Email    string
	Password string
}

// AuthService runs the session lifecycle. A user holds at most one valid
// refresh token; login overwrites it, refresh rotates it, logout clears it.
type AuthService struct {
	users      UserStore
	tokens     *TokenService
	assets     asset.Store
	bcryptCost int
	metrics    *metrics.Recorder
	logger     *slog.Logger
	now        func() time.Time
}

func NewAuthService(users UserStore, tokens *TokenService, assets asset.Store, bcryptCost int, recorder *metrics.Recorder, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		assets:     assets,
		bcryptCost: bcryptCost,
		metrics:    recorder,
		logger:     loggerOrDefault(logger),
		now:        time.Now,
	}
}

func (s *AuthService) Tokens() *TokenService {
	return s.tokens
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (user model.User, err error) {
	defer func() { s.record(eventRegister, err) }()

	in.Username = normalizeIdentifier(in.Username)
	in.Email = normalizeIdentifier(in.Email)
	in.Fullname = strings.TrimSpace(in.Fullname)

	if in.Username == "" || in.Email == "" || in.Fullname == "" || strings.TrimSpace(in.Password) == "" {
		return model.User{}, apierror.Validation("all fields are required", "")
	}
	if in.Avatar == nil {
		return model.User{}, apierror.Validation("avatar file is required", "")
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return model.User{}, apierror.Dependency("failed to check existing users", err)
	}
	if exists {
		return model.User{}, apierror.Conflict("user with email or username already exists", "")
	}

	hash, err := HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, err
	}

	stored, err := uploadAll(ctx, s.assets, s.logger, in.Avatar, in.Cover)
	if err != nil {
		return model.User{}, err
	}

	now := s.now().UTC()
	user = model.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		Fullname:     in.Fullname,
		Avatar:       stored[0].URL,
		CoverImage:   stored[1].URL,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		discardAssets(ctx, s.assets, s.logger, user.Avatar, user.CoverImage)
		if errors.Is(err, model.ErrUserAlreadyExists) {
			return model.User{}, apierror.Conflict("user with email or username already exists", "")
		}
		return model.User{}, apierror.Dependency("failed to register user", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user.Public(), nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (session model.Session, err error) {
	defer func() { s.record(eventLogin, err) }()

	username := normalizeIdentifier(in.Username)
	email := normalizeIdentifier(in.Email)

	if username == "" && email == "" {
		return model.Session{}, apierror.Validation("username or email is required", "")
	}
	if username != "" && email != "" {
		return model.Session{}, apierror.Validation("provide either username or email, not both", "")
	}
	if in.Password == "" {
		return model.Session{}, apierror.Validation("password is required", "")
	}

	user, err := s.users.FindByLogin(ctx, username, email)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.Session{}, apierror.Unauthorized("user does not exist")
	}
	if err != nil {
		return model.Session{}, apierror.Dependency("failed to load user", err)
	}

	if !CheckPassword(user.PasswordHash, in.Password) {
		return model.Session{}, apierror.New(apierror.CodeInvalidCredentials, "invalid user credentials", "", http.StatusUnauthorized)
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return model.Session{}, apierror.Dependency("failed to issue tokens", err)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return model.Session{}, apierror.Dependency("failed to store refresh token", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return model.Session{
		User:         user.Public(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Logout clears the stored refresh token so that no issued refresh token
// remains usable.
func (s *AuthService) Logout(ctx context.Context, userID string) (err error) {
	defer func() { s.record(eventLogout, err) }()

	err = s.users.ClearRefreshToken(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return errUnauthorizedRequest
	}
	if err != nil {
		return apierror.Dependency("failed to clear refresh token", err)
	}

	s.logger.Info("user logged out", "user_id", userID)
	return nil
}

// RefreshAccessToken exchanges a valid, current refresh token for a new pair.
// The stored token is rotated with a compare-and-swap, so a token can be
// redeemed at most once even under concurrent use.
func (s *AuthService) RefreshAccessToken(ctx context.Context, presented string) (pair model.TokenPair, err error) {
	defer func() { s.record(eventRefresh, err) }()

	presented = strings.TrimSpace(presented)
	if presented == "" {
		return model.TokenPair{}, errUnauthorizedRequest
	}

	claims, err := s.tokens.VerifyRefreshToken(presented)
	if err != nil {
		return model.TokenPair{}, errInvalidRefreshToken
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.TokenPair{}, errInvalidRefreshToken
	}
	if err != nil {
		return model.TokenPair{}, apierror.Dependency("failed to load user", err)
	}

	if user.RefreshToken == nil || subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(presented)) != 1 {
		s.logger.Warn("refresh token replay rejected", "user_id", user.ID, "token_id", claims.TokenID)
		return model.TokenPair{}, errRefreshTokenReused
	}

	pair, err = s.tokens.IssuePair(user)
	if err != nil {
		return model.TokenPair{}, apierror.Dependency("failed to issue tokens", err)
	}

	swapped, err := s.users.SwapRefreshToken(ctx, user.ID, presented, pair.RefreshToken)
	if err != nil {
		return model.TokenPair{}, apierror.Dependency("failed to rotate refresh token", err)
	}
	if !swapped {
		s.logger.Warn("concurrent refresh lost rotation", "user_id", user.ID, "token_id", claims.TokenID)
		return model.TokenPair{}, errRefreshTokenReused
	}

	s.logger.Info("refresh token rotated", "user_id", user.ID)
	return pair, nil
}

// ChangePassword rewrites the password hash. Existing sessions stay valid.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, oldPassword string, newPassword string) (err error) {
	defer func() { s.record(eventChangePassword, err) }()

	if oldPassword == "" || strings.TrimSpace(newPassword) == "" {
		return apierror.Validation("old and new password are required", "")
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return errUnauthorizedRequest
	}
	if err != nil {
		return apierror.Dependency("failed to load user", err)
	}

	if !CheckPassword(user.PasswordHash, oldPassword) {
		return apierror.New(apierror.CodeInvalidCredentials, "invalid old password", "", http.StatusBadRequest)
	}

	hash, err := HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return apierror.Dependency("failed to update password", err)
	}

	s.logger.Info("password changed", "user_id", userID)
	return nil
}

// Authenticate verifies an access token and loads its user. It never
// consults the stored refresh token.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (user model.User, err error) {
	defer func() {
		if err != nil {
			s.record(eventAuthenticate, err)
		}
	}()

	if strings.TrimSpace(accessToken) == "" {
		return model.User{}, errUnauthorizedRequest
	}

	claims, err := s.tokens.VerifyAccessToken(accessToken)
	if errors.Is(err, model.ErrTokenExpired) {
		return model.User{}, apierror.New(apierror.CodeTokenExpired, "access token expired", "", http.StatusUnauthorized)
	}
	if err != nil {
		return model.User{}, apierror.New(apierror.CodeTokenInvalid, "invalid access token", "", http.StatusUnauthorized)
	}

	user, err = s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, apierror.New(apierror.CodeTokenInvalid, "invalid access token", "", http.StatusUnauthorized)
	}
	if err != nil {
		return model.User{}, apierror.Dependency("failed to load user", err)
	}

	return user.Public(), nil
}

func (s *AuthService) record(event string, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}
	s.metrics.AuthEvent(event, outcome)
}
