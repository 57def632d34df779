package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"videotube/internal/asset"
	"videotube/internal/model"
	"videotube/pkg/apierror"
)

type UserService struct {
	users  UserStore
	videos VideoStore
	assets asset.Store
	logger *slog.Logger
}

func NewUserService(users UserStore, videos VideoStore, assets asset.Store, logger *slog.Logger) *UserService {
	return &UserService{users: users, videos: videos, assets: assets, logger: loggerOrDefault(logger)}
}

func (s *UserService) GetCurrentUser(ctx context.Context, userID string) (model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, apierror.NotFound("user not found", userID)
	}
	if err != nil {
		return model.User{}, apierror.Dependency("failed to load user", err)
	}
	return user.Public(), nil
}

// UpdateDetails changes email and/or fullname. Blank values keep the stored
// ones, but at least one must be given.
func (s *UserService) UpdateDetails(ctx context.Context, userID string, email string, fullname string) (model.User, error) {
	email = normalizeIdentifier(email)
	fullname = strings.TrimSpace(fullname)
	if email == "" && fullname == "" {
		return model.User{}, apierror.Validation("email or fullname is required", "")
	}

	user, err := s.users.UpdateDetails(ctx, userID, email, fullname)
	switch {
	case errors.Is(err, model.ErrUserNotFound):
		return model.User{}, apierror.NotFound("user not found", userID)
	case errors.Is(err, model.ErrUserAlreadyExists):
		return model.User{}, apierror.Conflict("email is already in use", email)
	case err != nil:
		return model.User{}, apierror.Dependency("failed to update account", err)
	}
	return user.Public(), nil
}

func (s *UserService) UpdateAvatar(ctx context.Context, userID string, upload *asset.Upload) (model.User, error) {
	if upload == nil {
		return model.User{}, apierror.Validation("avatar file is required", "")
	}
	return s.replaceImage(ctx, userID, upload,
		func(u model.User) string { return u.Avatar },
		s.users.UpdateAvatar)
}

func (s *UserService) UpdateCoverImage(ctx context.Context, userID string, upload *asset.Upload) (model.User, error) {
	if upload == nil {
		return model.User{}, apierror.Validation("cover image file is required", "")
	}
	return s.replaceImage(ctx, userID, upload,
		func(u model.User) string { return u.CoverImage },
		s.users.UpdateCoverImage)
}

// replaceImage stores the new image, points the user at it and then removes
// the previous one.
func (s *UserService) replaceImage(
	ctx context.Context,
	userID string,
	upload *asset.Upload,
	current func(model.User) string,
	persist func(ctx context.Context, userID string, url string) error,
) (model.User, error) {
	user, err := s.GetCurrentUser(ctx, userID)
	if err != nil {
		return model.User{}, err
	}

	stored, err := uploadAll(ctx, s.assets, s.logger, upload)
	if err != nil {
		return model.User{}, err
	}
	url := stored[0].URL

	if err := persist(ctx, userID, url); err != nil {
		discardAssets(ctx, s.assets, s.logger, url)
		if errors.Is(err, model.ErrUserNotFound) {
			return model.User{}, apierror.NotFound("user not found", userID)
		}
		return model.User{}, apierror.Dependency("failed to update "+string(upload.Kind), err)
	}

	discardAssets(ctx, s.assets, s.logger, current(user))
	return s.GetCurrentUser(ctx, userID)
}

func (s *UserService) WatchHistory(ctx context.Context, userID string) ([]model.Video, error) {
	videos, err := s.videos.ListWatchHistory(ctx, userID)
	if err != nil {
		return nil, apierror.Dependency("failed to load watch history", err)
	}
	return videos, nil
}
