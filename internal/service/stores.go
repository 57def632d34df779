package service

import (
	"context"
	"time"

	"videotube/internal/model"
)

// UserStore is the credential store. SwapRefreshToken must be atomic: it
// writes next only while the stored token equals presented.
type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByLogin(ctx context.Context, username string, email string) (model.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username string, email string) (bool, error)
	Create(ctx context.Context, u model.User) error
	SetRefreshToken(ctx context.Context, userID string, token string) error
	ClearRefreshToken(ctx context.Context, userID string) error
	SwapRefreshToken(ctx context.Context, userID string, presented string, next string) (bool, error)
	UpdatePassword(ctx context.Context, userID string, passwordHash string) error
	UpdateDetails(ctx context.Context, userID string, email string, fullname string) (model.User, error)
	UpdateAvatar(ctx context.Context, userID string, url string) error
	UpdateCoverImage(ctx context.Context, userID string, url string) error
}

type VideoStore interface {
	Create(ctx context.Context, v model.Video) error
	FindByID(ctx context.Context, id string) (model.Video, error)
	List(ctx context.Context, filter model.VideoFilter) ([]model.Video, error)
	IncrementViews(ctx context.Context, id string) (int64, error)
	Update(ctx context.Context, v model.Video) error
	TogglePublish(ctx context.Context, id string, updatedAt time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
	RecordWatch(ctx context.Context, userID string, videoID string) error
	ListWatchHistory(ctx context.Context, userID string) ([]model.Video, error)
}
