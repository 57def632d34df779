package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"videotube/internal/asset"
	"videotube/internal/model"
	"videotube/pkg/apierror"
)

type PublishInput struct {
	Title       string
	Description string
	Duration    float64
	VideoFile   *asset.Upload
	Thumbnail   *asset.Upload
}

// UpdateVideoInput leaves blank fields and a nil thumbnail unchanged.
type UpdateVideoInput struct {
	Title       string
	Description string
	Thumbnail   *asset.Upload
}

type VideoService struct {
	videos VideoStore
	assets asset.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewVideoService(videos VideoStore, assets asset.Store, logger *slog.Logger) *VideoService {
	return &VideoService{videos: videos, assets: assets, logger: loggerOrDefault(logger), now: time.Now}
}

func (s *VideoService) Publish(ctx context.Context, ownerID string, in PublishInput) (model.Video, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" || in.Description == "" {
		return model.Video{}, apierror.Validation("title and description are required", "")
	}
	if in.VideoFile == nil {
		return model.Video{}, apierror.Validation("video file is required", "")
	}
	if in.Thumbnail == nil {
		return model.Video{}, apierror.Validation("thumbnail is required", "")
	}
	if in.Duration < 0 {
		return model.Video{}, apierror.Validation("duration must not be negative", "")
	}
	if err := asset.CheckVideo(in.VideoFile.ContentType, in.VideoFile.Filename); err != nil {
		return model.Video{}, err
	}

	stored, err := uploadAll(ctx, s.assets, s.logger, in.VideoFile, in.Thumbnail)
	if err != nil {
		return model.Video{}, err
	}

	now := s.now().UTC()
	video := model.Video{
		ID:          uuid.NewString(),
		VideoFile:   stored[0].URL,
		Thumbnail:   stored[1].URL,
		Title:       in.Title,
		Description: in.Description,
		Duration:    in.Duration,
		IsPublished: true,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.videos.Create(ctx, video); err != nil {
		discardAssets(ctx, s.assets, s.logger, video.VideoFile, video.Thumbnail)
		return model.Video{}, apierror.Dependency("failed to publish video", err)
	}

	s.logger.Info("video published", "video_id", video.ID, "owner_id", ownerID)
	return video, nil
}

// List returns the catalogue newest first: every published video plus the
// viewer's own unpublished ones, optionally narrowed to one owner and a
// title or description substring.
func (s *VideoService) List(ctx context.Context, viewerID string, query string, ownerID string) (model.VideoList, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID != "" {
		if err := uuid.Validate(ownerID); err != nil {
			return model.VideoList{}, apierror.Validation("invalid user id", ownerID)
		}
	}

	videos, err := s.videos.List(ctx, model.VideoFilter{
		ViewerID: viewerID,
		OwnerID:  ownerID,
		Query:    strings.TrimSpace(query),
	})
	if err != nil {
		return model.VideoList{}, apierror.Dependency("failed to list videos", err)
	}
	return model.VideoList{Videos: videos}, nil
}

// Get returns a video and counts the view. Unpublished videos are reported as
// missing to everyone but their owner.
func (s *VideoService) Get(ctx context.Context, viewerID string, videoID string) (model.Video, error) {
	video, err := s.loadVisible(ctx, viewerID, videoID)
	if err != nil {
		return model.Video{}, err
	}

	views, err := s.videos.IncrementViews(ctx, videoID)
	if err != nil {
		return model.Video{}, s.storeError(videoID, "failed to count view", err)
	}
	video.Views = views

	if err := s.videos.RecordWatch(ctx, viewerID, videoID); err != nil {
		return model.Video{}, s.storeError(videoID, "failed to record watch history", err)
	}

	return video, nil
}

func (s *VideoService) Update(ctx context.Context, ownerID string, videoID string, in UpdateVideoInput) (model.Video, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" && in.Description == "" && in.Thumbnail == nil {
		return model.Video{}, apierror.Validation("title, description or thumbnail is required", "")
	}

	video, err := s.loadOwned(ctx, ownerID, videoID)
	if err != nil {
		return model.Video{}, err
	}

	previousThumbnail := ""
	if in.Thumbnail != nil {
		stored, err := uploadAll(ctx, s.assets, s.logger, in.Thumbnail)
		if err != nil {
			return model.Video{}, err
		}
		previousThumbnail = video.Thumbnail
		video.Thumbnail = stored[0].URL
	}
	if in.Title != "" {
		video.Title = in.Title
	}
	if in.Description != "" {
		video.Description = in.Description
	}
	video.UpdatedAt = s.now().UTC()

	if err := s.videos.Update(ctx, video); err != nil {
		if previousThumbnail != "" {
			discardAssets(ctx, s.assets, s.logger, video.Thumbnail)
		}
		return model.Video{}, s.storeError(videoID, "failed to update video", err)
	}

	discardAssets(ctx, s.assets, s.logger, previousThumbnail)
	return video, nil
}

func (s *VideoService) Delete(ctx context.Context, ownerID string, videoID string) error {
	video, err := s.loadOwned(ctx, ownerID, videoID)
	if err != nil {
		return err
	}

	if err := s.videos.Delete(ctx, videoID); err != nil {
		return s.storeError(videoID, "failed to delete video", err)
	}

	discardAssets(ctx, s.assets, s.logger, video.VideoFile, video.Thumbnail)
	s.logger.Info("video deleted", "video_id", videoID, "owner_id", ownerID)
	return nil
}

func (s *VideoService) TogglePublish(ctx context.Context, ownerID string, videoID string) (model.Video, error) {
	video, err := s.loadOwned(ctx, ownerID, videoID)
	if err != nil {
		return model.Video{}, err
	}

	updatedAt := s.now().UTC()
	published, err := s.videos.TogglePublish(ctx, videoID, updatedAt)
	if err != nil {
		return model.Video{}, s.storeError(videoID, "failed to toggle publish status", err)
	}
	video.IsPublished = published
	video.UpdatedAt = updatedAt
	return video, nil
}

func (s *VideoService) Views(ctx context.Context, viewerID string, videoID string) (model.VideoViews, error) {
	video, err := s.loadVisible(ctx, viewerID, videoID)
	if err != nil {
		return model.VideoViews{}, err
	}
	return model.VideoViews{Views: video.Views}, nil
}

func (s *VideoService) load(ctx context.Context, videoID string) (model.Video, error) {
	if err := uuid.Validate(videoID); err != nil {
		return model.Video{}, apierror.Validation("invalid video id", videoID)
	}

	video, err := s.videos.FindByID(ctx, videoID)
	if err != nil {
		return model.Video{}, s.storeError(videoID, "failed to load video", err)
	}
	return video, nil
}

func (s *VideoService) loadVisible(ctx context.Context, viewerID string, videoID string) (model.Video, error) {
	video, err := s.load(ctx, videoID)
	if err != nil {
		return model.Video{}, err
	}
	if !video.IsPublished && video.OwnerID != viewerID {
		return model.Video{}, apierror.NotFound("video not found", videoID)
	}
	return video, nil
}

func (s *VideoService) loadOwned(ctx context.Context, ownerID string, videoID string) (model.Video, error) {
	video, err := s.load(ctx, videoID)
	if err != nil {
		return model.Video{}, err
	}
	if video.OwnerID != ownerID {
		return model.Video{}, apierror.Forbidden("only the owner can modify this video")
	}
	return video, nil
}

func (s *VideoService) storeError(videoID string, message string, err error) error {
	if errors.Is(err, model.ErrVideoNotFound) {
		return apierror.NotFound("video not found", videoID)
	}
	return apierror.Dependency(message, err)
}
