package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"videotube/internal/model"
)

const videoWithOwnerSelect = `
SELECT v.id, v.video_file, v.thumbnail, v.title, v.description, v.duration, v.views,
       v.is_published, v.owner_id, v.created_at, v.updated_at,
       u.id, u.username, u.fullname, u.avatar
FROM videos v
JOIN users u ON u.id = v.owner_id`

type VideoRepository struct {
	pool *pgxpool.Pool
}

func NewVideoRepository(pool *pgxpool.Pool) *VideoRepository {
	return &VideoRepository{pool: pool}
}

func scanVideoWithOwner(row pgx.Row) (model.Video, error) {
	var v model.Video
	var owner model.OwnerSummary
	err := row.Scan(&v.ID, &v.VideoFile, &v.Thumbnail, &v.Title, &v.Description, &v.Duration, &v.Views,
		&v.IsPublished, &v.OwnerID, &v.CreatedAt, &v.UpdatedAt,
		&owner.ID, &owner.Username, &owner.Fullname, &owner.Avatar)
	if err != nil {
		return model.Video{}, err
	}
	v.Owner = &owner
	return v, nil
}

func (r *VideoRepository) Create(ctx context.Context, v model.Video) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO videos (id, video_file, thumbnail, title, description, duration, views, is_published, owner_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		v.ID, v.VideoFile, v.Thumbnail, v.Title, v.Description, v.Duration, v.Views, v.IsPublished,
		v.OwnerID, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create video: %w", err)
	}
	return nil
}

func (r *VideoRepository) FindByID(ctx context.Context, id string) (model.Video, error) {
	v, err := scanVideoWithOwner(r.pool.QueryRow(ctx, videoWithOwnerSelect+` WHERE v.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Video{}, model.ErrVideoNotFound
	}
	if err != nil {
		return model.Video{}, fmt.Errorf("find video by id: %w", err)
	}
	return v, nil
}

// List returns published videos plus the viewer's own, newest first. Query
// matches title or description case-insensitively as a literal substring.
func (r *VideoRepository) List(ctx context.Context, filter model.VideoFilter) ([]model.Video, error) {
	pattern := ""
	if filter.Query != "" {
		pattern = "%" + escapeLike(filter.Query) + "%"
	}

	rows, err := r.pool.Query(ctx,
		videoWithOwnerSelect+`
		 WHERE (v.is_published OR v.owner_id = $1)
		   AND ($2::text = '' OR v.owner_id = $2)
		   AND ($3::text = '' OR v.title ILIKE $3 ESCAPE '\' OR v.description ILIKE $3 ESCAPE '\')
		 ORDER BY v.created_at DESC, v.id`,
		filter.ViewerID, filter.OwnerID, pattern)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	videos := make([]model.Video, 0)
	for rows.Next() {
		v, err := scanVideoWithOwner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *VideoRepository) IncrementViews(ctx context.Context, id string) (int64, error) {
	var views int64
	err := r.pool.QueryRow(ctx,
		`UPDATE videos SET views = views + 1 WHERE id = $1 RETURNING views`, id).Scan(&views)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, model.ErrVideoNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment views: %w", err)
	}
	return views, nil
}

func (r *VideoRepository) Update(ctx context.Context, v model.Video) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE videos SET title = $2, description = $3, thumbnail = $4, updated_at = $5
		 WHERE id = $1`,
		v.ID, v.Title, v.Description, v.Thumbnail, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrVideoNotFound
	}
	return nil
}

// TogglePublish flips is_published in place and returns the new value.
func (r *VideoRepository) TogglePublish(ctx context.Context, id string, updatedAt time.Time) (bool, error) {
	var published bool
	err := r.pool.QueryRow(ctx,
		`UPDATE videos SET is_published = NOT is_published, updated_at = $2
		 WHERE id = $1 RETURNING is_published`, id, updatedAt).Scan(&published)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, model.ErrVideoNotFound
	}
	if err != nil {
		return false, fmt.Errorf("toggle publish: %w", err)
	}
	return published, nil
}

func (r *VideoRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrVideoNotFound
	}
	return nil
}

func (r *VideoRepository) RecordWatch(ctx context.Context, userID string, videoID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO watch_history (user_id, video_id, watched_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, video_id) DO UPDATE SET watched_at = EXCLUDED.watched_at`,
		userID, videoID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record watch: %w", err)
	}
	return nil
}

func (r *VideoRepository) ListWatchHistory(ctx context.Context, userID string) ([]model.Video, error) {
	rows, err := r.pool.Query(ctx,
		videoWithOwnerSelect+`
		 JOIN watch_history h ON h.video_id = v.id
		 WHERE h.user_id = $1
		 ORDER BY h.watched_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list watch history: %w", err)
	}
	defer rows.Close()

	videos := make([]model.Video, 0)
	for rows.Next() {
		v, err := scanVideoWithOwner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan watch history: %w", err)
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}
