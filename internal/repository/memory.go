package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"videotube/internal/model"
)

// MemoryStore keeps users, videos and watch history in process memory. It
// backs DATABASE_URL=memory:// and the test suites, and offers the same
// single-row atomicity guarantees as the PostgreSQL repositories.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]model.User
	videos  map[string]model.Video
	history map[string]map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   map[string]model.User{},
		videos:  map[string]model.Video{},
		history: map[string]map[string]time.Time{},
	}
}

func (s *MemoryStore) Users() *MemoryUserRepository {
	return &MemoryUserRepository{store: s}
}

func (s *MemoryStore) Videos() *MemoryVideoRepository {
	return &MemoryVideoRepository{store: s}
}

type MemoryUserRepository struct {
	store *MemoryStore
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (model.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	u, ok := r.store.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *MemoryUserRepository) FindByLogin(_ context.Context, username string, email string) (model.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, u := range r.store.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return cloneUser(u), nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (r *MemoryUserRepository) ExistsByUsernameOrEmail(_ context.Context, username string, email string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.store.conflictLocked("", username, email), nil
}

func (r *MemoryUserRepository) Create(_ context.Context, u model.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.users[u.ID]; exists || r.store.conflictLocked("", u.Username, u.Email) {
		return fmt.Errorf("create user: %w", model.ErrUserAlreadyExists)
	}
	u.RefreshToken = nil
	r.store.users[u.ID] = u
	return nil
}

func (r *MemoryUserRepository) SetRefreshToken(_ context.Context, userID string, token string) error {
	return r.mutate(userID, func(u *model.User) error {
		u.RefreshToken = &token
		return nil
	})
}

func (r *MemoryUserRepository) ClearRefreshToken(_ context.Context, userID string) error {
	return r.mutate(userID, func(u *model.User) error {
		u.RefreshToken = nil
		return nil
	})
}

func (r *MemoryUserRepository) SwapRefreshToken(_ context.Context, userID string, presented string, next string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	u, ok := r.store.users[userID]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != presented {
		return false, nil
	}
	u.RefreshToken = &next
	u.UpdatedAt = time.Now().UTC()
	r.store.users[userID] = u
	return true, nil
}

func (r *MemoryUserRepository) UpdatePassword(_ context.Context, userID string, passwordHash string) error {
	return r.mutate(userID, func(u *model.User) error {
		u.PasswordHash = passwordHash
		return nil
	})
}

func (r *MemoryUserRepository) UpdateDetails(_ context.Context, userID string, email string, fullname string) (model.User, error) {
	var updated model.User
	err := r.mutate(userID, func(u *model.User) error {
		if email != "" && email != u.Email {
			if r.store.conflictLocked(userID, "", email) {
				return fmt.Errorf("update user details: %w", model.ErrUserAlreadyExists)
			}
			u.Email = email
		}
		if fullname != "" {
			u.Fullname = fullname
		}
		updated = cloneUser(*u)
		return nil
	})
	return updated, err
}

func (r *MemoryUserRepository) UpdateAvatar(_ context.Context, userID string, url string) error {
	return r.mutate(userID, func(u *model.User) error {
		u.Avatar = url
		return nil
	})
}

func (r *MemoryUserRepository) UpdateCoverImage(_ context.Context, userID string, url string) error {
	return r.mutate(userID, func(u *model.User) error {
		u.CoverImage = url
		return nil
	})
}

func (r *MemoryUserRepository) mutate(userID string, fn func(u *model.User) error) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	u, ok := r.store.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	if err := fn(&u); err != nil {
		return err
	}
	u.UpdatedAt = time.Now().UTC()
	r.store.users[userID] = u
	return nil
}

// conflictLocked reports whether a user other than exceptID already holds
// username or email.
func (s *MemoryStore) conflictLocked(exceptID string, username string, email string) bool {
	for id, u := range s.users {
		if id == exceptID {
			continue
		}
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return true
		}
	}
	return false
}

func cloneUser(u model.User) model.User {
	if u.RefreshToken != nil {
		token := *u.RefreshToken
		u.RefreshToken = &token
	}
	return u
}

type MemoryVideoRepository struct {
	store *MemoryStore
}

func (r *MemoryVideoRepository) Create(_ context.Context, v model.Video) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.users[v.OwnerID]; !ok {
		return fmt.Errorf("create video: %w", model.ErrUserNotFound)
	}
	v.Owner = nil
	r.store.videos[v.ID] = v
	return nil
}

func (r *MemoryVideoRepository) FindByID(_ context.Context, id string) (model.Video, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	v, ok := r.store.videos[id]
	if !ok {
		return model.Video{}, model.ErrVideoNotFound
	}
	return r.withOwnerLocked(v), nil
}

func (r *MemoryVideoRepository) List(_ context.Context, filter model.VideoFilter) ([]model.Video, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query := strings.ToLower(filter.Query)
	videos := make([]model.Video, 0)
	for _, v := range r.store.videos {
		if !v.IsPublished && v.OwnerID != filter.ViewerID {
			continue
		}
		if filter.OwnerID != "" && v.OwnerID != filter.OwnerID {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(v.Title), query) &&
			!strings.Contains(strings.ToLower(v.Description), query) {
			continue
		}
		videos = append(videos, r.withOwnerLocked(v))
	}
	sort.Slice(videos, func(i, j int) bool {
		if videos[i].CreatedAt.Equal(videos[j].CreatedAt) {
			return videos[i].ID < videos[j].ID
		}
		return videos[i].CreatedAt.After(videos[j].CreatedAt)
	})
	return videos, nil
}

func (r *MemoryVideoRepository) IncrementViews(_ context.Context, id string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	v, ok := r.store.videos[id]
	if !ok {
		return 0, model.ErrVideoNotFound
	}
	v.Views++
	r.store.videos[id] = v
	return v.Views, nil
}

func (r *MemoryVideoRepository) Update(_ context.Context, v model.Video) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.videos[v.ID]
	if !ok {
		return model.ErrVideoNotFound
	}
	stored.Title = v.Title
	stored.Description = v.Description
	stored.Thumbnail = v.Thumbnail
	stored.UpdatedAt = v.UpdatedAt
	r.store.videos[v.ID] = stored
	return nil
}

func (r *MemoryVideoRepository) TogglePublish(_ context.Context, id string, updatedAt time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	v, ok := r.store.videos[id]
	if !ok {
		return false, model.ErrVideoNotFound
	}
	v.IsPublished = !v.IsPublished
	v.UpdatedAt = updatedAt
	r.store.videos[id] = v
	return v.IsPublished, nil
}

func (r *MemoryVideoRepository) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.videos[id]; !ok {
		return model.ErrVideoNotFound
	}
	delete(r.store.videos, id)
	for _, watched := range r.store.history {
		delete(watched, id)
	}
	return nil
}

func (r *MemoryVideoRepository) RecordWatch(_ context.Context, userID string, videoID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.videos[videoID]; !ok {
		return fmt.Errorf("record watch: %w", model.ErrVideoNotFound)
	}
	watched, ok := r.store.history[userID]
	if !ok {
		watched = map[string]time.Time{}
		r.store.history[userID] = watched
	}
	watched[videoID] = time.Now().UTC()
	return nil
}

func (r *MemoryVideoRepository) ListWatchHistory(_ context.Context, userID string) ([]model.Video, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	type entry struct {
		video model.Video
		at    time.Time
	}
	entries := make([]entry, 0, len(r.store.history[userID]))
	for videoID, at := range r.store.history[userID] {
		if v, ok := r.store.videos[videoID]; ok {
			entries = append(entries, entry{video: r.withOwnerLocked(v), at: at})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].at.After(entries[j].at)
	})

	videos := make([]model.Video, 0, len(entries))
	for _, e := range entries {
		videos = append(videos, e.video)
	}
	return videos, nil
}

func (r *MemoryVideoRepository) withOwnerLocked(v model.Video) model.Video {
	if owner, ok := r.store.users[v.OwnerID]; ok {
		v.Owner = &model.OwnerSummary{
			ID:       owner.ID,
			Username: owner.Username,
			Fullname: owner.Fullname,
			Avatar:   owner.Avatar,
		}
	}
	return v
}
