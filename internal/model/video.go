package model

import "time"

type Video struct {
	ID          string        `json:"id"`
	VideoFile   string        `json:"videoFile"`
	Thumbnail   string        `json:"thumbnail"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Duration    float64       `json:"duration"`
	Views       int64         `json:"views"`
	IsPublished bool          `json:"isPublished"`
	OwnerID     string        `json:"ownerId"`
	Owner       *OwnerSummary `json:"owner,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

type VideoViews struct {
	Views int64 `json:"views"`
}

type WatchHistoryList struct {
	Videos []Video `json:"videos"`
}

// VideoFilter narrows a catalogue listing. Unpublished videos are only
// returned when ViewerID owns them.
type VideoFilter struct {
	ViewerID string
	OwnerID  string
	Query    string
}

type VideoList struct {
	Videos []Video `json:"videos"`
}
