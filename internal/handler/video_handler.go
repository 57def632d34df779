package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"videotube/internal/asset"
	"videotube/internal/service"
	"videotube/pkg/apierror"
)

type VideoHandler struct {
	service       *service.VideoService
	maxUploadSize int64
}

func NewVideoHandler(service *service.VideoService, maxUploadSize int64) *VideoHandler {
	return &VideoHandler{service: service, maxUploadSize: maxUploadSize}
}

type updateVideoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	form, err := parseUploadForm(w, r, h.maxUploadSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer form.Close()

	duration := 0.0
	if raw := form.value("duration"); raw != "" {
		duration, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, r, apierror.Validation("duration must be a number", raw))
			return
		}
	}

	videoFile, err := form.file("videoFile", asset.KindVideo)
	if err != nil {
		writeError(w, r, err)
		return
	}
	thumbnail, err := form.file("thumbnail", asset.KindThumbnail)
	if err != nil {
		writeError(w, r, err)
		return
	}

	video, err := h.service.Publish(r.Context(), user.ID, service.PublishInput{
		Title:       form.value("title"),
		Description: form.value("description"),
		Duration:    duration,
		VideoFile:   videoFile,
		Thumbnail:   thumbnail,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "video published successfully", video)
}

func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	query := r.URL.Query()
	videos, err := h.service.List(r.Context(), user.ID, query.Get("query"), query.Get("userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "videos fetched successfully", videos)
}

func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	video, err := h.service.Get(r.Context(), user.ID, chi.URLParam(r, "videoId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "video fetched successfully", video)
}

// Update accepts either a JSON body or a multipart form carrying a new
// thumbnail.
func (h *VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var in service.UpdateVideoInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		form, err := parseUploadForm(w, r, h.maxUploadSize)
		if err != nil {
			writeError(w, r, err)
			return
		}
		defer form.Close()

		in.Title = form.value("title")
		in.Description = form.value("description")
		in.Thumbnail, err = form.file("thumbnail", asset.KindThumbnail)
		if err != nil {
			writeError(w, r, err)
			return
		}
	} else {
		var payload updateVideoRequest
		if err := decodeJSON(r, &payload, false); err != nil {
			writeError(w, r, err)
			return
		}
		in.Title = payload.Title
		in.Description = payload.Description
	}

	video, err := h.service.Update(r.Context(), user.ID, chi.URLParam(r, "videoId"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "video updated successfully", video)
}

func (h *VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, chi.URLParam(r, "videoId")); err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "video deleted successfully", nil)
}

func (h *VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	video, err := h.service.TogglePublish(r.Context(), user.ID, chi.URLParam(r, "videoId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "publish status toggled", video)
}

func (h *VideoHandler) Views(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views, err := h.service.Views(r.Context(), user.ID, chi.URLParam(r, "videoId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "video views fetched successfully", views)
}
