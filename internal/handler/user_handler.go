package handler

import (
	"context"
	"net/http"

	"videotube/internal/asset"
	"videotube/internal/model"
	"videotube/internal/service"
)

type UserHandler struct {
	service       *service.UserService
	maxUploadSize int64
}

func NewUserHandler(service *service.UserService, maxUploadSize int64) *UserHandler {
	return &UserHandler{service: service, maxUploadSize: maxUploadSize}
}

func (h *UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	fresh, err := h.service.GetCurrentUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "current user fetched successfully", fresh)
}

func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload model.UpdateAccountRequest
	if err := decodeJSON(r, &payload, false); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.service.UpdateDetails(r.Context(), user.ID, payload.Email, payload.Fullname)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "account details updated successfully", updated)
}

func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", asset.KindAvatar, h.service.UpdateAvatar, "avatar updated successfully")
}

func (h *UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", asset.KindCover, h.service.UpdateCoverImage, "cover image updated successfully")
}

func (h *UserHandler) replaceImage(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	kind asset.Kind,
	update func(ctx context.Context, userID string, upload *asset.Upload) (model.User, error),
	message string,
) {
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

	upload, err := form.file(field, kind)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := update(r.Context(), user.ID, upload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, message, updated)
}

func (h *UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	videos, err := h.service.WatchHistory(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "watch history fetched successfully", model.WatchHistoryList{Videos: videos})
}
