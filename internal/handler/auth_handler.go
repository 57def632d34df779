package handler

import (
	"net/http"
	"strings"

	"videotube/internal/asset"
	"videotube/internal/middleware"
	"videotube/internal/model"
	"videotube/internal/service"
	"videotube/pkg/apierror"
)

type AuthHandler struct {
	service       *service.AuthService
	cookies       CookieConfig
	maxUploadSize int64
}

func NewAuthHandler(service *service.AuthService, cookies CookieConfig, maxUploadSize int64) *AuthHandler {
	return &AuthHandler{service: service, cookies: cookies, maxUploadSize: maxUploadSize}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	form, err := parseUploadForm(w, r, h.maxUploadSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer form.Close()

	avatar, err := form.file("avatar", asset.KindAvatar)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cover, err := form.file("coverImage", asset.KindCover)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.service.Register(r.Context(), service.RegisterInput{
		Username: form.value("username"),
		Email:    form.value("email"),
		Fullname: form.value("fullname"),
		Password: form.r.FormValue("password"),
		Avatar:   avatar,
		Cover:    cover,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "user registered successfully", user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(r, &payload, false); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := h.service.Login(r.Context(), service.LoginInput{
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.cookies.setSession(w, session.AccessToken, session.RefreshToken)
	writeSuccess(w, http.StatusOK, "user logged in successfully", session)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.service.Logout(r.Context(), user.ID); err != nil {
		writeError(w, r, err)
		return
	}

	h.cookies.clearSession(w)
	writeSuccess(w, http.StatusOK, "user logged out", nil)
}

// RefreshToken reads the refresh token from its cookie, falling back to the
// JSON body for clients that do not keep cookies.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		presented = strings.TrimSpace(cookie.Value)
	}
	if presented == "" {
		var payload model.RefreshRequest
		if err := decodeJSON(r, &payload, true); err != nil {
			writeError(w, r, err)
			return
		}
		presented = payload.RefreshToken
	}

	pair, err := h.service.RefreshAccessToken(r.Context(), presented)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.cookies.setSession(w, pair.AccessToken, pair.RefreshToken)
	writeSuccess(w, http.StatusOK, "access token refreshed", pair)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload model.ChangePasswordRequest
	if err := decodeJSON(r, &payload, false); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), user.ID, payload.OldPassword, payload.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "password changed successfully", nil)
}

func currentUser(r *http.Request) (model.User, error) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		return model.User{}, apierror.Unauthorized("unauthorized request")
	}
	return user, nil
}
