package avatar

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/avatar-interview/backend/internal/handler/apierror"
	"github.com/zhouzirui/avatar-interview/backend/internal/model/avatar"
	"github.com/zhouzirui/avatar-interview/backend/internal/service/interview"
	"github.com/zhouzirui/avatar-interview/backend/pkg/utils"
)

// Handler 面试官头像的HTTP处理器
type Handler struct {
	avatars avatar.Store
}

// New 创建头像处理器
func New(avatars avatar.Store) *Handler {
	return &Handler{avatars: avatars}
}

// RegisterRoutes 注册头像相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/avatars", h.handleList)
	r.Get("/avatars/{avatarID}", h.handleGet)
}

// handleList 列出所有头像预设
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.avatars.List())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "avatarID")
	profile, ok := h.avatars.FindByID(id)
	if !ok {
		apierror.Write(w, interview.NewError(interview.KindNotFound, "avatar not found"))
		return
	}
	utils.RespondJSON(w, http.StatusOK, profile)
}
