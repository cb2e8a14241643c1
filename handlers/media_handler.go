package handlers

import (
	"io"
	"net/http"

	"github.com/DIPEDEV/batalla-numeros/engine"
	"github.com/DIPEDEV/batalla-numeros/services"

	"github.com/gin-gonic/gin"
)

type MediaHandler struct {
	mediaService *services.MediaService
}

func NewMediaHandler(mediaService *services.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

type difficultyInfo struct {
	Selector   string  `json:"selector"`
	MaxSeconds float64 `json:"max_seconds"`
}

func (h *MediaHandler) UploadAvatar(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	file, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Avatar file required"})
		return
	}
	if file.Size > services.MaxAvatarBytes {
		respondError(c, services.ErrImageTooLarge)
		return
	}
	f, err := file.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	// One extra byte lets the service see an oversized body.
	data, err := io.ReadAll(io.LimitReader(f, services.MaxAvatarBytes+1))
	if err != nil {
		respondError(c, err)
		return
	}

	user, err := h.mediaService.UploadAvatar(c.Request.Context(), userID, data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *MediaHandler) RemoveAvatar(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	user, err := h.mediaService.RemoveAvatar(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *MediaHandler) GetAvatar(c *gin.Context) {
	obj, err := h.mediaService.Avatar(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, obj.ContentType, obj.Data)
}

func CheatSheet(c *gin.Context) {
	c.JSON(http.StatusOK, engine.CheatSheet())
}

func Difficulties(c *gin.Context) {
	out := make([]difficultyInfo, 0, len(engine.Selectors))
	for _, sel := range engine.Selectors {
		out = append(out, difficultyInfo{Selector: sel, MaxSeconds: engine.MaxTime(sel).Seconds()})
	}
	c.JSON(http.StatusOK, out)
}

func Reactions(c *gin.Context) {
	c.JSON(http.StatusOK, services.Reactions)
}
