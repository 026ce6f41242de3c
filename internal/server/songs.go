package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/choir/backend/internal/repertoire"
	"github.com/gin-gonic/gin"
)

type songPayload struct {
	Title         string  `json:"title" binding:"notblank,max=255"`
	Composer      *string `json:"composer" binding:"omitempty,max=255"`
	Lyrics        *string `json:"lyrics"`
	TabsImageURL  *string `json:"tabsImageUrl" binding:"omitempty,max=2048"`
	ScoreImageURL *string `json:"scoreImageUrl" binding:"omitempty,max=2048"`
}

func (p songPayload) input() repertoire.SongInput {
	return repertoire.SongInput{
		Title:         p.Title,
		Composer:      p.Composer,
		Lyrics:        p.Lyrics,
		TabsImageURL:  p.TabsImageURL,
		ScoreImageURL: p.ScoreImageURL,
	}
}

func (h *httpHandler) handleCreateSong(c *gin.Context) {
	var payload songPayload
	if fields := bindJSON(c, &payload); fields != nil {
		respondValidation(c, fields)
		return
	}
	song, err := h.songs.Create(c.Request.Context(), payload.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, song)
}

func (h *httpHandler) handleListSongs(c *gin.Context) {
	page, fields := parsePageRequest(c, repertoire.SongSortProperties)
	if fields != nil {
		respondValidation(c, fields)
		return
	}
	songs, err := h.songs.List(c.Request.Context(), c.Query("title"), page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, songs)
}

func (h *httpHandler) handleGetSong(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	song, err := h.songs.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, song)
}

func (h *httpHandler) handleUpdateSong(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var payload songPayload
	if fields := bindJSON(c, &payload); fields != nil {
		respondValidation(c, fields)
		return
	}
	song, err := h.songs.Update(c.Request.Context(), id, payload.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, song)
}

func (h *httpHandler) handleDeleteSong(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.songs.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
