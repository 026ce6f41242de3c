package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/choir/backend/internal/repertoire"
	"github.com/gin-gonic/gin"
)

const dateTimeMessage = "Date and time must be an ISO-8601 date-time"

type rehearsalSongPayload struct {
	SongID    *int64 `json:"songId" binding:"required"`
	SongOrder *int   `json:"songOrder" binding:"required,gt=0"`
}

type rehearsalPayload struct {
	DateTime *string                `json:"dateTime" binding:"required"`
	Location *string                `json:"location" binding:"omitempty,max=255"`
	Notes    *string                `json:"notes"`
	Songs    []rehearsalSongPayload `json:"songs" binding:"omitempty,dive"`
}

func (p rehearsalPayload) input() (repertoire.RehearsalInput, []fieldError) {
	dateTime, err := repertoire.ParseDateTime(*p.DateTime)
	if err != nil {
		return repertoire.RehearsalInput{}, []fieldError{{Field: "dateTime", Message: dateTimeMessage}}
	}
	songs := make([]repertoire.RehearsalSongInput, 0, len(p.Songs))
	for _, song := range p.Songs {
		songs = append(songs, repertoire.RehearsalSongInput{SongID: *song.SongID, SongOrder: *song.SongOrder})
	}
	return repertoire.RehearsalInput{
		DateTime: dateTime,
		Location: p.Location,
		Notes:    p.Notes,
		Songs:    songs,
	}, nil
}

func bindRehearsal(c *gin.Context) (repertoire.RehearsalInput, bool) {
	var payload rehearsalPayload
	if fields := bindJSON(c, &payload); fields != nil {
		respondValidation(c, fields)
		return repertoire.RehearsalInput{}, false
	}
	input, fields := payload.input()
	if fields != nil {
		respondValidation(c, fields)
		return repertoire.RehearsalInput{}, false
	}
	return input, true
}

func (h *httpHandler) handleCreateRehearsal(c *gin.Context) {
	input, ok := bindRehearsal(c)
	if !ok {
		return
	}
	rehearsal, err := h.rehearsals.Create(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rehearsal)
}

func (h *httpHandler) handleListRehearsals(c *gin.Context) {
	page, fields := parsePageRequest(c, repertoire.RehearsalSortProperties)

	var filter repertoire.RehearsalFilter
	for _, bound := range []struct {
		name   string
		target **time.Time
	}{
		{name: "startDateTime", target: &filter.Start},
		{name: "endDateTime", target: &filter.End},
	} {
		raw, present := c.GetQuery(bound.name)
		if !present || raw == "" {
			continue
		}
		parsed, err := repertoire.ParseDateTime(raw)
		if err != nil {
			fields = append(fields, fieldError{Field: bound.name, Message: fmt.Sprintf("%s must be an ISO-8601 date-time", bound.name)})
			continue
		}
		*bound.target = &parsed
	}
	if fields != nil {
		respondValidation(c, fields)
		return
	}

	rehearsals, err := h.rehearsals.List(c.Request.Context(), filter, page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rehearsals)
}

func (h *httpHandler) handleGetRehearsal(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rehearsal, err := h.rehearsals.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rehearsal)
}

func (h *httpHandler) handleUpdateRehearsal(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	input, ok := bindRehearsal(c)
	if !ok {
		return
	}
	rehearsal, err := h.rehearsals.Update(c.Request.Context(), id, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rehearsal)
}

func (h *httpHandler) handleDeleteRehearsal(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.rehearsals.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
