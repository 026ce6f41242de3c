package repertoire

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// DateTimeLayout renders rehearsal dates as local ISO-8601 date-times.
const DateTimeLayout = "2006-01-02T15:04:05"

var (
	errEmptyDateTime = errors.New("date-time must not be empty")

	dateTimeLayouts = []string{
		time.RFC3339Nano,
		DateTimeLayout,
		"2006-01-02T15:04",
	}
)

// ParseDateTime accepts RFC 3339 instants and zone-less ISO-8601 date-times, the latter read as UTC.
func ParseDateTime(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, errEmptyDateTime
	}
	var lastErr error
	for _, layout := range dateTimeLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// SongInput carries the client-supplied song fields.
type SongInput struct {
	Title         string
	Composer      *string
	Lyrics        *string
	TabsImageURL  *string
	ScoreImageURL *string
}

// SongView is the external representation of a song.
type SongView struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Composer      *string   `json:"composer"`
	Lyrics        *string   `json:"lyrics"`
	TabsImageURL  *string   `json:"tabsImageUrl"`
	ScoreImageURL *string   `json:"scoreImageUrl"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func newSong(input SongInput) Song {
	var song Song
	applySongInput(&song, input)
	return song
}

// applySongInput overwrites the mutable song fields; identity and timestamps stay untouched.
func applySongInput(song *Song, input SongInput) {
	song.Title = input.Title
	song.Composer = input.Composer
	song.Lyrics = input.Lyrics
	song.TabsImageURL = input.TabsImageURL
	song.ScoreImageURL = input.ScoreImageURL
}

func toSongView(song Song) SongView {
	return SongView{
		ID:            song.ID,
		Title:         song.Title,
		Composer:      song.Composer,
		Lyrics:        song.Lyrics,
		TabsImageURL:  song.TabsImageURL,
		ScoreImageURL: song.ScoreImageURL,
		CreatedAt:     song.CreatedAt.UTC(),
		UpdatedAt:     song.UpdatedAt.UTC(),
	}
}

// RehearsalSongInput places a song at a position in a rehearsal.
type RehearsalSongInput struct {
	SongID    int64
	SongOrder int
}

// RehearsalInput carries the client-supplied rehearsal fields and its target song list.
type RehearsalInput struct {
	DateTime time.Time
	Location *string
	Notes    *string
	Songs    []RehearsalSongInput
}

// RehearsalSongView is the external representation of one association.
type RehearsalSongView struct {
	SongID    int64 `json:"songId"`
	SongOrder int   `json:"songOrder"`
}

// RehearsalView is the external representation of a rehearsal.
type RehearsalView struct {
	ID        int64               `json:"id"`
	DateTime  string              `json:"dateTime"`
	Location  *string             `json:"location"`
	Notes     *string             `json:"notes"`
	Songs     []RehearsalSongView `json:"songs"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

func applyRehearsalInput(rehearsal *Rehearsal, input RehearsalInput) {
	rehearsal.DateTime = input.DateTime.UTC()
	rehearsal.Location = input.Location
	rehearsal.Notes = input.Notes
}

func toRehearsalView(rehearsal Rehearsal) RehearsalView {
	associations := make([]RehearsalSong, len(rehearsal.Songs))
	copy(associations, rehearsal.Songs)
	sort.SliceStable(associations, func(i, j int) bool {
		return associations[i].SongOrder < associations[j].SongOrder
	})

	songs := make([]RehearsalSongView, 0, len(associations))
	for _, association := range associations {
		songs = append(songs, RehearsalSongView{
			SongID:    association.SongID,
			SongOrder: association.SongOrder,
		})
	}

	return RehearsalView{
		ID:        rehearsal.ID,
		DateTime:  rehearsal.DateTime.UTC().Format(DateTimeLayout),
		Location:  rehearsal.Location,
		Notes:     rehearsal.Notes,
		Songs:     songs,
		CreatedAt: rehearsal.CreatedAt.UTC(),
		UpdatedAt: rehearsal.UpdatedAt.UTC(),
	}
}
