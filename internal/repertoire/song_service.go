package repertoire

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// SongService orchestrates song CRUD and maps songs to their representation.
type SongService struct {
	serviceBase
}

// NewSongService constructs a SongService over the configured store.
func NewSongService(cfg ServiceConfig) (*SongService, error) {
	base, err := newServiceBase(opSongServiceNew, cfg)
	if err != nil {
		return nil, err
	}
	return &SongService{serviceBase: base}, nil
}

// Create stores a new song; the store assigns id and timestamps.
func (s *SongService) Create(ctx context.Context, input SongInput) (SongView, error) {
	if err := s.ready(opCreateSong); err != nil {
		return SongView{}, err
	}
	if err := validateSongInput(input); err != nil {
		return SongView{}, err
	}

	song := newSong(input)
	if err := s.store.Songs().Create(ctx, &song); err != nil {
		return SongView{}, s.fail(opCreateSong, "insert_failed", err)
	}
	return toSongView(song), nil
}

// List returns a page of songs, narrowed to titles containing titleFilter when it is not blank.
func (s *SongService) List(ctx context.Context, titleFilter string, page PageRequest) (Page[SongView], error) {
	if err := s.ready(opListSongs); err != nil {
		return Page[SongView]{}, err
	}

	filter := SongFilter{TitleContains: strings.TrimSpace(titleFilter)}
	songs, total, err := s.store.Songs().FindAll(ctx, filter, page)
	if err != nil {
		return Page[SongView]{}, s.fail(opListSongs, "query_failed", err, zap.String("title_filter", filter.TitleContains))
	}
	return mapPage(songs, page, total, toSongView), nil
}

// GetByID returns the song or a NotFoundError.
func (s *SongService) GetByID(ctx context.Context, id int64) (SongView, error) {
	if err := s.ready(opGetSong); err != nil {
		return SongView{}, err
	}

	song, err := s.store.Songs().FindByID(ctx, id)
	if err != nil {
		return SongView{}, s.fail(opGetSong, "query_failed", err, zap.Int64("song_id", id))
	}
	return toSongView(song), nil
}

// Update overwrites the mutable fields of an existing song. A missing song yields a
// NotFoundError and leaves the store untouched.
func (s *SongService) Update(ctx context.Context, id int64, input SongInput) (SongView, error) {
	if err := s.ready(opUpdateSong); err != nil {
		return SongView{}, err
	}
	if err := validateSongInput(input); err != nil {
		return SongView{}, err
	}

	var updated Song
	err := s.store.Transaction(ctx, func(tx Store) error {
		song, err := tx.Songs().FindByID(ctx, id)
		if err != nil {
			return err
		}
		applySongInput(&song, input)
		if err := tx.Songs().Save(ctx, &song); err != nil {
			return err
		}
		updated = song
		return nil
	})
	if err != nil {
		return SongView{}, s.fail(opUpdateSong, "save_failed", err, zap.Int64("song_id", id))
	}
	return toSongView(updated), nil
}

// Delete removes a song. Missing songs yield a NotFoundError and songs still
// scheduled in a rehearsal yield a ConstraintError.
func (s *SongService) Delete(ctx context.Context, id int64) error {
	if err := s.ready(opDeleteSong); err != nil {
		return err
	}

	err := s.store.Transaction(ctx, func(tx Store) error {
		found, err := tx.Songs().ExistsByID(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return songNotFound(id)
		}
		referenced, err := tx.Songs().IsReferenced(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return &ConstraintError{
				Constraint: "rehearsal_songs_song_fk",
				Message:    "Song is scheduled in at least one rehearsal",
			}
		}
		return tx.Songs().DeleteByID(ctx, id)
	})
	if err != nil {
		return s.fail(opDeleteSong, "delete_failed", err, zap.Int64("song_id", id))
	}
	return nil
}

func validateSongInput(input SongInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return &ValidationError{Field: "title", Message: "Title cannot be blank"}
	}
	return nil
}
