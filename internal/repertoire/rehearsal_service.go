package repertoire

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// RehearsalService orchestrates rehearsal CRUD and reconciles each rehearsal's song list.
type RehearsalService struct {
	serviceBase
}

// NewRehearsalService constructs a RehearsalService over the configured store.
func NewRehearsalService(cfg ServiceConfig) (*RehearsalService, error) {
	base, err := newServiceBase(opRehearsalServiceNew, cfg)
	if err != nil {
		return nil, err
	}
	return &RehearsalService{serviceBase: base}, nil
}

// Create stores a rehearsal together with its song list in one transaction.
func (s *RehearsalService) Create(ctx context.Context, input RehearsalInput) (RehearsalView, error) {
	if err := s.ready(opCreateRehearsal); err != nil {
		return RehearsalView{}, err
	}
	if err := validateRehearsalInput(input); err != nil {
		return RehearsalView{}, err
	}

	var created Rehearsal
	err := s.store.Transaction(ctx, func(tx Store) error {
		var rehearsal Rehearsal
		applyRehearsalInput(&rehearsal, input)
		if err := tx.Rehearsals().Create(ctx, &rehearsal); err != nil {
			return err
		}
		if err := reconcileSongs(ctx, tx, &rehearsal, input.Songs); err != nil {
			return err
		}
		created = rehearsal
		return nil
	})
	if err != nil {
		return RehearsalView{}, s.fail(opCreateRehearsal, "insert_failed", err)
	}
	return toRehearsalView(created), nil
}

// List returns a page of rehearsals, limited to the inclusive range when both bounds are set.
func (s *RehearsalService) List(ctx context.Context, filter RehearsalFilter, page PageRequest) (Page[RehearsalView], error) {
	if err := s.ready(opListRehearsals); err != nil {
		return Page[RehearsalView]{}, err
	}

	rehearsals, total, err := s.store.Rehearsals().FindAll(ctx, filter, page)
	if err != nil {
		return Page[RehearsalView]{}, s.fail(opListRehearsals, "query_failed", err)
	}
	return mapPage(rehearsals, page, total, toRehearsalView), nil
}

// GetByID returns the rehearsal with songs in ascending order, or a NotFoundError.
func (s *RehearsalService) GetByID(ctx context.Context, id int64) (RehearsalView, error) {
	if err := s.ready(opGetRehearsal); err != nil {
		return RehearsalView{}, err
	}

	rehearsal, err := s.store.Rehearsals().FindByID(ctx, id)
	if err != nil {
		return RehearsalView{}, s.fail(opGetRehearsal, "query_failed", err, zap.Int64("rehearsal_id", id))
	}
	return toRehearsalView(rehearsal), nil
}

// Update overwrites the rehearsal fields and replaces its whole song list. Any failure,
// including a reference to a missing song, leaves the previous state intact.
func (s *RehearsalService) Update(ctx context.Context, id int64, input RehearsalInput) (RehearsalView, error) {
	if err := s.ready(opUpdateRehearsal); err != nil {
		return RehearsalView{}, err
	}
	if err := validateRehearsalInput(input); err != nil {
		return RehearsalView{}, err
	}

	var updated Rehearsal
	err := s.store.Transaction(ctx, func(tx Store) error {
		rehearsal, err := tx.Rehearsals().FindByID(ctx, id)
		if err != nil {
			return err
		}
		applyRehearsalInput(&rehearsal, input)
		if err := reconcileSongs(ctx, tx, &rehearsal, input.Songs); err != nil {
			return err
		}
		if err := tx.Rehearsals().Save(ctx, &rehearsal); err != nil {
			return err
		}
		updated = rehearsal
		return nil
	})
	if err != nil {
		return RehearsalView{}, s.fail(opUpdateRehearsal, "save_failed", err, zap.Int64("rehearsal_id", id))
	}
	return toRehearsalView(updated), nil
}

// Delete removes a rehearsal and its song associations; the songs themselves remain.
func (s *RehearsalService) Delete(ctx context.Context, id int64) error {
	if err := s.ready(opDeleteRehearsal); err != nil {
		return err
	}

	err := s.store.Transaction(ctx, func(tx Store) error {
		found, err := tx.Rehearsals().ExistsByID(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return rehearsalNotFound(id)
		}
		return tx.Rehearsals().DeleteByID(ctx, id)
	})
	if err != nil {
		return s.fail(opDeleteRehearsal, "delete_failed", err, zap.Int64("rehearsal_id", id))
	}
	return nil
}

// reconcileSongs replaces the association set of a persisted rehearsal with targets.
// It never diffs: the old set is dropped and a new one is built from scratch, so it
// must run inside the caller's transaction.
func reconcileSongs(ctx context.Context, tx Store, rehearsal *Rehearsal, targets []RehearsalSongInput) error {
	if err := tx.Rehearsals().ClearSongs(ctx, rehearsal.ID); err != nil {
		return err
	}
	rehearsal.Songs = nil
	if len(targets) == 0 {
		return nil
	}

	if err := checkDistinctSongs(targets); err != nil {
		return err
	}

	associations := make([]RehearsalSong, 0, len(targets))
	for _, target := range targets {
		song, err := tx.Songs().FindByID(ctx, target.SongID)
		if err != nil {
			return err
		}
		associations = append(associations, RehearsalSong{
			RehearsalID: rehearsal.ID,
			SongID:      song.ID,
			SongOrder:   target.SongOrder,
		})
	}

	if err := tx.Rehearsals().AddSongs(ctx, associations); err != nil {
		return err
	}
	rehearsal.Songs = associations
	return nil
}

func checkDistinctSongs(targets []RehearsalSongInput) error {
	orders := make(map[int]struct{}, len(targets))
	songs := make(map[int64]struct{}, len(targets))
	for _, target := range targets {
		if _, seen := orders[target.SongOrder]; seen {
			return &ConstraintError{
				Constraint: "uq_rehearsal_songs_order",
				Message:    fmt.Sprintf("Song order %d is used more than once in the rehearsal", target.SongOrder),
			}
		}
		orders[target.SongOrder] = struct{}{}
		if _, seen := songs[target.SongID]; seen {
			return &ConstraintError{
				Constraint: "uq_rehearsal_songs_song",
				Message:    fmt.Sprintf("Song %d appears more than once in the rehearsal", target.SongID),
			}
		}
		songs[target.SongID] = struct{}{}
	}
	return nil
}

func validateRehearsalInput(input RehearsalInput) error {
	if input.DateTime.IsZero() {
		return &ValidationError{Field: "dateTime", Message: "Date and time cannot be null"}
	}
	for index, song := range input.Songs {
		if song.SongOrder <= 0 {
			return &ValidationError{
				Field:   fmt.Sprintf("songs[%d].songOrder", index),
				Message: "Song order must be a positive number",
			}
		}
	}
	return nil
}
