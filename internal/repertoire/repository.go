package repertoire

import (
	"context"
	"time"
)

// SongFilter narrows a song listing.
type SongFilter struct {
	// TitleContains matches titles case-insensitively; empty matches everything.
	TitleContains string
}

// RehearsalFilter narrows a rehearsal listing to an inclusive date-time range.
// The range applies only when both bounds are set.
type RehearsalFilter struct {
	Start *time.Time
	End   *time.Time
}

func (f RehearsalFilter) bounded() bool {
	return f.Start != nil && f.End != nil
}

// SongRepository persists songs.
type SongRepository interface {
	Create(ctx context.Context, song *Song) error
	FindByID(ctx context.Context, id int64) (Song, error)
	FindAll(ctx context.Context, filter SongFilter, page PageRequest) ([]Song, int64, error)
	Save(ctx context.Context, song *Song) error
	DeleteByID(ctx context.Context, id int64) error
	ExistsByID(ctx context.Context, id int64) (bool, error)
	IsReferenced(ctx context.Context, id int64) (bool, error)
}

// RehearsalRepository persists rehearsals and their association sets.
type RehearsalRepository interface {
	Create(ctx context.Context, rehearsal *Rehearsal) error
	FindByID(ctx context.Context, id int64) (Rehearsal, error)
	FindAll(ctx context.Context, filter RehearsalFilter, page PageRequest) ([]Rehearsal, int64, error)
	Save(ctx context.Context, rehearsal *Rehearsal) error
	DeleteByID(ctx context.Context, id int64) error
	ExistsByID(ctx context.Context, id int64) (bool, error)
	ClearSongs(ctx context.Context, rehearsalID int64) error
	AddSongs(ctx context.Context, songs []RehearsalSong) error
}

// Store groups the repositories and scopes them to a transaction.
type Store interface {
	Songs() SongRepository
	Rehearsals() RehearsalRepository
	Transaction(ctx context.Context, fn func(Store) error) error
}

// SongSortProperties lists the song representation properties a listing may sort by.
var SongSortProperties = map[string]string{
	"id":        "id",
	"title":     "title",
	"composer":  "composer",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// RehearsalSortProperties lists the rehearsal representation properties a listing may sort by.
var RehearsalSortProperties = map[string]string{
	"id":        "id",
	"dateTime":  "date_time",
	"location":  "location",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}
