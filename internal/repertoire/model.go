package repertoire

import (
	"time"
)

// Song models a piece in the choir repertoire.
type Song struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Title         string    `gorm:"column:title;size:255;not null"`
	Composer      *string   `gorm:"column:composer;size:255"`
	Lyrics        *string   `gorm:"column:lyrics;type:text"`
	TabsImageURL  *string   `gorm:"column:tabs_image_url;size:2048"`
	ScoreImageURL *string   `gorm:"column:score_image_url;size:2048"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Song) TableName() string {
	return "songs"
}

// Rehearsal models a scheduled rehearsal and owns its ordered song associations.
type Rehearsal struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	DateTime  time.Time       `gorm:"column:date_time;not null;index:idx_rehearsals_date_time"`
	Location  *string         `gorm:"column:location;size:255"`
	Notes     *string         `gorm:"column:notes;type:text"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	Songs     []RehearsalSong `gorm:"foreignKey:RehearsalID;constraint:OnDelete:CASCADE"`
}

// TableName provides the explicit table binding for GORM.
func (Rehearsal) TableName() string {
	return "rehearsals"
}

// RehearsalSong places one song at a position within one rehearsal.
// A song appears at most once per rehearsal and positions never collide.
type RehearsalSong struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RehearsalID int64     `gorm:"column:rehearsal_id;not null;uniqueIndex:uq_rehearsal_songs_order,priority:1;uniqueIndex:uq_rehearsal_songs_song,priority:1"`
	SongID      int64     `gorm:"column:song_id;not null;index:idx_rehearsal_songs_song;uniqueIndex:uq_rehearsal_songs_song,priority:2"`
	SongOrder   int       `gorm:"column:song_order;not null;uniqueIndex:uq_rehearsal_songs_order,priority:2"`
	Song        *Song     `gorm:"foreignKey:SongID;constraint:OnDelete:RESTRICT"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (RehearsalSong) TableName() string {
	return "rehearsal_songs"
}

// Models lists every persisted model in dependency order for schema migration.
func Models() []any {
	return []any{&Song{}, &Rehearsal{}, &RehearsalSong{}}
}
