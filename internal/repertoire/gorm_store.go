package repertoire

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// GormStore implements Store over a GORM connection.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db; the connection should be opened with TranslateError enabled.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Songs() SongRepository {
	return &gormSongRepository{db: s.db}
}

func (s *GormStore) Rehearsals() RehearsalRepository {
	return &gormRehearsalRepository{db: s.db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

type gormSongRepository struct {
	db *gorm.DB
}

func (r *gormSongRepository) Create(ctx context.Context, song *Song) error {
	return r.db.WithContext(ctx).Create(song).Error
}

func (r *gormSongRepository) FindByID(ctx context.Context, id int64) (Song, error) {
	var song Song
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&song).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Song{}, songNotFound(id)
		}
		return Song{}, err
	}
	return song, nil
}

func (r *gormSongRepository) FindAll(ctx context.Context, filter SongFilter, page PageRequest) ([]Song, int64, error) {
	query := r.db.WithContext(ctx).Model(&Song{})
	if search := strings.TrimSpace(filter.TitleContains); search != "" {
		query = query.Where(`LOWER(title) LIKE ? ESCAPE '\'`, containsPattern(search))
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	ordered, err := applyPage(query, page, SongSortProperties)
	if err != nil {
		return nil, 0, err
	}

	var songs []Song
	if err := ordered.Find(&songs).Error; err != nil {
		return nil, 0, err
	}
	return songs, total, nil
}

func (r *gormSongRepository) Save(ctx context.Context, song *Song) error {
	return r.db.WithContext(ctx).Save(song).Error
}

func (r *gormSongRepository) DeleteByID(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&Song{}, id).Error
}

func (r *gormSongRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db, &Song{}, "id = ?", id)
}

func (r *gormSongRepository) IsReferenced(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db, &RehearsalSong{}, "song_id = ?", id)
}

type gormRehearsalRepository struct {
	db *gorm.DB
}

func (r *gormRehearsalRepository) Create(ctx context.Context, rehearsal *Rehearsal) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(rehearsal).Error
}

func (r *gormRehearsalRepository) FindByID(ctx context.Context, id int64) (Rehearsal, error) {
	var rehearsal Rehearsal
	if err := r.db.WithContext(ctx).
		Preload("Songs", orderBySongOrder).
		Where("id = ?", id).
		Take(&rehearsal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Rehearsal{}, rehearsalNotFound(id)
		}
		return Rehearsal{}, err
	}
	return rehearsal, nil
}

func (r *gormRehearsalRepository) FindAll(ctx context.Context, filter RehearsalFilter, page PageRequest) ([]Rehearsal, int64, error) {
	query := r.db.WithContext(ctx).Model(&Rehearsal{})
	if filter.bounded() {
		query = query.Where("date_time BETWEEN ? AND ?", filter.Start.UTC(), filter.End.UTC())
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	ordered, err := applyPage(query, page, RehearsalSortProperties)
	if err != nil {
		return nil, 0, err
	}

	var rehearsals []Rehearsal
	if err := ordered.Preload("Songs", orderBySongOrder).Find(&rehearsals).Error; err != nil {
		return nil, 0, err
	}
	return rehearsals, total, nil
}

func (r *gormRehearsalRepository) Save(ctx context.Context, rehearsal *Rehearsal) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(rehearsal).Error
}

func (r *gormRehearsalRepository) DeleteByID(ctx context.Context, id int64) error {
	if err := r.ClearSongs(ctx, id); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&Rehearsal{}, id).Error
}

func (r *gormRehearsalRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db, &Rehearsal{}, "id = ?", id)
}

func (r *gormRehearsalRepository) ClearSongs(ctx context.Context, rehearsalID int64) error {
	return r.db.WithContext(ctx).
		Where("rehearsal_id = ?", rehearsalID).
		Delete(&RehearsalSong{}).Error
}

func (r *gormRehearsalRepository) AddSongs(ctx context.Context, songs []RehearsalSong) error {
	if len(songs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&songs).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &ConstraintError{
			Constraint: "rehearsal_songs_unique",
			Message:    "a rehearsal cannot repeat a song or a song order",
			err:        err,
		}
	}
	return err
}

func orderBySongOrder(db *gorm.DB) *gorm.DB {
	return db.Order("song_order ASC")
}

func exists(ctx context.Context, db *gorm.DB, model any, condition string, args ...any) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(model).Where(condition, args...).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func containsPattern(search string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
}

// applyPage adds ordering, limit and offset; properties maps representation names to columns.
func applyPage(query *gorm.DB, page PageRequest, properties map[string]string) (*gorm.DB, error) {
	page = page.normalized()
	columns := make([]clause.OrderByColumn, 0, len(page.Sort)+1)
	sortedByID := false
	for _, order := range page.Sort {
		column, ok := properties[order.Property]
		if !ok {
			return nil, &ValidationError{Field: "sort", Message: fmt.Sprintf("Unsupported sort property: %s", order.Property)}
		}
		if column == "id" {
			sortedByID = true
		}
		columns = append(columns, clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: order.Descending})
	}
	if !sortedByID {
		columns = append(columns, clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	}
	return query.
		Clauses(clause.OrderBy{Columns: columns}).
		Limit(page.Size).
		Offset(page.Offset()), nil
}
