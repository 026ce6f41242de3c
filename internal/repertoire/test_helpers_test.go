package repertoire

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "repertoire.db")
	db, err := gorm.Open(sqlite.Open(databasePath+"?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return NewGormStore(db)
}

func newTestSongService(t *testing.T, store Store) *SongService {
	t.Helper()
	service, err := NewSongService(ServiceConfig{Store: store, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("failed to build song service: %v", err)
	}
	return service
}

func newTestRehearsalService(t *testing.T, store Store) *RehearsalService {
	t.Helper()
	service, err := NewRehearsalService(ServiceConfig{Store: store, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("failed to build rehearsal service: %v", err)
	}
	return service
}

func mustCreateSong(t *testing.T, service *SongService, title string) SongView {
	t.Helper()
	song, err := service.Create(context.Background(), SongInput{Title: title})
	if err != nil {
		t.Fatalf("failed to create song %q: %v", title, err)
	}
	return song
}

func stringPointer(value string) *string {
	return &value
}

// spyStore counts destructive repository calls while delegating to the wrapped store.
type spyStore struct {
	Store
	songDeletes      *atomic.Int32
	rehearsalDeletes *atomic.Int32
}

func newSpyStore(inner Store) *spyStore {
	return &spyStore{Store: inner, songDeletes: &atomic.Int32{}, rehearsalDeletes: &atomic.Int32{}}
}

func (s *spyStore) Songs() SongRepository {
	return &spySongRepository{SongRepository: s.Store.Songs(), deletes: s.songDeletes}
}

func (s *spyStore) Rehearsals() RehearsalRepository {
	return &spyRehearsalRepository{RehearsalRepository: s.Store.Rehearsals(), deletes: s.rehearsalDeletes}
}

func (s *spyStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.Store.Transaction(ctx, func(tx Store) error {
		return fn(&spyStore{Store: tx, songDeletes: s.songDeletes, rehearsalDeletes: s.rehearsalDeletes})
	})
}

type spySongRepository struct {
	SongRepository
	deletes *atomic.Int32
}

func (r *spySongRepository) DeleteByID(ctx context.Context, id int64) error {
	r.deletes.Add(1)
	return r.SongRepository.DeleteByID(ctx, id)
}

type spyRehearsalRepository struct {
	RehearsalRepository
	deletes *atomic.Int32
}

func (r *spyRehearsalRepository) DeleteByID(ctx context.Context, id int64) error {
	r.deletes.Add(1)
	return r.RehearsalRepository.DeleteByID(ctx, id)
}
