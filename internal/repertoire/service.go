package repertoire

import (
	"errors"

	"go.uber.org/zap"
)

var (
	errMissingStore = errors.New("store is required")
	noOpLogger      = zap.NewNop()
)

const (
	opSongServiceNew      = "repertoire.song_service.new"
	opRehearsalServiceNew = "repertoire.rehearsal_service.new"
	opCreateSong          = "repertoire.create_song"
	opListSongs           = "repertoire.list_songs"
	opGetSong             = "repertoire.get_song"
	opUpdateSong          = "repertoire.update_song"
	opDeleteSong          = "repertoire.delete_song"
	opCreateRehearsal     = "repertoire.create_rehearsal"
	opListRehearsals      = "repertoire.list_rehearsals"
	opGetRehearsal        = "repertoire.get_rehearsal"
	opUpdateRehearsal     = "repertoire.update_rehearsal"
	opDeleteRehearsal     = "repertoire.delete_rehearsal"
)

// ServiceConfig describes the dependencies shared by the repertoire services.
type ServiceConfig struct {
	Store  Store
	Logger *zap.Logger
}

type serviceBase struct {
	store  Store
	logger *zap.Logger
}

func newServiceBase(operation string, cfg ServiceConfig) (serviceBase, error) {
	if cfg.Store == nil {
		return serviceBase{}, newServiceError(operation, "missing_store", errMissingStore)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return serviceBase{store: cfg.Store, logger: logger}, nil
}

func (s *serviceBase) ready(operation string) error {
	if s == nil || s.store == nil {
		s.logError(operation, "missing_store", errMissingStore)
		return newServiceError(operation, "missing_store", errMissingStore)
	}
	return nil
}

// fail passes domain errors through and wraps everything else as a logged ServiceError.
func (s *serviceBase) fail(operation, reason string, err error, fields ...zap.Field) error {
	if isDomainError(err) {
		return err
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return err
	}
	s.logError(operation, reason, err, fields...)
	return newServiceError(operation, reason, err)
}

func (s *serviceBase) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *serviceBase) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("repertoire service error", attrs...)
}
