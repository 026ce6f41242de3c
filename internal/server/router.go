package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MarcoPoloResearchLab/choir/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/choir/backend/internal/repertoire"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultAdminRole = "ADMIN"

var (
	errMissingVerifier         = errors.New("token verifier dependency required")
	errMissingSongService      = errors.New("song service dependency required")
	errMissingRehearsalService = errors.New("rehearsal service dependency required")
	errMissingHealthCheck      = errors.New("health check dependency required")
)

// AppInfo is reported by the info endpoint.
type AppInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Dependencies wires the API layer to its collaborators.
type Dependencies struct {
	Verifier       auth.Verifier
	Songs          *repertoire.SongService
	Rehearsals     *repertoire.RehearsalService
	HealthCheck    func(ctx context.Context) error
	AdminRole      string
	AllowedOrigins []string
	AppInfo        AppInfo
	Logger         *zap.Logger
}

// NewHTTPHandler builds the gin router serving the repertoire API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Verifier == nil {
		return nil, errMissingVerifier
	}
	if deps.Songs == nil {
		return nil, errMissingSongService
	}
	if deps.Rehearsals == nil {
		return nil, errMissingRehearsalService
	}
	if deps.HealthCheck == nil {
		return nil, errMissingHealthCheck
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	adminRole := strings.ToUpper(strings.TrimSpace(deps.AdminRole))
	if adminRole == "" {
		adminRole = defaultAdminRole
	}

	if err := registerValidators(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(accessLogMiddleware(logger))
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		verifier:   deps.Verifier,
		songs:      deps.Songs,
		rehearsals: deps.Rehearsals,
		health:     deps.HealthCheck,
		appInfo:    deps.AppInfo,
		logger:     logger,
	}

	router.GET("/actuator/health", handler.handleHealth)
	router.GET("/actuator/info", handler.handleInfo)

	api := router.Group("/api")
	api.Use(handler.authenticate)
	api.GET("/songs", handler.handleListSongs)
	api.GET("/songs/:id", handler.handleGetSong)
	api.GET("/rehearsals", handler.handleListRehearsals)
	api.GET("/rehearsals/:id", handler.handleGetRehearsal)

	admin := api.Group("")
	admin.Use(requireRole(adminRole))
	admin.POST("/songs", handler.handleCreateSong)
	admin.PUT("/songs/:id", handler.handleUpdateSong)
	admin.DELETE("/songs/:id", handler.handleDeleteSong)
	admin.POST("/rehearsals", handler.handleCreateRehearsal)
	admin.PUT("/rehearsals/:id", handler.handleUpdateRehearsal)
	admin.DELETE("/rehearsals/:id", handler.handleDeleteRehearsal)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "No handler for " + c.Request.Method + " " + c.Request.URL.Path})
	})

	return router, nil
}

type httpHandler struct {
	verifier   auth.Verifier
	songs      *repertoire.SongService
	rehearsals *repertoire.RehearsalService
	health     func(ctx context.Context) error
	appInfo    AppInfo
	logger     *zap.Logger
}
