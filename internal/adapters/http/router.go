package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/meetwise/signaling/internal/adapters/signal"
	"github.com/meetwise/signaling/internal/config"
	"github.com/meetwise/signaling/internal/core"
	"github.com/meetwise/signaling/internal/domain"
	"github.com/meetwise/signaling/internal/store"
)

// MeetingStore is what the HTTP surface needs from persistence: host
// resolution plus the recording rows.
type MeetingStore interface {
	core.MeetingStore
	RecordingStarted(ctx context.Context, meeting domain.MeetingID, handle, filename string, user domain.UserID, username string) error
	ActiveRecording(ctx context.Context, meeting domain.MeetingID) (*store.Recording, error)
	RecordingStopped(ctx context.Context, rec *store.Recording) error
}

// API bundles the HTTP surface's collaborators.
type API struct {
	Cfg    *config.Config
	Store  MeetingStore
	Egress core.EgressClient
	GW     *signal.Gateway
}

var _ MeetingStore = (*store.Service)(nil)

func SetupRouter(ctx context.Context, cfg *config.Config, api *API) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	cookieStore := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("MeetSessions", cookieStore))
	r.Use(ClientTokenMiddleware())

	log.Info().Str("module", "adapters.http").Msg("router setup")

	apiGroup := r.Group("/api")

	apiGroup.GET("/ws/signal", OptionalAuthMiddleware(cfg.Secret), func(c *gin.Context) {
		api.GW.HandleSignal(ctx, c)
	})

	apiGroup.GET("/meet/token", api.GetMeetToken)

	authed := apiGroup.Group("", AuthMiddleware(cfg.Secret))
	authed.POST("/call/token", api.PostCallToken)
	authed.POST("/recording/start", api.StartRecording)
	authed.POST("/recording/stop", api.StopRecording)
	authed.POST("/meet/kick", api.KickParticipant)

	return r
}

// KickParticipant removes a participant from a meeting on the host's
// behalf.
func (a *API) KickParticipant(c *gin.Context) {
	var req struct {
		MeetingID string `json:"meetingId"`
		UserID    string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.MeetingID == "" || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Missing required fields: meetingId, userId"})
		return
	}
	meeting := domain.MeetingID(req.MeetingID)
	if _, ok := a.requireHost(c, meeting); !ok {
		return
	}

	if !a.GW.Evict(meeting, domain.UserID(req.UserID)) {
		c.JSON(http.StatusNotFound, gin.H{"error": true, "message": "Participant not connected"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Participant removed"})
}
