package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/meetwise/signaling/internal/core"
	"github.com/meetwise/signaling/internal/domain"
)

// requireHost resolves the meeting and checks the authenticated user is
// its host. Shared by every host-only endpoint.
func (a *API) requireHost(c *gin.Context, meeting domain.MeetingID) (domain.UserID, bool) {
	host, err := a.Store.FindHost(c.Request.Context(), meeting)
	if errors.Is(err, core.ErrMeetingNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": true, "message": "Meeting not found"})
		return "", false
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("meeting", string(meeting)).Msg("host lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Server error"})
		return "", false
	}
	user := domain.UserID(c.GetString("user_id"))
	if user != host {
		c.JSON(http.StatusForbidden, gin.H{"error": true, "message": "Only the meeting host can do this"})
		return "", false
	}
	return user, true
}

func (a *API) StartRecording(c *gin.Context) {
	var req struct {
		RoomName string `json:"roomName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RoomName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Missing required field: roomName"})
		return
	}
	meeting := domain.MeetingID(req.RoomName)
	user, ok := a.requireHost(c, meeting)
	if !ok {
		return
	}

	filename := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), req.RoomName)
	handle, err := a.Egress.Start(c.Request.Context(), domain.RoomName(req.RoomName), filename)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", req.RoomName).Msg("egress start failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Failed to start recording"})
		return
	}
	if err := a.Store.RecordingStarted(c.Request.Context(), meeting, handle, filename, user, c.GetString("username")); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", req.RoomName).Msg("recording row save failed")
	}

	a.GW.NotifyRecordingState(meeting, true, user)
	c.JSON(http.StatusOK, gin.H{"success": true, "recordingId": handle, "message": "Recording started"})
}

func (a *API) StopRecording(c *gin.Context) {
	var req struct {
		RoomName string `json:"roomName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RoomName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Missing required field: roomName"})
		return
	}
	meeting := domain.MeetingID(req.RoomName)
	user, ok := a.requireHost(c, meeting)
	if !ok {
		return
	}

	rec, err := a.Store.ActiveRecording(c.Request.Context(), meeting)
	if errors.Is(err, core.ErrNoRecording) {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "No recording in progress"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Server error"})
		return
	}

	location, err := a.Egress.Stop(c.Request.Context(), rec.RecordingID)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", req.RoomName).Msg("egress stop failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Failed to stop recording"})
		return
	}
	if err := a.Store.RecordingStopped(c.Request.Context(), rec); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", req.RoomName).Msg("recording row save failed")
	}

	a.GW.NotifyRecordingState(meeting, false, user)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Recording stopped", "filename": rec.Filename, "location": location})
}
