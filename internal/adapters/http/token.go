package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/meetwise/signaling/internal/core"
	"github.com/meetwise/signaling/internal/domain"
)

// issueMediaToken mints the JWT an approved participant presents to the
// media transport. Grants mirror what the media service expects: room to
// join plus admin rights for the host.
func (a *API) issueMediaToken(identity, name, room string, admin bool) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   identity,
		"name":  name,
		"iss":   "meetwise-signaling",
		"iat":   now.Unix(),
		"exp":   now.Add(a.Cfg.TokenTTL).Unix(),
		"video": jwt.MapClaims{"roomJoin": true, "room": room, "roomAdmin": admin},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.Cfg.Secret))
}

// GetMeetToken issues a meeting entry token, marking the meeting's host as
// room admin.
func (a *API) GetMeetToken(c *gin.Context) {
	name := c.Query("name")
	meetingID := c.Query("meetingId")
	userID := c.Query("userId")
	if meetingID == "" || userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Missing required fields: name, meetingId, userId"})
		return
	}

	host, err := a.Store.FindHost(c.Request.Context(), domain.MeetingID(meetingID))
	if errors.Is(err, core.ErrMeetingNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": true, "message": "Meeting not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("meeting", meetingID).Msg("host lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Server error"})
		return
	}

	isHost := string(host) == userID
	token, err := a.issueMediaToken(userID, name, meetingID, isHost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Server error generating token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": false, "token": token, "isHost": isHost})
}

// PostCallToken issues a per-call media token for a direct or conference
// call room.
func (a *API) PostCallToken(c *gin.Context) {
	var req struct {
		RoomName        string `json:"roomName"`
		ParticipantName string `json:"participantName"`
		UserID          string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RoomName == "" || req.ParticipantName == "" || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Missing required fields: roomName, participantName, userId"})
		return
	}

	token, err := a.issueMediaToken(req.UserID, req.ParticipantName, req.RoomName, false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Server error generating token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": false, "token": token})
}
