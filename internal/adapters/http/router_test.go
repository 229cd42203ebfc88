package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	api "github.com/meetwise/signaling/internal/adapters/http"
	"github.com/meetwise/signaling/internal/config"
	"github.com/meetwise/signaling/internal/core"
	"github.com/meetwise/signaling/internal/domain"
	"github.com/meetwise/signaling/internal/store"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindHost(ctx context.Context, meeting domain.MeetingID) (domain.UserID, error) {
	args := m.Called(ctx, meeting)
	return args.Get(0).(domain.UserID), args.Error(1)
}

func (m *MockStore) RecordingStarted(ctx context.Context, meeting domain.MeetingID, handle, filename string, user domain.UserID, username string) error {
	return m.Called(ctx, meeting, handle, filename, user, username).Error(0)
}

func (m *MockStore) ActiveRecording(ctx context.Context, meeting domain.MeetingID) (*store.Recording, error) {
	args := m.Called(ctx, meeting)
	if rec := args.Get(0); rec != nil {
		return rec.(*store.Recording), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) RecordingStopped(ctx context.Context, rec *store.Recording) error {
	return m.Called(ctx, rec).Error(0)
}

func testAPI(storeMock *MockStore) *api.API {
	return &api.API{
		Cfg:   &config.Config{Secret: "test-secret", TokenTTL: 10 * time.Minute},
		Store: storeMock,
	}
}

func jsonRequest(t *testing.T, c *gin.Context, method, target string, body map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	c.Request = httptest.NewRequest(method, target, &buf)
	c.Request.Header.Set("Content-Type", "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

// Every host-only endpoint answers a non-host with the same 403.
func TestHostOnlyEndpointsRejectNonHost(t *testing.T) {
	gin.SetMode(gin.TestMode)
	storeMock := new(MockStore)
	storeMock.On("FindHost", mock.Anything, domain.MeetingID("meet-1")).Return(domain.UserID("host_1"), nil)
	a := testAPI(storeMock)

	handlers := map[string]func(*gin.Context){
		"kick": func(c *gin.Context) {
			jsonRequest(t, c, http.MethodPost, "/api/meet/kick", map[string]any{"meetingId": "meet-1", "userId": "bob"})
			a.KickParticipant(c)
		},
		"recording-start": func(c *gin.Context) {
			jsonRequest(t, c, http.MethodPost, "/api/recording/start", map[string]any{"roomName": "meet-1"})
			a.StartRecording(c)
		},
		"recording-stop": func(c *gin.Context) {
			jsonRequest(t, c, http.MethodPost, "/api/recording/stop", map[string]any{"roomName": "meet-1"})
			a.StopRecording(c)
		},
	}
	for name, call := range handlers {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Set("user_id", "mallory")
			call(c)

			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Equal(t, "Only the meeting host can do this", decode(t, w)["message"])
		})
	}
}

func TestGetMeetTokenMarksHost(t *testing.T) {
	gin.SetMode(gin.TestMode)
	storeMock := new(MockStore)
	storeMock.On("FindHost", mock.Anything, domain.MeetingID("meet-1")).Return(domain.UserID("host_1"), nil)
	a := testAPI(storeMock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/meet/token?name=Holly&meetingId=meet-1&userId=host_1", nil)
	a.GetMeetToken(c)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["isHost"])
	assert.NotEmpty(t, body["token"])

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/meet/token?name=Alice&meetingId=meet-1&userId=alice", nil)
	a.GetMeetToken(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["isHost"])
}

func TestGetMeetTokenUnknownMeeting(t *testing.T) {
	gin.SetMode(gin.TestMode)
	storeMock := new(MockStore)
	storeMock.On("FindHost", mock.Anything, domain.MeetingID("ghost")).Return(domain.UserID(""), core.ErrMeetingNotFound)
	a := testAPI(storeMock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/meet/token?name=Alice&meetingId=ghost&userId=alice", nil)
	a.GetMeetToken(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
