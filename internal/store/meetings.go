// Package store is the persistence boundary of the coordinator. Meetings
// and recording rows live in PostgreSQL; the coordinator only ever asks one
// narrow question, who hosts a meeting.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/meetwise/signaling/internal/core"
	"github.com/meetwise/signaling/internal/domain"
)

// MeetLink is a meeting's shareable link row. LinkID is the public meeting
// identifier used everywhere in the signaling surface.
type MeetLink struct {
	ID        uint   `gorm:"primaryKey"`
	LinkID    string `gorm:"uniqueIndex;not null"`
	Type      string
	HostID    string `gorm:"not null;index"`
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// Recording tracks a meeting's egress session so stop can find the handle
// start obtained.
type Recording struct {
	gorm.Model
	MeetingID   string `gorm:"not null;index"`
	RecordingID string
	Filename    string
	UserID      string
	Username    string
	IsRecording bool
	StartedAt   *time.Time
	EndedAt     *time.Time
}

type Service struct {
	DB *gorm.DB
}

var _ core.MeetingStore = (*Service)(nil)

func New(db *gorm.DB) (*Service, error) {
	if err := db.AutoMigrate(&MeetLink{}, &Recording{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Service{DB: db}, nil
}

// FindHost resolves the meeting's designated host identifier.
func (s *Service) FindHost(ctx context.Context, meeting domain.MeetingID) (domain.UserID, error) {
	var link MeetLink
	err := s.DB.WithContext(ctx).Where("link_id = ?", string(meeting)).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", core.ErrMeetingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find host: %w", err)
	}
	return domain.UserID(link.HostID), nil
}

// RecordingStarted upserts the meeting's recording row with the egress
// handle returned by the recorder.
func (s *Service) RecordingStarted(ctx context.Context, meeting domain.MeetingID, handle, filename string, user domain.UserID, username string) error {
	now := time.Now()
	var rec Recording
	err := s.DB.WithContext(ctx).Where("meeting_id = ?", string(meeting)).First(&rec).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("recording lookup: %w", err)
	}
	rec.MeetingID = string(meeting)
	rec.RecordingID = handle
	rec.Filename = filename
	rec.UserID = string(user)
	rec.Username = username
	rec.IsRecording = true
	rec.StartedAt = &now
	rec.EndedAt = nil
	return s.DB.WithContext(ctx).Save(&rec).Error
}

// ActiveRecording returns the in-progress recording for a meeting.
func (s *Service) ActiveRecording(ctx context.Context, meeting domain.MeetingID) (*Recording, error) {
	var rec Recording
	err := s.DB.WithContext(ctx).Where("meeting_id = ? AND is_recording = ?", string(meeting), true).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrNoRecording
	}
	if err != nil {
		return nil, fmt.Errorf("recording lookup: %w", err)
	}
	return &rec, nil
}

func (s *Service) RecordingStopped(ctx context.Context, rec *Recording) error {
	now := time.Now()
	rec.IsRecording = false
	rec.EndedAt = &now
	return s.DB.WithContext(ctx).Save(rec).Error
}
