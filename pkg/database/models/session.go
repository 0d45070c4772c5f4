package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func init() {
	registerForAutomigration(&Session{})
}

// Session is one run of the viewer against a single camera.
type Session struct {
	gorm.Model
	UUID           string `gorm:"uniqueIndex"`
	CameraID       string
	SensorType     string
	StartedAt      time.Time
	EndedAt        time.Time
	FramesProduced uint64
	FramesDropped  uint64
	FramesConsumed uint64
	StopReason     string
	Error          string
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if len(s.UUID) == 0 {
		s.UUID = uuid.NewString()
	}
	return nil
}

func (s *Session) Ended() bool {
	return !s.EndedAt.IsZero()
}

func (s *Session) Duration() time.Duration {
	if !s.Ended() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}
