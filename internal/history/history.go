package history

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/sia12-web/uniHood-sub008/internal/room"
)

// Match is one archived game result. Sessions themselves are never
// persisted; this table is a write-only log of finished matches.
type Match struct {
	ID          uint   `gorm:"primaryKey"`
	SessionID   string `gorm:"index"`
	Code        string
	Winner      string
	WinningLine string
	FinishedAt  time.Time
	CreatedAt   time.Time
}

// Store archives finished matches on Postgres. It implements
// room.Recorder.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.AutoMigrate(&Match{}); err != nil {
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Record writes the result in the background: the room loop must never
// block on the database, and a lost history row is acceptable.
func (s *Store) Record(res room.MatchResult) {
	rec := Match{
		SessionID:  res.SessionID,
		Code:       res.Code,
		Winner:     res.Winner,
		FinishedAt: res.FinishedAt,
	}
	if res.WinningLine != nil {
		rec.WinningLine = fmt.Sprintf("%d,%d,%d", res.WinningLine[0], res.WinningLine[1], res.WinningLine[2])
	}
	go func() {
		if err := s.db.Create(&rec).Error; err != nil {
			s.log.Warn("failed to archive match",
				zap.String("session_id", res.SessionID),
				zap.Error(err))
		}
	}()
}
