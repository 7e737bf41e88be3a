package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-sync/hub"
	"github.com/yeremiapane/restaurant-sync/models"
	"github.com/yeremiapane/restaurant-sync/syncer"
	"github.com/yeremiapane/restaurant-sync/utils"
)

// SessionMonitor sweeps for abandoned sessions: ACTIVE sessions whose last
// chat message and last order are both older than IdleTimeout get ended, so
// a party that walked out without a reset does not hold the table forever.
type SessionMonitor struct {
	DB          *gorm.DB
	Hub         *hub.Hub
	StopChan    chan struct{}
	Interval    time.Duration
	IdleTimeout time.Duration
}

func NewSessionMonitor(db *gorm.DB, h *hub.Hub) *SessionMonitor {
	return &SessionMonitor{
		DB:          db,
		Hub:         h,
		StopChan:    make(chan struct{}),
		Interval:    time.Minute,
		IdleTimeout: 3 * time.Hour,
	}
}

func (sm *SessionMonitor) Start() {
	go func() {
		ticker := time.NewTicker(sm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sm.sweep()
			case <-sm.StopChan:
				return
			}
		}
	}()
}

func (sm *SessionMonitor) Stop() {
	close(sm.StopChan)
}

func (sm *SessionMonitor) sweep() {
	var sessions []models.Session
	if err := sm.DB.Where("status = ?", models.SessionActive).Find(&sessions).Error; err != nil {
		utils.ErrorLogger.Printf("Session sweep: %v", err)
		return
	}

	cutoff := time.Now().Add(-sm.IdleTimeout)
	for _, session := range sessions {
		if sm.lastActivity(session).After(cutoff) {
			continue
		}

		err := sm.DB.Transaction(func(tx *gorm.DB) error {
			session.Status = models.SessionEnded
			if err := tx.Save(&session).Error; err != nil {
				return err
			}

			var table models.Table
			if err := tx.First(&table, session.TableID).Error; err != nil {
				return err
			}
			if table.CurrentSessionID != nil && *table.CurrentSessionID == session.ID {
				table.CurrentSessionID = nil
				table.Status = syncer.TableCleaning
				return tx.Save(&table).Error
			}
			return nil
		})
		if err != nil {
			utils.ErrorLogger.Printf("Session sweep: ending session %d: %v", session.ID, err)
			continue
		}

		sm.Hub.BroadcastSessionEnded(session.RestaurantID, session.ID)
		utils.InfoLogger.Printf("Session %d ended after idle timeout", session.ID)
	}
}

// lastActivity is the newest of session start, last chat message and last
// order.
func (sm *SessionMonitor) lastActivity(session models.Session) time.Time {
	last := session.CreatedAt

	var msg models.ChatMessage
	if err := sm.DB.Where("session_id = ?", session.ID).
		Order("id desc").
		First(&msg).Error; err == nil && msg.CreatedAt.After(last) {
		last = msg.CreatedAt
	}

	var order models.Order
	if err := sm.DB.Where("session_id = ?", session.ID).
		Order("id desc").
		First(&order).Error; err == nil && order.CreatedAt.After(last) {
		last = order.CreatedAt
	}

	return last
}
