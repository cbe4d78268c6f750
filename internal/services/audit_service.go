package services

import (
	"context"
	"log"
	"time"

	"cable-backend/internal/models"
)

type auditStore interface {
	Create(ctx context.Context, entry *models.AdminActionLog) error
	List(ctx context.Context, filter models.AdminActionLogFilter) ([]*models.AdminActionLog, error)
}

// AuditService writes the admin action trail. Writes go through a buffered
// channel and a background goroutine so a slow database never holds up the
// request that triggered the log entry.
type AuditService struct {
	Repo    auditStore
	logChan chan *models.AdminActionLog
	done    chan struct{}
}

func NewAuditService(repo auditStore) *AuditService {
	s := &AuditService{
		Repo:    repo,
		logChan: make(chan *models.AdminActionLog, 1000),
		done:    make(chan struct{}),
	}
	go s.writer()
	return s
}

func (s *AuditService) writer() {
	defer close(s.done)
	for entry := range s.logChan {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.Repo.Create(ctx, entry); err != nil {
			log.Printf("[Audit] Failed to write action log: %v", err)
		}
		cancel()
	}
}

// Record queues an audit entry. Non-blocking; when the buffer is full the
// entry is dropped rather than stalling the request.
func (s *AuditService) Record(entry *models.AdminActionLog) {
	select {
	case s.logChan <- entry:
	default:
		log.Printf("[Audit] Buffer full, dropping action log for %s %s", entry.ActionType, entry.TargetType)
	}
}

// RecordAction is the common-case helper for handlers.
func (s *AuditService) RecordAction(actor models.Actor, actionType, targetType string, targetID int, description, ipAddress string) {
	entry := &models.AdminActionLog{
		AdminUserID: actor.UserID,
		ActionType:  actionType,
		TargetType:  targetType,
		Description: description,
	}
	if targetID > 0 {
		entry.TargetID = &targetID
	}
	if ipAddress != "" {
		entry.IPAddress = &ipAddress
	}
	s.Record(entry)
}

func (s *AuditService) List(ctx context.Context, actor models.Actor, filter models.AdminActionLogFilter) ([]*models.AdminActionLog, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	return s.Repo.List(ctx, filter)
}

// Close drains pending entries and stops the writer.
func (s *AuditService) Close() {
	close(s.logChan)
	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
	}
}
