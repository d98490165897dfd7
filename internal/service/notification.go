package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"lovealarm/internal/redis"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationLoveAlarm NotificationType = "LOVE_ALARM"
)

// Publisher sends a message on a subject. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// LoveAlarm is the event delivered to a user when an admirer comes close.
// The admirer's identity is not included.
type LoveAlarm struct {
	Type      NotificationType `json:"type"`
	UserID    string           `json:"user_id"`
	LoveCount int              `json:"love_count"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
}

// AlarmSubject returns the NATS subject carrying alarms for userID.
func AlarmSubject(userID string) string {
	return "lovealarm." + userID
}

// NotificationService handles love alarm delivery.
type NotificationService struct {
	publisher Publisher
	gate      redis.AlarmGateInterface
	cooldown  time.Duration
}

// NewNotificationService creates a new NotificationService. publisher and
// gate may be nil: without a publisher alarms are only logged, without a gate
// every alarm is delivered.
func NewNotificationService(publisher Publisher, gate redis.AlarmGateInterface, cooldown time.Duration) *NotificationService {
	return &NotificationService{
		publisher: publisher,
		gate:      gate,
		cooldown:  cooldown,
	}
}

// NotifyLoveAlarm rings the alarm of report.UserID because fromID came close.
// Repeats for the same pair inside the cooldown are dropped.
func (s *NotificationService) NotifyLoveAlarm(ctx context.Context, fromID string, report *LoveReport) error {
	if s.gate != nil && s.cooldown > 0 {
		allowed, err := s.gate.Allow(ctx, fromID, report.UserID, s.cooldown)
		if err != nil {
			return err
		}
		if !allowed {
			return nil
		}
	}

	alarm := LoveAlarm{
		Type:      NotificationLoveAlarm,
		UserID:    report.UserID,
		LoveCount: report.LoveCount,
		Message:   LoveMessage(report.LoveCount),
		CreatedAt: time.Now(),
	}
	return s.send(alarm)
}

// send publishes the alarm, or only logs it when no publisher is configured.
func (s *NotificationService) send(alarm LoveAlarm) error {
	log.Printf("[NOTIFICATION] Type=%s, Recipient=%s, Message=%s", alarm.Type, alarm.UserID, alarm.Message)

	if s.publisher == nil {
		return nil
	}

	data, err := json.Marshal(alarm)
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(AlarmSubject(alarm.UserID), data); err != nil {
		return fmt.Errorf("failed to publish love alarm: %w", err)
	}
	return nil
}

// LoveMessage describes a love count for display.
func LoveMessage(count int) string {
	if count == 1 {
		return "1 person nearby likes you"
	}
	return fmt.Sprintf("%d people nearby like you", count)
}
