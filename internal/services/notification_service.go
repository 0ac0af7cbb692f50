package services

import (
	"context"
	"fmt"

	"bilancio/internal/access"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

type (
	FamilyNotificationsRequest struct {
		Actor    core.UserID
		FamilyID core.FamilyID
	}

	NotificationList struct {
		Notifications []core.Notification
		UnreadCount   int64
	}
)

// NotificationService serves the polled notification queries. Family
// scoped reads go through the guard; per-notification operations resolve
// the owning family first and then check the actor against it.
type NotificationService struct {
	storage *storage.Repository
	guard   *access.Guard

	list        func(context.Context, FamilyNotificationsRequest) (NotificationList, error)
	markAll     func(context.Context, FamilyNotificationsRequest) (struct{}, error)
	unreadCount func(context.Context, FamilyNotificationsRequest) (int64, error)
}

func NewNotificationService(repo *storage.Repository, guard *access.Guard) *NotificationService {
	s := &NotificationService{
		storage: repo,
		guard:   guard,
	}
	bind := func(r FamilyNotificationsRequest) (core.UserID, core.FamilyID) {
		return r.Actor, r.FamilyID
	}
	s.list = access.Guarded(guard, bind, s.listNotifications)
	s.markAll = access.Guarded(guard, bind, s.markAllRead)
	s.unreadCount = access.Guarded(guard, bind, s.countUnread)
	return s
}

// ListFamilyNotifications returns the family's notifications newest
// first, with the unread count. Guarded.
func (s *NotificationService) ListFamilyNotifications(ctx context.Context, req FamilyNotificationsRequest) (NotificationList, error) {
	return s.list(ctx, req)
}

// MarkAllAsRead marks every unread notification of the family. Guarded.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, req FamilyNotificationsRequest) error {
	_, err := s.markAll(ctx, req)
	return err
}

// UnreadCount returns the number of unread notifications. Guarded.
func (s *NotificationService) UnreadCount(ctx context.Context, req FamilyNotificationsRequest) (int64, error) {
	return s.unreadCount(ctx, req)
}

// MarkAsRead marks a single notification. The target family comes from
// the notification itself, so the guard check runs after the lookup.
func (s *NotificationService) MarkAsRead(ctx context.Context, actor core.UserID, notificationID string) (core.Notification, error) {
	n, err := s.storage.GetNotification(ctx, notificationID)
	if err != nil {
		return core.Notification{}, err
	}
	if err := s.guard.Check(ctx, actor, n.FamilyID); err != nil {
		return core.Notification{}, err
	}
	if err := s.storage.MarkNotificationRead(ctx, notificationID); err != nil {
		return core.Notification{}, fmt.Errorf("mark notification read: %w", err)
	}
	n.IsRead = true
	return n, nil
}

func (s *NotificationService) listNotifications(ctx context.Context, req FamilyNotificationsRequest) (NotificationList, error) {
	notifications, err := s.storage.ListNotifications(ctx, req.FamilyID)
	if err != nil {
		return NotificationList{}, fmt.Errorf("list notifications: %w", err)
	}
	unread, err := s.storage.UnreadNotificationCount(ctx, req.FamilyID)
	if err != nil {
		return NotificationList{}, fmt.Errorf("count unread: %w", err)
	}
	return NotificationList{Notifications: notifications, UnreadCount: unread}, nil
}

func (s *NotificationService) markAllRead(ctx context.Context, req FamilyNotificationsRequest) (struct{}, error) {
	if err := s.storage.MarkAllNotificationsRead(ctx, req.FamilyID); err != nil {
		return struct{}{}, fmt.Errorf("mark all read: %w", err)
	}
	return struct{}{}, nil
}

func (s *NotificationService) countUnread(ctx context.Context, req FamilyNotificationsRequest) (int64, error) {
	count, err := s.storage.UnreadNotificationCount(ctx, req.FamilyID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}
