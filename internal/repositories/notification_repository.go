package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"collab-service/internal/models"
)

// NotificationRepository persists notification inbox entries.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error)
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
	MarkNotificationRead(ctx context.Context, notificationID, userID string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
	DeleteNotification(ctx context.Context, notificationID, userID string) error
}

// NotificationRepo is a sqlx implementation of NotificationRepository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

const notificationColumns = `id, recipient_id, type, title, body, related_id, read, created_at`

// CreateNotification inserts an unread notification.
func (r *NotificationRepo) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.ID == "" {
		n.ID = NewID()
	}
	var created models.Notification
	err := r.db.QueryRowxContext(ctx, `INSERT INTO notifications (id, recipient_id, type, title, body, related_id, read, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7) RETURNING `+notificationColumns,
		n.ID, n.RecipientID, n.Type, n.Title, n.Body, n.RelatedID, n.CreatedAt).StructScan(&created)
	return created, err
}

// ListNotifications returns the recipient's notifications, newest first.
func (r *NotificationRepo) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2`
	if unreadOnly {
		query = `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_id=$1 AND read = FALSE ORDER BY created_at DESC, id DESC LIMIT $2`
	}
	notifications := []models.Notification{}
	err := r.db.SelectContext(ctx, &notifications, query, userID, limit)
	return notifications, err
}

// CountUnreadNotifications counts unread entries for the recipient.
func (r *NotificationRepo) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE recipient_id=$1 AND read = FALSE`, userID)
	return count, err
}

// MarkNotificationRead flags one of the recipient's notifications as read.
func (r *NotificationRepo) MarkNotificationRead(ctx context.Context, notificationID, userID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id=$1 AND recipient_id=$2`, notificationID, userID)
	if err != nil {
		return notFound(err, ErrNotificationNotFound)
	}
	return rowsAffected(res, ErrNotificationNotFound)
}

// MarkAllNotificationsRead flags every unread notification of the recipient.
func (r *NotificationRepo) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE recipient_id=$1 AND read = FALSE`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteNotification removes one of the recipient's notifications.
func (r *NotificationRepo) DeleteNotification(ctx context.Context, notificationID, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id=$1 AND recipient_id=$2`, notificationID, userID)
	if err != nil {
		return notFound(err, ErrNotificationNotFound)
	}
	return rowsAffected(res, ErrNotificationNotFound)
}
