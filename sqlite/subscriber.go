package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fwojciec/wikidigest"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ wikidigest.SubscriberService = (*SubscriberService)(nil)

// SubscriberService implements wikidigest.SubscriberService using SQLite.
// Emails are stored normalized, so lookups are case-insensitive.
type SubscriberService struct {
	db  *DB
	now func() time.Time
}

// NewSubscriberService creates a new SubscriberService.
func NewSubscriberService(db *DB) *SubscriberService {
	return &SubscriberService{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Subscribe adds a page subscription, creating the subscriber if needed.
func (s *SubscriberService) Subscribe(ctx context.Context, email, displayName string, sub wikidigest.Subscription) (*wikidigest.Subscriber, error) {
	candidate := &wikidigest.Subscriber{Email: wikidigest.NormalizeEmail(email), DisplayName: displayName}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}
	if sub.PageID == "" {
		return nil, wikidigest.Errorf(wikidigest.EINVALID, "page ID required")
	}

	now := s.now()
	if sub.SubscribedAt.IsZero() {
		sub.SubscribedAt = now
	}
	if displayName == "" {
		displayName = candidate.Email
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, "SELECT id FROM subscribers WHERE email = ?", candidate.Email).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.New().String()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO subscribers (id, email, display_name, frequency, digest_format, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, candidate.Email, displayName, wikidigest.DefaultPreferences.Frequency,
			wikidigest.DefaultPreferences.DigestFormat, formatTime(now), formatTime(now)); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if _, err := tx.ExecContext(ctx, "UPDATE subscribers SET updated_at = ? WHERE id = ?", formatTime(now), id); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO subscriptions (subscriber_id, page_id, page_name, subscribed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(subscriber_id, page_id) DO UPDATE SET page_name = excluded.page_name
	`, id, sub.PageID, sub.PageName, formatTime(sub.SubscribedAt)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.FindSubscriberByEmail(ctx, candidate.Email)
}

// Unsubscribe removes one page subscription.
func (s *SubscriberService) Unsubscribe(ctx context.Context, email, pageID string) error {
	sub, err := s.FindSubscriberByEmail(ctx, email)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM subscriptions WHERE subscriber_id = ? AND page_id = ?", sub.ID, pageID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return wikidigest.Errorf(wikidigest.ENOTFOUND, "subscription not found")
	}
	return s.touch(ctx, sub.ID)
}

// UnsubscribeAll removes every subscription of a subscriber. The subscriber
// record is kept.
func (s *SubscriberService) UnsubscribeAll(ctx context.Context, email string) error {
	sub, err := s.FindSubscriberByEmail(ctx, email)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM subscriptions WHERE subscriber_id = ?", sub.ID); err != nil {
		return err
	}
	return s.touch(ctx, sub.ID)
}

func (s *SubscriberService) touch(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE subscribers SET updated_at = ? WHERE id = ?", formatTime(s.now()), id)
	return err
}

// FindSubscriberByEmail retrieves one subscriber with their subscriptions.
func (s *SubscriberService) FindSubscriberByEmail(ctx context.Context, email string) (*wikidigest.Subscriber, error) {
	subs, err := s.findSubscribers(ctx, "WHERE email = ?", wikidigest.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, wikidigest.Errorf(wikidigest.ENOTFOUND, "subscriber not found")
	}
	return subs[0], nil
}

// FindSubscribersForPage retrieves everyone subscribed to a page.
func (s *SubscriberService) FindSubscribersForPage(ctx context.Context, pageID string) ([]*wikidigest.Subscriber, error) {
	return s.findSubscribers(ctx, "WHERE id IN (SELECT subscriber_id FROM subscriptions WHERE page_id = ?)", pageID)
}

// FindSubscribers retrieves every subscriber.
func (s *SubscriberService) FindSubscribers(ctx context.Context) ([]*wikidigest.Subscriber, error) {
	return s.findSubscribers(ctx, "")
}

func (s *SubscriberService) findSubscribers(ctx context.Context, where string, args ...any) ([]*wikidigest.Subscriber, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, display_name, frequency, digest_format, created_at, updated_at
		FROM subscribers `+where+`
		ORDER BY email`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*wikidigest.Subscriber
	for rows.Next() {
		var sub wikidigest.Subscriber
		var createdAt, updatedAt string

		if err := rows.Scan(&sub.ID, &sub.Email, &sub.DisplayName, &sub.Preferences.Frequency,
			&sub.Preferences.DigestFormat, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if sub.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
			return nil, err
		}
		if sub.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
			return nil, err
		}
		subs = append(subs, &sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// The single connection is released before subscriptions are loaded.
	rows.Close()

	for _, sub := range subs {
		if sub.Subscriptions, err = s.subscriptions(ctx, sub.ID); err != nil {
			return nil, err
		}
	}
	return subs, nil
}

func (s *SubscriberService) subscriptions(ctx context.Context, subscriberID string) ([]wikidigest.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT page_id, page_name, subscribed_at
		FROM subscriptions
		WHERE subscriber_id = ?
		ORDER BY subscribed_at, page_id
	`, subscriberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []wikidigest.Subscription{}
	for rows.Next() {
		var sub wikidigest.Subscription
		var subscribedAt string
		if err := rows.Scan(&sub.PageID, &sub.PageName, &subscribedAt); err != nil {
			return nil, err
		}
		if sub.SubscribedAt, err = parseTime(subscribedAt, "subscribed_at"); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
