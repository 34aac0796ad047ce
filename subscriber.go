package wikidigest

import (
	"context"
	"strings"
	"time"
)

// Subscriber is a person who receives digests for the pages they follow.
type Subscriber struct {
	ID            string         `json:"id"`
	Email         string         `json:"email"`
	DisplayName   string         `json:"displayName"`
	Subscriptions []Subscription `json:"subscriptions"`
	Preferences   Preferences    `json:"preferences"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Subscription links a subscriber to one page.
type Subscription struct {
	PageID       string    `json:"pageId"`
	PageName     string    `json:"pageName"`
	SubscribedAt time.Time `json:"subscribedAt"`
}

// Preferences controls how digests are delivered.
type Preferences struct {
	Frequency    string `json:"frequency"`
	DigestFormat string `json:"digestFormat"`
}

// DefaultPreferences are applied to new subscribers.
var DefaultPreferences = Preferences{Frequency: "immediate", DigestFormat: "html"}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate returns an error if the subscriber contains invalid fields.
func (s *Subscriber) Validate() error {
	if s.Email == "" {
		return Errorf(EINVALID, "subscriber email required")
	}
	if !strings.Contains(s.Email, "@") {
		return Errorf(EINVALID, "subscriber email %q is invalid", s.Email)
	}
	return nil
}

// SubscriberService manages the subscriber directory.
type SubscriberService interface {
	// Subscribe adds a page subscription, creating the subscriber if needed.
	// Subscribing twice to the same page updates its name.
	Subscribe(ctx context.Context, email, displayName string, sub Subscription) (*Subscriber, error)

	// Unsubscribe removes one page subscription.
	// Returns ENOTFOUND if the subscriber does not exist.
	Unsubscribe(ctx context.Context, email, pageID string) error

	// UnsubscribeAll removes every subscription of a subscriber.
	// Returns ENOTFOUND if the subscriber does not exist.
	UnsubscribeAll(ctx context.Context, email string) error

	// FindSubscriberByEmail returns one subscriber.
	// Returns ENOTFOUND if the subscriber does not exist.
	FindSubscriberByEmail(ctx context.Context, email string) (*Subscriber, error)

	// FindSubscribersForPage returns everyone subscribed to a page.
	FindSubscribersForPage(ctx context.Context, pageID string) ([]*Subscriber, error)

	// FindSubscribers returns every subscriber.
	FindSubscribers(ctx context.Context) ([]*Subscriber, error)
}
