package mock

import (
	"context"

	"github.com/fwojciec/wikidigest"
)

var _ wikidigest.SubscriberService = (*SubscriberService)(nil)

// SubscriberService is a mock implementation of wikidigest.SubscriberService.
type SubscriberService struct {
	SubscribeFn              func(ctx context.Context, email, displayName string, sub wikidigest.Subscription) (*wikidigest.Subscriber, error)
	UnsubscribeFn            func(ctx context.Context, email, pageID string) error
	UnsubscribeAllFn         func(ctx context.Context, email string) error
	FindSubscriberByEmailFn  func(ctx context.Context, email string) (*wikidigest.Subscriber, error)
	FindSubscribersForPageFn func(ctx context.Context, pageID string) ([]*wikidigest.Subscriber, error)
	FindSubscribersFn        func(ctx context.Context) ([]*wikidigest.Subscriber, error)
}

func (s *SubscriberService) Subscribe(ctx context.Context, email, displayName string, sub wikidigest.Subscription) (*wikidigest.Subscriber, error) {
	return s.SubscribeFn(ctx, email, displayName, sub)
}

func (s *SubscriberService) Unsubscribe(ctx context.Context, email, pageID string) error {
	return s.UnsubscribeFn(ctx, email, pageID)
}

func (s *SubscriberService) UnsubscribeAll(ctx context.Context, email string) error {
	return s.UnsubscribeAllFn(ctx, email)
}

func (s *SubscriberService) FindSubscriberByEmail(ctx context.Context, email string) (*wikidigest.Subscriber, error) {
	return s.FindSubscriberByEmailFn(ctx, email)
}

func (s *SubscriberService) FindSubscribersForPage(ctx context.Context, pageID string) ([]*wikidigest.Subscriber, error) {
	return s.FindSubscribersForPageFn(ctx, pageID)
}

func (s *SubscriberService) FindSubscribers(ctx context.Context) ([]*wikidigest.Subscriber, error) {
	return s.FindSubscribersFn(ctx)
}
