package contacts

import (
	"context"
	"log/slog"
)

// Subscription is a live view of one owner's contact set. C carries an
// initial full snapshot, then a fresh full snapshot after every change to
// the set, and is closed once the subscription ends. Switching sort keys
// means Cancel followed by a new Subscribe.
type Subscription struct {
	C <-chan []Contact

	cancel context.CancelFunc
}

// Cancel stops delivery and closes C. It is idempotent and safe to call
// concurrently with an in-flight snapshot.
func (s *Subscription) Cancel() {
	s.cancel()
}

// Subscribe opens a standing scoped query over the owner's contacts. One
// delivery goroutine re-reads the full ordered set on every store change
// signal; a consumer that falls behind sees coalesced signals, always ending
// on the latest state.
func (s *Service) Subscribe(ctx context.Context, ownerID string, key SortKey) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	signals, err := s.store.Watch(ctx, collection, ownerID)
	if err != nil {
		cancel()
		return nil, err
	}
	out := make(chan []Contact)
	sub := &Subscription{C: out, cancel: cancel}
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				items, err := s.List(ctx, ownerID, key)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					s.logger.Error("snapshot read failed",
						slog.String("owner_id", ownerID),
						slog.Any("error", err))
					continue
				}
				select {
				case out <- items:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return sub, nil
}
