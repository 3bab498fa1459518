package audit

import (
	"context"
	"errors"

	id "sessionsale/pkg/domain"
)

// Store persists audit events. Sinks that cannot be queried (Kafka) implement
// only Append; the in-memory store also implements Lister.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Lister reads events back, newest last.
type Lister interface {
	ListByCredential(ctx context.Context, credentialID id.CredentialID) ([]Event, error)
}

// Emitter is what domain services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Fanout appends each event to every store. All stores are tried; their
// failures are joined.
type Fanout []Store

func (f Fanout) Append(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListByCredential reads from the first store that supports listing.
func (f Fanout) ListByCredential(ctx context.Context, credentialID id.CredentialID) ([]Event, error) {
	for _, s := range f {
		if l, ok := s.(Lister); ok {
			return l.ListByCredential(ctx, credentialID)
		}
	}
	return nil, errors.New("no audit store supports listing")
}
