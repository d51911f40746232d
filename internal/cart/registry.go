package cart

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/ikkim/atelier-backend/pkg/logger"
	"golang.org/x/sync/singleflight"
)

type IdentityEventKind int

const (
	SignedIn IdentityEventKind = iota + 1
	SignedOut
)

func (k IdentityEventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	default:
		return "unknown"
	}
}

type IdentityEvent struct {
	Kind     IdentityEventKind
	Identity Identity
}

// IdentityNotifier is implemented by the authentication provider. Subscribe
// returns a func that removes the handler.
type IdentityNotifier interface {
	Subscribe(handler func(ctx context.Context, event IdentityEvent)) (unsubscribe func())
}

// Registry owns one Cart per identity. Carts are created and loaded on
// first access and discarded when the identity signs in again or signs out.
type Registry struct {
	store RemoteStore
	opts  []Option

	mu    sync.Mutex
	carts map[Identity]*Cart
	// gens counts discards per identity. A first load only registers its
	// cart if no discard happened while it was reading.
	gens  map[Identity]uint64
	loads singleflight.Group
}

func NewRegistry(store RemoteStore, opts ...Option) *Registry {
	return &Registry{
		store: store,
		opts:  opts,
		carts: make(map[Identity]*Cart),
		gens:  make(map[Identity]uint64),
	}
}

// Cart returns the identity's cart, loading it if this is the first access.
// When the first load fails the returned cart is empty, the error is
// returned, and the next call tries again.
func (r *Registry) Cart(ctx context.Context, identity Identity) (*Cart, error) {
	if identity == 0 {
		return nil, validationError("load", "", ErrMissingIdentity)
	}

	if c := r.lookup(identity); c != nil {
		c.touch()
		return c, nil
	}

	key := strconv.FormatUint(uint64(identity), 10)
	v, err, _ := r.loads.Do(key, func() (interface{}, error) {
		r.mu.Lock()
		if c := r.carts[identity]; c != nil {
			r.mu.Unlock()
			return c, nil
		}
		gen := r.gens[identity]
		r.mu.Unlock()

		c := New(identity, r.store, r.opts...)
		// shared by every caller waiting on this key
		if _, err := c.Load(context.WithoutCancel(ctx)); err != nil {
			return c, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.gens[identity] != gen {
			// discarded mid-load: never resurrect a signed-out cart or
			// shadow the one a newer sign-in registered
			if current := r.carts[identity]; current != nil {
				return current, nil
			}
			logger.Debug("Dropping cart loaded across a discard", map[string]interface{}{
				"user_id": identity,
			})
			return c, nil
		}
		r.carts[identity] = c
		return c, nil
	})

	c, _ := v.(*Cart)
	return c, err
}

func (r *Registry) lookup(identity Identity) *Cart {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.carts[identity]
}

// Discard drops the identity's cart. The next access reloads from the store;
// a load already in flight returns its cart to its callers without
// registering it.
func (r *Registry) Discard(identity Identity) bool {
	r.mu.Lock()
	_, ok := r.carts[identity]
	delete(r.carts, identity)
	r.gens[identity]++
	r.mu.Unlock()

	r.loads.Forget(strconv.FormatUint(uint64(identity), 10))
	return ok
}

// HandleIdentityEvent resets the cart on sign-out and replaces it with a
// freshly loaded one on sign-in. Carts are never merged across sessions.
func (r *Registry) HandleIdentityEvent(ctx context.Context, event IdentityEvent) {
	discarded := r.Discard(event.Identity)

	logger.Debug("Cart identity event", map[string]interface{}{
		"user_id":   event.Identity,
		"event":     event.Kind.String(),
		"discarded": discarded,
	})

	if event.Kind != SignedIn {
		return
	}
	if _, err := r.Cart(ctx, event.Identity); err != nil {
		logger.Warn("Failed to preload cart after sign-in", map[string]interface{}{
			"user_id": event.Identity,
			"error":   err.Error(),
		})
	}
}

// Watch subscribes the registry to identity changes
func (r *Registry) Watch(notifier IdentityNotifier) (stop func()) {
	return notifier.Subscribe(r.HandleIdentityEvent)
}

// EvictIdle drops carts that were not used for maxIdle and have nothing in
// flight. It returns the number of carts dropped.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for identity, c := range r.carts {
		if c.LastUsed().After(cutoff) || c.busy() {
			continue
		}
		delete(r.carts, identity)
		evicted++
	}
	return evicted
}

// Len returns the number of live carts
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}
