package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// WishlistSync mirrors wishlist membership to the remote account.
type WishlistSync interface {
	Add(ctx context.Context, productID string) error
	Remove(ctx context.Context, productID string) error
}

// Wishlist owns the saved product ids in insertion order.
type Wishlist struct {
	mu        sync.Mutex
	key       string
	ids       []string
	persister Persister
	remote    WishlistSync
}

// NewWishlist loads the saved ids. remote may be nil for anonymous shoppers.
func NewWishlist(ctx context.Context, key string, persister Persister, remote WishlistSync) (*Wishlist, error) {
	if persister == nil {
		persister = NewMemoryPersister()
	}
	w := &Wishlist{key: key, persister: persister, remote: remote}

	var stored []string
	found, err := persister.Load(ctx, key, &stored)
	if err != nil {
		return nil, err
	}
	if found {
		seen := map[string]struct{}{}
		for _, id := range stored {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			w.ids = append(w.ids, id)
		}
	}
	return w, nil
}

func (w *Wishlist) Items() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.ids...)
}

func (w *Wishlist) Contains(productID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.indexLocked(productID) >= 0
}

// Toggle flips membership locally, then syncs. If the sync fails the list is
// restored to what it was when Toggle was called, including position, and the
// error is returned. The result reports membership after the call.
func (w *Wishlist) Toggle(ctx context.Context, productID string) (bool, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return false, errors.New("storefront: product id is required")
	}

	w.mu.Lock()
	captured := append([]string(nil), w.ids...)
	idx := w.indexLocked(productID)
	adding := idx < 0
	if adding {
		w.ids = append(w.ids, productID)
	} else {
		w.ids = append(append([]string(nil), w.ids[:idx]...), w.ids[idx+1:]...)
	}
	if err := w.saveLocked(ctx); err != nil {
		w.ids = captured
		w.mu.Unlock()
		return !adding, err
	}
	w.mu.Unlock()

	if w.remote == nil {
		return adding, nil
	}

	var err error
	if adding {
		err = w.remote.Add(ctx, productID)
	} else {
		err = w.remote.Remove(ctx, productID)
	}
	if err == nil {
		return adding, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.rollbackLocked(productID, captured, !adding)
	if saveErr := w.saveLocked(ctx); saveErr != nil {
		return !adding, errors.Join(err, saveErr)
	}
	return !adding, fmt.Errorf("sync wishlist: %w", err)
}

// rollbackLocked restores productID's membership to wasMember using the
// captured order, leaving any other concurrent toggles in place.
func (w *Wishlist) rollbackLocked(productID string, captured []string, wasMember bool) {
	cur := w.indexLocked(productID)
	if !wasMember {
		if cur >= 0 {
			w.ids = append(append([]string(nil), w.ids[:cur]...), w.ids[cur+1:]...)
		}
		return
	}
	if cur >= 0 {
		return
	}
	pos := 0
	for _, id := range captured {
		if id == productID {
			break
		}
		if w.indexLocked(id) >= 0 {
			pos++
		}
	}
	if pos > len(w.ids) {
		pos = len(w.ids)
	}
	restored := make([]string, 0, len(w.ids)+1)
	restored = append(restored, w.ids[:pos]...)
	restored = append(restored, productID)
	restored = append(restored, w.ids[pos:]...)
	w.ids = restored
}

func (w *Wishlist) indexLocked(productID string) int {
	for i, id := range w.ids {
		if id == productID {
			return i
		}
	}
	return -1
}

func (w *Wishlist) saveLocked(ctx context.Context) error {
	ids := w.ids
	if ids == nil {
		ids = []string{}
	}
	if err := w.persister.Save(ctx, w.key, ids); err != nil {
		return fmt.Errorf("persist wishlist: %w", err)
	}
	return nil
}
