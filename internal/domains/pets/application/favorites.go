package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/domain"
	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/ports"
	"github.com/Apurer/pet-adoption-engine/internal/shared/keylock"
)

// DefaultResortDelay is how long listings wait after the last toggle before reordering.
const DefaultResortDelay = 300 * time.Millisecond

// Favorites coordinates optimistic favorite toggles.
type Favorites struct {
	catalog ports.Catalog
	remote  ports.Favorites
	viewer  ports.Viewer
	locks   keylock.Set[int64]
	now     func() time.Time
	logger  *slog.Logger

	resortDelay time.Duration
	onResort    func([]*domain.Pet)
	mu          sync.Mutex
	timer       *time.Timer
}

// FavoriteOption configures a Favorites coordinator.
type FavoriteOption func(*Favorites)

// WithResortDelay overrides the listing re-sort debounce.
func WithResortDelay(d time.Duration) FavoriteOption {
	return func(f *Favorites) {
		if d > 0 {
			f.resortDelay = d
		}
	}
}

// WithListing registers the listing view that receives debounced re-sorts.
func WithListing(onResort func([]*domain.Pet)) FavoriteOption {
	return func(f *Favorites) {
		f.onResort = onResort
	}
}

// WithFavoriteClock overrides the time source for deterministic testing.
func WithFavoriteClock(now func() time.Time) FavoriteOption {
	return func(f *Favorites) {
		if now != nil {
			f.now = now
		}
	}
}

// WithFavoriteLogger injects a slog logger.
func WithFavoriteLogger(logger *slog.Logger) FavoriteOption {
	return func(f *Favorites) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFavorites wires the coordinator with its dependencies.
func NewFavorites(catalog ports.Catalog, remote ports.Favorites, viewer ports.Viewer, opts ...FavoriteOption) *Favorites {
	f := &Favorites{
		catalog:     catalog,
		remote:      remote,
		viewer:      viewer,
		now:         time.Now,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		resortDelay: DefaultResortDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Toggle flips the favorite flag of petID locally, then on the server. A failed
// server call restores the exact previous flag and timestamp.
func (f *Favorites) Toggle(ctx context.Context, petID int64) error {
	release, ok := f.locks.TryLock(petID)
	if !ok {
		return ErrToggleInFlight
	}
	defer release()

	userID, err := f.viewer.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	var before domain.FavoriteState
	pet, err := f.catalog.Update(ctx, petID, func(p *domain.Pet) error {
		if !domain.PermittedActions(*p, userID).CanFavorite {
			return ErrNotPermitted
		}
		before = p.FavoriteState()
		p.SetFavorite(!p.Favorite, f.now())
		return nil
	})
	if err != nil {
		return err
	}

	if pet.Favorite {
		err = f.remote.AddFavorite(ctx, userID, petID)
	} else {
		err = f.remote.RemoveFavorite(ctx, userID, petID)
	}
	if err != nil {
		// The caller may have gone away; the revert must still land.
		_, rbErr := f.catalog.Update(context.WithoutCancel(ctx), petID, func(p *domain.Pet) error {
			p.RestoreFavorite(before)
			return nil
		})
		if rbErr != nil {
			f.logger.ErrorContext(ctx, "favorite rollback failed",
				slog.Int64("pet.id", petID), slog.String("error", rbErr.Error()))
		}
		return fmt.Errorf("%w: %w", ErrToggleFailed, err)
	}
	f.scheduleResort()
	return nil
}

// Sync reconciles the local flag of petIDs with the server. Pets with a toggle
// in flight are skipped; their toggle settles them.
func (f *Favorites) Sync(ctx context.Context, petIDs []int64) error {
	userID, err := f.viewer.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	changed := false
	for _, id := range petIDs {
		release, ok := f.locks.TryLock(id)
		if !ok {
			continue
		}
		fav, err := f.remote.IsFavorite(ctx, userID, id)
		if err != nil {
			release()
			return err
		}
		_, err = f.catalog.Update(ctx, id, func(p *domain.Pet) error {
			if p.Favorite != fav {
				p.SetFavorite(fav, f.now())
				changed = true
			}
			return nil
		})
		release()
		if err != nil {
			return err
		}
	}
	if changed {
		f.scheduleResort()
	}
	return nil
}

// Close stops a pending re-sort.
func (f *Favorites) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.onResort = nil
}

func (f *Favorites) scheduleResort() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onResort == nil {
		return
	}
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.resortDelay, f.resort)
}

func (f *Favorites) resort() {
	f.mu.Lock()
	deliver := f.onResort
	f.timer = nil
	f.mu.Unlock()
	if deliver == nil {
		return
	}
	pets, err := f.catalog.List(context.Background())
	if err != nil {
		f.logger.Error("favorite re-sort failed", slog.String("error", err.Error()))
		return
	}
	SortListing(pets)
	deliver(pets)
}

var _ ports.FavoriteService = (*Favorites)(nil)
