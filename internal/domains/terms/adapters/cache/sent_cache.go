// Package cache keeps the emailed-term hints in the device store.
package cache

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/ports"
	"github.com/Apurer/pet-adoption-engine/internal/platform/devicestore"
)

// SentCache stores, per user, the set of pets whose adoption term was emailed.
type SentCache struct {
	store devicestore.Store
}

// NewSentCache wraps a device store.
func NewSentCache(store devicestore.Store) *SentCache {
	return &SentCache{store: store}
}

// MarkEmailed adds petID to the user's set. Repeating it is a no-op.
func (c *SentCache) MarkEmailed(ctx context.Context, userID, petID int64) error {
	return c.store.Union(ctx, devicestore.EmailedTermsKey(userID), strconv.FormatInt(petID, 10))
}

// Emailed lists the user's cached pets in ascending order.
func (c *SentCache) Emailed(ctx context.Context, userID int64) ([]int64, error) {
	members, err := c.store.Members(ctx, devicestore.EmailedTermsKey(userID))
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt emailed term entry %q: %w", m, err)
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Has reports whether petID is cached for the user.
func (c *SentCache) Has(ctx context.Context, userID, petID int64) (bool, error) {
	ids, err := c.Emailed(ctx, userID)
	if err != nil {
		return false, err
	}
	_, found := slices.BinarySearch(ids, petID)
	return found, nil
}

var _ ports.SentCache = (*SentCache)(nil)
