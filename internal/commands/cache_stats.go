package commands

import (
	"context"

	"github.com/avilab/fscmd/internal/command"
)

// NewCacheStats returns the cache_stats command: hit/miss/eviction
// counters of the shared read cache.
func NewCacheStats() *command.Command {
	return &command.Command{
		Name:        "cache_stats",
		Description: "Report hit, miss, and eviction counters of the file read cache.",
		Schema:      command.Schema{},
		Execute: func(_ context.Context, cc *command.Context) (any, error) {
			c, err := cacheService(cc)
			if err != nil {
				return nil, err
			}
			return c.Stats(), nil
		},
	}
}
