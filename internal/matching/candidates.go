package matching

import (
	"github.com/spigell/blindmatch/internal/compat"
	"github.com/spigell/blindmatch/internal/profile"
)

// Scored is a candidate together with its static compatibility.
type Scored struct {
	Profile profile.Profile
	Score   float64
	Details compat.Details
}

// Candidates is the working set passed through the filter pipeline.
type Candidates struct {
	Items []*Scored
}

func (c *Candidates) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

func (c *Candidates) IDs() []string {
	ids := make([]string, 0, c.Len())
	for _, item := range c.Items {
		ids = append(ids, item.Profile.ID)
	}
	return ids
}

// Exclude removes every candidate matching drop and returns the removed ids.
func (c *Candidates) Exclude(drop func(*Scored) bool) []string {
	var excluded []string
	kept := c.Items[:0]
	for _, item := range c.Items {
		if drop(item) {
			excluded = append(excluded, item.Profile.ID)
			continue
		}
		kept = append(kept, item)
	}
	clear(c.Items[len(kept):])
	c.Items = kept
	return excluded
}

func (c *Candidates) has(match func(*Scored) bool) bool {
	for _, item := range c.Items {
		if match(item) {
			return true
		}
	}
	return false
}

// Best returns the highest scoring candidate. Equal scores go to the lowest id.
func (c *Candidates) Best() *Scored {
	var best *Scored
	for _, item := range c.Items {
		if best == nil ||
			item.Score > best.Score ||
			(item.Score == best.Score && item.Profile.ID < best.Profile.ID) {
			best = item
		}
	}
	return best
}
