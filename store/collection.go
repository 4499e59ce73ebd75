// Package store persists the accumulated notice set as one pretty-printed
// JSON document and implements the merge rules: first-seen wins on the
// incremental path, batch-overwrites on the explicit replace path.
//
// Merge functions are pure and never mutate their inputs. Store does the
// file I/O: missing or corrupt files load as an empty collection, saves are
// atomic (temp file, fsync, rename) and the previous file is kept as a
// rotating backup.
package store

import (
	"sort"
	"time"

	"github.com/hazyhaar/notamwatch/notam"
)

const (
	// FormatVersion is written into every saved collection.
	FormatVersion = "1.0.0"
	// SourceName identifies the publishing authority.
	SourceName = "israeli-aviation-authority"
)

// Metadata describes the file format and the data source.
type Metadata struct {
	Version string `json:"version"`
	Source  string `json:"source"`
}

// Collection is the persisted notice set.
type Collection struct {
	Notams      []notam.Record `json:"notams"`
	LastUpdated time.Time      `json:"lastUpdated"`
	TotalCount  int            `json:"totalCount"`
	// NewCount is the number of records added by the most recent merge.
	NewCount int      `json:"newCount"`
	Metadata Metadata `json:"metadata"`
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{
		Notams:   []notam.Record{},
		Metadata: Metadata{Version: FormatVersion, Source: SourceName},
	}
}

// KnownIDs returns the set of stored identifiers.
func KnownIDs(c *Collection) map[string]struct{} {
	ids := make(map[string]struct{}, len(c.Notams))
	for _, r := range c.Notams {
		ids[r.ID] = struct{}{}
	}
	return ids
}

// Find returns the record with the given id.
func (c *Collection) Find(id string) (notam.Record, bool) {
	id = notam.NormalizeID(id)
	for _, r := range c.Notams {
		if r.ID == id {
			return r, true
		}
	}
	return notam.Record{}, false
}

// Merge appends the incoming records whose id is not already stored.
// Stored records are never overwritten and the first occurrence of an id
// inside incoming wins. Records failing Validate are dropped. The result
// is sorted newest-first by CreatedAt, then by ascending id. It returns
// the merged collection and the number of records added.
func Merge(existing *Collection, incoming []notam.Record) (*Collection, int) {
	out := clone(existing)
	seen := KnownIDs(existing)

	added := 0
	for _, r := range incoming {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		if r.Validate() != nil {
			continue
		}
		seen[r.ID] = struct{}{}
		out.Notams = append(out.Notams, r)
		added++
	}

	sortRecords(out.Notams)
	out.TotalCount = len(out.Notams)
	out.NewCount = added
	return out, added
}

// Replace is the full-refresh merge: an incoming record overwrites the
// stored record with the same id, keeping the stored CreatedAt. Stored ids
// absent from incoming are preserved. It returns the collection and the
// number of ids that were not stored before.
func Replace(existing *Collection, incoming []notam.Record) (*Collection, int) {
	out := clone(existing)
	index := make(map[string]int, len(out.Notams))
	for i, r := range out.Notams {
		index[r.ID] = i
	}

	added := 0
	batch := make(map[string]struct{}, len(incoming))
	for _, r := range incoming {
		if _, dup := batch[r.ID]; dup {
			continue
		}
		if r.Validate() != nil {
			continue
		}
		batch[r.ID] = struct{}{}
		if i, ok := index[r.ID]; ok {
			r.CreatedAt = out.Notams[i].CreatedAt
			out.Notams[i] = r
			continue
		}
		index[r.ID] = len(out.Notams)
		out.Notams = append(out.Notams, r)
		added++
	}

	sortRecords(out.Notams)
	out.TotalCount = len(out.Notams)
	out.NewCount = added
	return out, added
}

func clone(c *Collection) *Collection {
	out := NewCollection()
	if c == nil {
		return out
	}
	out.Notams = make([]notam.Record, len(c.Notams), len(c.Notams)+8)
	copy(out.Notams, c.Notams)
	out.LastUpdated = c.LastUpdated
	out.TotalCount = c.TotalCount
	if c.Metadata.Version != "" {
		out.Metadata = c.Metadata
	}
	return out
}

func sortRecords(recs []notam.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// Stats summarizes a collection.
type Stats struct {
	TotalCount      int        `json:"totalCount"`
	NewCount        int        `json:"newCount"`
	LastUpdated     time.Time  `json:"lastUpdated"`
	OldestCreatedAt *time.Time `json:"oldestCreatedAt,omitempty"`
	NewestCreatedAt *time.Time `json:"newestCreatedAt,omitempty"`
}

// StatsOf computes Stats. The oldest and newest creation times are nil for
// an empty collection.
func StatsOf(c *Collection) Stats {
	s := Stats{TotalCount: len(c.Notams), NewCount: c.NewCount, LastUpdated: c.LastUpdated}
	for i := range c.Notams {
		t := c.Notams[i].CreatedAt
		if s.OldestCreatedAt == nil || t.Before(*s.OldestCreatedAt) {
			s.OldestCreatedAt = &t
		}
		if s.NewestCreatedAt == nil || t.After(*s.NewestCreatedAt) {
			s.NewestCreatedAt = &t
		}
	}
	return s
}

// PruneOptions bounds the size of a collection. Zero fields disable the
// corresponding rule.
type PruneOptions struct {
	// MaxAge drops records created before now-MaxAge whose validity has ended.
	MaxAge time.Duration
	// MaxCount keeps only the most recently created records.
	MaxCount int
}

// Prune applies opts and returns the pruned collection and the number of
// records removed. Records still in force, or with no end date, survive the
// age rule.
func Prune(c *Collection, opts PruneOptions, now time.Time) (*Collection, int) {
	out := clone(c)
	kept := out.Notams[:0]
	for _, r := range out.Notams {
		if opts.MaxAge > 0 && r.CreatedAt.Before(now.Add(-opts.MaxAge)) {
			if r.ValidTo != nil && r.ValidTo.Before(now) {
				continue
			}
		}
		kept = append(kept, r)
	}
	sortRecords(kept)
	if opts.MaxCount > 0 && len(kept) > opts.MaxCount {
		kept = kept[:opts.MaxCount]
	}
	removed := len(c.Notams) - len(kept)
	out.Notams = kept
	out.TotalCount = len(kept)
	return out, removed
}
