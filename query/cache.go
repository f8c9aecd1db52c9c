package query

import (
	"bytes"
	"time"

	"github.com/bluele/gcache"
)

// TimetableCache memoises built timetables. Keys carry the schedule load
// time and snapshot id, so a swap of either makes old entries unreachable
// and they age out of the LRU.
type TimetableCache struct {
	c gcache.Cache
}

func NewTimetableCache(size int, ttl time.Duration) *TimetableCache {
	if size <= 0 {
		size = 1024
	}
	b := gcache.New(size).LRU()
	if ttl > 0 {
		b = b.Expiration(ttl)
	}
	return &TimetableCache{c: b.Build()}
}

// Key joins its parts with '|'
func (tc *TimetableCache) Key(parts ...string) string {
	var b bytes.Buffer
	for i, p := range parts {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(p)
	}
	return b.String()
}

func (tc *TimetableCache) Get(key string) ([]TimetableEntry, bool) {
	v, err := tc.c.Get(key)
	if err != nil {
		return nil, false
	}
	entries, ok := v.([]TimetableEntry)
	return entries, ok
}

func (tc *TimetableCache) Set(key string, entries []TimetableEntry) {
	_ = tc.c.Set(key, entries)
}

// Len reports the number of live entries
func (tc *TimetableCache) Len() int { return tc.c.Len(true) }
