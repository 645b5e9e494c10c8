package poller

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MarkerKey identifies one fired occurrence: kind, item id and reminder time in milliseconds.
func MarkerKey(kind, id string, at time.Time) string {
	return fmt.Sprintf("%s-%s-%d", kind, id, at.UnixMilli())
}

func markerTime(key string) (time.Time, bool) {
	i := strings.LastIndexByte(key, '-')
	if i < 0 {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(key[i+1:], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// MarkerBuffer remembers fired occurrences in insertion order. Once it grows past its limit it is
// trimmed to the newest target entries, but markers whose time is still inside the poll window
// are always kept so an occurrence can never fire twice.
type MarkerBuffer struct {
	limit, target int
	order         []string
	at            map[string]time.Time
}

func NewMarkerBuffer(limit, target int) *MarkerBuffer {
	return &MarkerBuffer{limit: limit, target: target, at: make(map[string]time.Time)}
}

func (b *MarkerBuffer) Has(key string) bool {
	_, ok := b.at[key]
	return ok
}

func (b *MarkerBuffer) Add(key string, at time.Time) {
	if b.Has(key) {
		return
	}
	b.order = append(b.order, key)
	b.at[key] = at
}

func (b *MarkerBuffer) Len() int { return len(b.order) }

// Keys returns markers oldest first.
func (b *MarkerBuffer) Keys() []string {
	return append([]string(nil), b.order...)
}

// Restore replaces the buffer with persisted keys.
func (b *MarkerBuffer) Restore(keys []string) {
	b.order = b.order[:0]
	clear(b.at)
	for _, k := range keys {
		at, _ := markerTime(k)
		b.Add(k, at)
	}
}

// Trim drops the oldest markers down to target once the buffer exceeds its limit. Markers with a time
// after windowStart survive regardless.
func (b *MarkerBuffer) Trim(windowStart time.Time) {
	if len(b.order) <= b.limit {
		return
	}
	drop := len(b.order) - b.target
	kept := make([]string, 0, b.target)
	for _, k := range b.order {
		if drop > 0 && !b.at[k].After(windowStart) {
			delete(b.at, k)
			drop--
			continue
		}
		kept = append(kept, k)
	}
	b.order = kept
}
