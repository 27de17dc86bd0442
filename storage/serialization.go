// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/pageindex/core"
)

// Record layout version. Bump when a field is added, removed or reordered.
const (
	cacheEntryVersion uint64 = 1
	historyVersion    uint64 = 1
)

// MarshalCacheEntry serializes a CacheEntry to bytes.
func MarshalCacheEntry(entry *core.CacheEntry) []byte {
	return marshal(func(w *writer) { writeCacheEntry(w, entry) })
}

// UnmarshalCacheEntry deserializes a CacheEntry from bytes.
func UnmarshalCacheEntry(data []byte) (*core.CacheEntry, error) {
	r := &reader{bs: data}
	entry := readCacheEntry(r)
	if err := r.finish(); err != nil {
		return nil, err
	}
	return entry, nil
}

// MarshalHistory serializes a session's history list to bytes.
func MarshalHistory(entries []core.HistoryEntry) []byte {
	return marshal(func(w *writer) {
		w.uint(historyVersion)
		w.uint(uint64(len(entries)))
		for _, e := range entries {
			w.str(e.Query)
			w.str(e.CacheKey)
			w.time(e.Timestamp)
		}
	})
}

// UnmarshalHistory deserializes a session's history list from bytes.
func UnmarshalHistory(data []byte) ([]core.HistoryEntry, error) {
	r := &reader{bs: data}
	r.version(historyVersion)
	n := r.length()
	entries := make([]core.HistoryEntry, 0, n)
	for range n {
		entries = append(entries, core.HistoryEntry{
			Query:     r.str(),
			CacheKey:  r.str(),
			Timestamp: r.time(),
		})
	}
	if err := r.finish(); err != nil {
		return nil, err
	}
	return entries, nil
}

func writeCacheEntry(w *writer, e *core.CacheEntry) {
	w.uint(cacheEntryVersion)
	w.str(e.Key)
	w.str(e.NormalizedQuery)
	w.str(e.Query)
	w.time(e.CachedAt)
	w.int(e.AccessCount)
	w.uint(e.Seq)
	w.bool(e.Result != nil)
	if e.Result == nil {
		return
	}
	out := e.Result
	w.str(out.Content)
	w.uint(uint64(len(out.Citations)))
	for _, c := range out.Citations {
		w.str(c.QuoteText)
		w.str(c.Speaker)
		w.str(c.EpisodeID)
		w.str(c.EpisodeTitle)
		w.str(c.Timestamp)
		w.str(c.DeepLink)
		w.bool(c.Verified)
		w.float(c.Similarity)
	}
	w.uint(uint64(len(out.Sources)))
	for _, s := range out.Sources {
		w.str(s.EpisodeID)
		w.str(s.Title)
		w.str(s.Guest)
		w.str(s.DeepLink)
	}
	w.uint(uint64(len(out.UnverifiedQuotes)))
	for _, q := range out.UnverifiedQuotes {
		w.str(q)
	}
	w.bool(out.ExecutiveSummary != nil)
	if out.ExecutiveSummary == nil {
		return
	}
	sum := out.ExecutiveSummary
	w.str(sum.MainInsight)
	w.uint(uint64(len(sum.SupportingPoints)))
	for _, p := range sum.SupportingPoints {
		w.str(p.ID)
		w.str(p.Label)
		w.str(p.Description)
		w.str(p.Color)
	}
	w.uint(uint64(len(sum.KeyQuotes)))
	for _, q := range sum.KeyQuotes {
		w.str(q.Text)
		w.str(q.Speaker)
		w.str(q.Timestamp)
		w.str(q.DeepLink)
		w.str(q.Supports)
	}
}

func readCacheEntry(r *reader) *core.CacheEntry {
	r.version(cacheEntryVersion)
	e := &core.CacheEntry{
		Key:             r.str(),
		NormalizedQuery: r.str(),
		Query:           r.str(),
		CachedAt:        r.time(),
		AccessCount:     r.int(),
		Seq:             r.uint(),
	}
	if !r.bool() {
		return e
	}
	out := &core.ResearchOutput{Content: r.str()}
	n := r.length()
	out.Citations = make([]core.Citation, 0, n)
	for range n {
		out.Citations = append(out.Citations, core.Citation{
			QuoteText:    r.str(),
			Speaker:      r.str(),
			EpisodeID:    r.str(),
			EpisodeTitle: r.str(),
			Timestamp:    r.str(),
			DeepLink:     r.str(),
			Verified:     r.bool(),
			Similarity:   r.float(),
		})
	}
	n = r.length()
	out.Sources = make([]core.Source, 0, n)
	for range n {
		out.Sources = append(out.Sources, core.Source{
			EpisodeID: r.str(),
			Title:     r.str(),
			Guest:     r.str(),
			DeepLink:  r.str(),
		})
	}
	n = r.length()
	out.UnverifiedQuotes = make([]string, 0, n)
	for range n {
		out.UnverifiedQuotes = append(out.UnverifiedQuotes, r.str())
	}
	e.Result = out
	if !r.bool() {
		return e
	}
	sum := &core.ExecutiveSummary{MainInsight: r.str()}
	n = r.length()
	sum.SupportingPoints = make([]core.SupportingPoint, 0, n)
	for range n {
		sum.SupportingPoints = append(sum.SupportingPoints, core.SupportingPoint{
			ID:          r.str(),
			Label:       r.str(),
			Description: r.str(),
			Color:       r.str(),
		})
	}
	n = r.length()
	sum.KeyQuotes = make([]core.KeyQuote, 0, n)
	for range n {
		sum.KeyQuotes = append(sum.KeyQuotes, core.KeyQuote{
			Text:      r.str(),
			Speaker:   r.str(),
			Timestamp: r.str(),
			DeepLink:  r.str(),
			Supports:  r.str(),
		})
	}
	out.ExecutiveSummary = sum
	return e
}

// marshal runs fn once to size the record and once to write it.
func marshal(fn func(w *writer)) []byte {
	sizer := &writer{}
	fn(sizer)
	w := &writer{bs: make([]byte, sizer.n)}
	fn(w)
	return w.bs[:w.n]
}

// writer accumulates MUS-encoded fields. A writer with a nil buffer only
// counts the bytes it would write.
type writer struct {
	bs []byte
	n  int
}

func (w *writer) str(v string) {
	if w.bs == nil {
		w.n += ord.String.Size(v)
		return
	}
	w.n += ord.String.Marshal(v, w.bs[w.n:])
}

func (w *writer) uint(v uint64) {
	if w.bs == nil {
		w.n += varint.Uint64.Size(v)
		return
	}
	w.n += varint.Uint64.Marshal(v, w.bs[w.n:])
}

func (w *writer) int(v int64) {
	if w.bs == nil {
		w.n += varint.Int64.Size(v)
		return
	}
	w.n += varint.Int64.Marshal(v, w.bs[w.n:])
}

func (w *writer) bool(v bool) {
	if w.bs == nil {
		w.n += ord.Bool.Size(v)
		return
	}
	w.n += ord.Bool.Marshal(v, w.bs[w.n:])
}

// float stores the IEEE 754 bits of v.
func (w *writer) float(v float64) {
	w.uint(math.Float64bits(v))
}

// time stores v as Unix microseconds; the zero time round-trips as zero.
func (w *writer) time(v time.Time) {
	if v.IsZero() {
		w.int(0)
		return
	}
	w.int(v.UnixMicro())
}

// reader decodes MUS-encoded fields and keeps the first error. Once an
// error is recorded every further read returns a zero value.
type reader struct {
	bs  []byte
	n   int
	err error
}

func (r *reader) str() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.bs[r.n:])
	r.advance(n, err)
	return v
}

func (r *reader) uint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(r.bs[r.n:])
	r.advance(n, err)
	return v
}

func (r *reader) int() int64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(r.bs[r.n:])
	r.advance(n, err)
	return v
}

func (r *reader) bool() bool {
	if r.err != nil {
		return false
	}
	v, n, err := ord.Bool.Unmarshal(r.bs[r.n:])
	r.advance(n, err)
	return v
}

func (r *reader) float() float64 {
	return math.Float64frombits(r.uint())
}

func (r *reader) time() time.Time {
	us := r.int()
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}

// length reads a collection length. Every element takes at least one byte,
// so a length beyond the remaining input means the data is truncated.
func (r *reader) length() int {
	n := r.uint()
	if r.err == nil && n > uint64(len(r.bs)-r.n) {
		r.err = ErrTruncatedData
		return 0
	}
	return int(n)
}

func (r *reader) version(want uint64) {
	got := r.uint()
	if r.err == nil && got != want {
		r.err = fmt.Errorf("%w: record version %d, want %d", ErrSerializationFailed, got, want)
	}
}

func (r *reader) advance(n int, err error) {
	if err != nil {
		r.err = fmt.Errorf("%w: %w", ErrSerializationFailed, err)
		return
	}
	r.n += n
}

func (r *reader) finish() error {
	if r.err != nil {
		return r.err
	}
	if r.n != len(r.bs) {
		return fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(r.bs)-r.n)
	}
	return nil
}
