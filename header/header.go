/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package header implements the case-insensitive header multimap shared
// by the HTTP/1.1 and HTTP/2 exchange pipelines.
package header

import (
	"net/textproto"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TimeFormat is the time format used for last-modified and date headers,
// RFC 5322 / RFC 7231 IMF-fixdate.
const TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

var timeFormats = []string{TimeFormat, time.RFC850, time.ANSIC}

// Store is an ordered, case-insensitive multimap of header name to values.
// Lookup canonicalizes the key; serialization preserves the canonical form
// of whichever key was first used to Add or Set a given name, and preserves
// insertion order across distinct names.
type Store struct {
	values map[string][]string
	order  []string
	frozen bool
}

// New returns an empty, mutable Store.
func New() *Store {
	return &Store{values: make(map[string][]string)}
}

func canon(key string) string {
	return textproto.CanonicalMIMEHeaderKey(key)
}

// ErrFinalized is returned by any mutating call once the store has been
// frozen by Freeze: written headers are immutable.
var ErrFinalized = errFinalized{}

type errFinalized struct{}

func (errFinalized) Error() string { return "header: store is finalized" }

// Freeze marks the store immutable. Subsequent Add/Set/Del calls return
// ErrFinalized instead of mutating state.
func (s *Store) Freeze() { s.frozen = true }

// Frozen reports whether Freeze has been called.
func (s *Store) Frozen() bool { return s.frozen }

// Add appends value under key, preserving any existing values.
func (s *Store) Add(key, value string) error {
	if s.frozen {
		return ErrFinalized
	}
	k := canon(key)
	if _, ok := s.values[k]; !ok {
		s.order = append(s.order, k)
	}
	s.values[k] = append(s.values[k], value)
	return nil
}

// Set replaces any existing values for key with the single value.
func (s *Store) Set(key, value string) error {
	if s.frozen {
		return ErrFinalized
	}
	k := canon(key)
	if _, ok := s.values[k]; !ok {
		s.order = append(s.order, k)
	}
	s.values[k] = []string{value}
	return nil
}

// Del removes all values for key.
func (s *Store) Del(key string) error {
	if s.frozen {
		return ErrFinalized
	}
	k := canon(key)
	if _, ok := s.values[k]; ok {
		delete(s.values, k)
		for i, name := range s.order {
			if name == k {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Get returns the first value for key, or "" if absent.
func (s *Store) Get(key string) string {
	v := s.values[canon(key)]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// Values returns all values for key, in insertion order. The returned
// slice must not be mutated by the caller.
func (s *Store) Values(key string) []string {
	return s.values[canon(key)]
}

// Has reports whether key has at least one value.
func (s *Store) Has(key string) bool {
	return len(s.values[canon(key)]) > 0
}

// Names returns the canonical names present, in first-insertion order.
func (s *Store) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Clone returns a deep, unfrozen copy.
func (s *Store) Clone() *Store {
	out := New()
	for _, k := range s.order {
		vs := s.values[k]
		cp := make([]string, len(vs))
		copy(cp, vs)
		out.values[k] = cp
		out.order = append(out.order, k)
	}
	return out
}

// --- typed accessors -------------------------------------------------

// ContentType returns the "content-type" header value as stored.
func (s *Store) ContentType() string { return s.Get("Content-Type") }

// SetContentType sets the "content-type" header.
func (s *Store) SetContentType(mediaType string) error {
	return s.Set("Content-Type", mediaType)
}

// ContentLength returns the parsed "content-length" header and whether it
// was present and well-formed.
func (s *Store) ContentLength() (int64, bool) {
	v := s.Get("Content-Length")
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// SetContentLength sets the "content-length" header.
func (s *Store) SetContentLength(n int64) error {
	return s.Set("Content-Length", strconv.FormatInt(n, 10))
}

// IsChunked reports whether transfer-encoding is chunked.
func (s *Store) IsChunked() bool {
	for _, v := range s.Values("Transfer-Encoding") {
		for _, tok := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(tok), "chunked") {
				return true
			}
		}
	}
	return false
}

// Cookies splits the raw "cookie" request header into name/value pairs.
// This is the extent of cookie handling the engine performs: it forwards
// the raw header and offers this split for collaborators.
func (s *Store) Cookies() []Cookie {
	var out []Cookie
	for _, line := range s.Values("Cookie") {
		for _, part := range strings.Split(line, ";") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			name, value, ok := strings.Cut(part, "=")
			if !ok {
				continue
			}
			out = append(out, Cookie{Name: strings.TrimSpace(name), Value: value})
		}
	}
	return out
}

// Cookie is a single forwarded request cookie pair.
type Cookie struct {
	Name  string
	Value string
}

// ConnectionClose reports whether "connection: close" was requested.
func (s *Store) ConnectionClose() bool {
	for _, v := range s.Values("Connection") {
		for _, tok := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(tok), "close") {
				return true
			}
		}
	}
	return false
}

// SortedKeys returns the canonical names sorted lexically, used when
// wire serialization wants deterministic (not insertion) order.
func (s *Store) SortedKeys() []string {
	keys := s.Names()
	sort.Strings(keys)
	return keys
}

// FormatUnix renders a unix-seconds timestamp per RFC 5322 / the
// "Mon, 02 Jan 2006 15:04:05 GMT" wire format used by Last-Modified.
func FormatUnix(unixSec int64) string {
	return time.Unix(unixSec, 0).UTC().Format(TimeFormat)
}

// ParseTime parses a time header value against the three formats
// permitted by RFC 7231 (IMF-fixdate, RFC 850, asctime).
func ParseTime(text string) (time.Time, error) {
	var (
		t   time.Time
		err error
	)
	for _, layout := range timeFormats {
		t, err = time.Parse(layout, text)
		if err == nil {
			return t, nil
		}
	}
	return t, err
}
