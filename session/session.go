/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package session backs a session-lookup collaborator interface with
// gorilla/sessions. The engine never parses cookies itself beyond
// forwarding the raw Cookie header; this package is where a deployment
// that wants session-aware handlers plugs in a real cookie store,
// queried by exchange.Request's Headers alone.
package session

import (
	"net/http"

	"github.com/gorilla/sessions"
)

// Lookup resolves a session id out of a raw Cookie header value. Nothing
// in the engine calls it or stores its result; handlers that want a
// session id call it themselves.
type Lookup interface {
	SessionID(cookieHeader string) (id string, ok bool)
}

// CookieStore adapts gorilla/sessions.CookieStore to Lookup. name is the
// cookie name the store was registered under.
type CookieStore struct {
	store *sessions.CookieStore
	name  string
}

// NewCookieStore returns a Lookup backed by a keyed gorilla cookie store.
func NewCookieStore(name string, keyPairs ...[]byte) *CookieStore {
	return &CookieStore{store: sessions.NewCookieStore(keyPairs...), name: name}
}

// SessionID reconstructs a *http.Request carrying only the Cookie header
// so gorilla/sessions can decode its own envelope, then reports whether
// a non-empty session exists.
func (c *CookieStore) SessionID(cookieHeader string) (string, bool) {
	if cookieHeader == "" {
		return "", false
	}
	req := &http.Request{Header: http.Header{"Cookie": []string{cookieHeader}}}
	sess, err := c.store.Get(req, c.name)
	if err != nil || sess.IsNew {
		return "", false
	}
	id, ok := sess.Values["id"].(string)
	return id, ok && id != ""
}
