/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package discovery defines the shape of a target-resolution
// collaborator for deployments that front this engine with a
// service-discovery or load-balancing layer. As with ldapauth, the
// engine ships no client of its own; this package stops at the
// interface.
package discovery

import "context"

// Target is one resolved upstream address.
type Target struct {
	Address string
	Weight  int
}

// TargetResolver resolves a logical service name to a set of concrete
// targets. Nothing in this engine calls it directly; it exists so a
// reverse-proxy deployment built on top of this core has a named seam
// to plug discovery into.
type TargetResolver interface {
	Resolve(ctx context.Context, service string) ([]Target, error)
}
