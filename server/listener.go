/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package server

import (
	"net"
	"time"
)

const keepAlivePeriod = 3 * time.Minute

// tcpKeepAliveListener wraps a *net.TCPListener, enabling TCP keep-alive
// on every accepted connection so dead peers are eventually noticed.
type tcpKeepAliveListener struct {
	*net.TCPListener
}

func (l tcpKeepAliveListener) Accept() (net.Conn, error) {
	conn, err := l.AcceptTCP()
	if err != nil {
		return nil, err
	}
	conn.SetKeepAlive(true)
	conn.SetKeepAlivePeriod(keepAlivePeriod)
	return conn, nil
}

// Listen opens addr and wraps it with keep-alive tuning when it's a TCP
// listener.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if tcpLn, ok := ln.(*net.TCPListener); ok {
		return tcpKeepAliveListener{tcpLn}, nil
	}
	return ln, nil
}
