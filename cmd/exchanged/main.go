/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Command exchanged is a thin demo binary wiring config, the ALPN
// negotiator, and the HTTP/1.1 + HTTP/2 connection loop together.
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/badu/exchange/config"
	"github.com/badu/exchange/convert"
	"github.com/badu/exchange/errorex"
	"github.com/badu/exchange/exchange"
	"github.com/badu/exchange/log"
	"github.com/badu/exchange/server"
)

// defaultConvertRegistry registers the converters the demo handler and
// error-exchange fallback need.
func defaultConvertRegistry() *convert.Registry {
	r := convert.NewRegistry()
	r.Register(convert.JSONConverter{})
	r.Register(convert.PlainTextConverter{})
	return r
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exchanged",
		Short: "exchanged serves the HTTP/1.1 + HTTP/2 exchange core over TLS",
		RunE:  runServe,
	}
	config.BindFlags(cmd.Flags())
	cmd.Flags().String("cert", "", "TLS certificate file (PEM)")
	cmd.Flags().String("key", "", "TLS private key file (PEM)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := log.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer logger.Sync()

	certFile, _ := cmd.Flags().GetString("cert")
	keyFile, _ := cmd.Flags().GetString("key")
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("exchanged: loading TLS keypair: %w", err)
	}

	nextProtos := make([]string, 0, len(cfg.ALPNProtocols))
	for _, p := range cfg.ALPNProtocols {
		nextProtos = append(nextProtos, string(p))
	}
	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   nextProtos,
		MinVersion:   tls.VersionTLS12,
	}

	ln, err := server.Listen(cfg.Addr)
	if err != nil {
		return fmt.Errorf("exchanged: listen: %w", err)
	}
	ln = tls.NewListener(ln, tlsCfg)
	defer ln.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	registry := defaultConvertRegistry()
	errEngine := errorex.New(logger, registry)

	connCfg := server.Config{
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	}

	logger.Info("exchanged listening", zap.String("addr", cfg.Addr), zap.Strings("alpn", nextProtos))

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			logger.Warn("accept failed", zap.Error(err))
			continue
		}
		c := server.New(nc, connCfg, echoHandler, nil, errEngine, logger)
		go c.Serve(ctx)
	}
}

// echoHandler is the demo handler: it mirrors the request body back as
// the response. Routing is the caller's concern, so there is exactly one
// handler slot and this is it.
func echoHandler(ex *exchange.Exchange) error {
	if err := ex.Response.Headers.SetContentType("text/plain"); err != nil {
		return err
	}
	return ex.Response.Body.SetRaw(ex.Request.Body)
}
