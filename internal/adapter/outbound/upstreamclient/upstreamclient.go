// Package upstreamclient builds one *http.Client per route at startup,
// honoring the route's connect timeout and optional egress proxy. Clients
// are never constructed per request: connection reuse is a property of the
// underlying transport.
package upstreamclient

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"github.com/Sentinel-Gate/aigatewayd/internal/domain/upstream"
)

// New builds an *http.Client for u. The client applies no total-request
// timeout: the pipeline enforces the request timeout selectively (SSE vs
// non-SSE), so it must not be baked into the transport or client.
func New(u upstream.Upstream) (*http.Client, error) {
	connectTimeout := time.Duration(u.ConnectTimeoutMS) * time.Millisecond

	dialer := &net.Dialer{Timeout: connectTimeout}

	transport := &http.Transport{
		Proxy:                 nil,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   32,
	}

	if u.Proxy != nil {
		if err := applyProxy(transport, dialer, *u.Proxy); err != nil {
			return nil, fmt.Errorf("configure egress proxy: %w", err)
		}
	}

	return &http.Client{
		Transport: transport,
		// No Timeout: the pipeline drives cancellation via context per
		// §4.7's SSE/non-SSE regime, not a blanket client deadline.
	}, nil
}

// DialUpgrade opens a raw connection to u's host and writes req to it,
// bypassing the pooled *http.Client: a protocol-upgrade handshake hands the
// connection itself to the caller rather than completing a single
// request/response cycle, so it cannot go through Transport's connection
// reuse. Egress proxying is not supported for upgrade requests; u.Proxy is
// ignored here.
func DialUpgrade(ctx context.Context, u upstream.Upstream, req *http.Request) (*http.Response, net.Conn, error) {
	dialer := &net.Dialer{Timeout: time.Duration(u.ConnectTimeoutMS) * time.Millisecond}

	host := u.BaseURL.Host
	if !strings.Contains(host, ":") {
		if u.BaseURL.Scheme == "https" {
			host += ":443"
		} else {
			host += ":80"
		}
	}

	conn, err := dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		return nil, nil, fmt.Errorf("dial upstream: %w", err)
	}

	if u.BaseURL.Scheme == "https" {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: u.BaseURL.Hostname()})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("TLS handshake: %w", err)
		}
		conn = tlsConn
	}

	if err := req.Write(conn); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("write upgrade request: %w", err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("read upgrade response: %w", err)
	}

	return resp, conn, nil
}

func applyProxy(transport *http.Transport, dialer *net.Dialer, p upstream.Proxy) error {
	switch p.Protocol {
	case upstream.ProxyHTTP, upstream.ProxyHTTPS:
		scheme := string(p.Protocol)
		proxyURL := &url.URL{Scheme: scheme, Host: p.Address}
		if p.Username != "" {
			proxyURL.User = url.UserPassword(p.Username, p.Password)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		return nil
	case upstream.ProxySOCKS:
		var auth *proxy.Auth
		if p.Username != "" {
			auth = &proxy.Auth{User: p.Username, Password: p.Password}
		}
		socksDialer, err := proxy.SOCKS5("tcp", p.Address, auth, dialer)
		if err != nil {
			return fmt.Errorf("build socks5 dialer: %w", err)
		}
		contextDialer, ok := socksDialer.(proxy.ContextDialer)
		if !ok {
			return fmt.Errorf("socks5 dialer does not support context dialing")
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return contextDialer.DialContext(ctx, network, addr)
		}
		return nil
	default:
		return fmt.Errorf("unknown egress proxy protocol %q", p.Protocol)
	}
}
