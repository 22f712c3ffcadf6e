package forwarding

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/Sentinel-Gate/aigatewayd/internal/adapter/inbound/gatewayhttp"
	"github.com/Sentinel-Gate/aigatewayd/internal/adapter/outbound/metrics"
	"github.com/Sentinel-Gate/aigatewayd/internal/adapter/outbound/upstreamclient"
	"github.com/Sentinel-Gate/aigatewayd/internal/config"
	"github.com/Sentinel-Gate/aigatewayd/internal/domain/concurrency"
	"github.com/Sentinel-Gate/aigatewayd/internal/domain/ingress"
	"github.com/Sentinel-Gate/aigatewayd/internal/domain/ratelimit"
	"github.com/Sentinel-Gate/aigatewayd/internal/domain/route"
	"github.com/Sentinel-Gate/aigatewayd/internal/domain/upstream"
)

// Build translates a loaded Config into a running Pipeline: one upstream
// client and route runtime per configured route, the two concurrency
// gates, the rate limiter, the token allow-list, and the CORS policy. m is
// shared with the caller so admission-rejection counters and the generic
// request middleware record to the same registry.
func Build(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*Pipeline, error) {
	routes := make([]route.Route, 0, len(cfg.Routes))
	runtimes := make(map[string]RouteRuntime, len(cfg.Routes))
	upstreamCaps := make(map[string]int, len(cfg.Routes))

	for _, rc := range cfg.Routes {
		up, err := buildUpstream(rc.Upstream, cfg.Concurrency.UpstreamPerKeyMaxInflight)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", rc.ID, err)
		}

		rt := route.Route{ID: rc.ID, Prefix: rc.Prefix, Upstream: up}
		routes = append(routes, rt)

		client, err := upstreamclient.New(up)
		if err != nil {
			return nil, fmt.Errorf("route %q: build upstream client: %w", rc.ID, err)
		}

		digest, hasKey := KeyDigest(up)
		runtimes[rc.ID] = RouteRuntime{
			Route:             rt,
			Client:            client,
			KeyDigest:         digest,
			HasKey:            hasKey,
			PerKeyMaxInflight: up.PerKeyMaxInflight,
		}
		if hasKey && up.PerKeyMaxInflight > 0 {
			upstreamCaps[gateCapKey(rc.ID, digest)] = up.PerKeyMaxInflight
		}
	}

	tokenSources := make([]ingress.TokenSource, 0, len(cfg.Ingress.TokenSources))
	for _, ts := range cfg.Ingress.TokenSources {
		kind := ingress.SourceAuthorizationBearer
		if ts.Type == "header" {
			kind = ingress.SourceHeader
		}
		tokenSources = append(tokenSources, ingress.TokenSource{Kind: kind, HeaderName: ts.Name})
	}

	var corsPolicy *gatewayhttp.CORSPolicy
	if cfg.CORS.Enabled {
		corsPolicy = gatewayhttp.NewCORSPolicy(cfg.CORS)
	}

	return New(Config{
		Table:          route.NewTable(routes),
		Runtimes:       runtimes,
		TokenSources:   tokenSources,
		AllowList:      ingress.NewAllowList(cfg.Ingress.Tokens),
		RateLimiter:    ratelimit.NewFixedWindowLimiter(),
		RateEnabled:    cfg.RateLimit.Enabled,
		RatePerMinute:  cfg.RateLimit.PerMinute,
		DownstreamGate: concurrency.NewDownstreamGate(cfg.Concurrency.DownstreamMaxInflight),
		UpstreamGates:  concurrency.NewUpstreamGates(upstreamCaps),
		CORS:           corsPolicy,
		Logger:         logger,
		Metrics:        m,
	}), nil
}

// gateCapKey must match concurrency's internal route+digest composition so
// the cap map built here lines up with the keys UpstreamGates.TryAcquire
// looks up at request time.
func gateCapKey(routeID, digest string) string {
	return routeID + "\x00" + digest
}

func buildUpstream(uc config.UpstreamConfig, defaultPerKeyCap int) (upstream.Upstream, error) {
	base, err := url.Parse(uc.BaseURL)
	if err != nil {
		return upstream.Upstream{}, fmt.Errorf("parse base_url: %w", err)
	}

	headerPairs := make([]upstream.HeaderPair, 0, len(uc.InjectHeaders))
	for _, h := range uc.InjectHeaders {
		headerPairs = append(headerPairs, upstream.HeaderPair{Name: h.Name, Value: h.Value})
	}

	removeHeaders := make(map[string]struct{}, len(uc.RemoveHeaders))
	for _, h := range uc.RemoveHeaders {
		removeHeaders[h] = struct{}{}
	}

	var proxy *upstream.Proxy
	if uc.Proxy != nil {
		proxy = &upstream.Proxy{
			Protocol: upstream.ProxyProtocol(uc.Proxy.Protocol),
			Address:  uc.Proxy.Address,
			Username: uc.Proxy.Username,
			Password: uc.Proxy.Password,
		}
	}

	perKeyCap := uc.UpstreamPerKeyMaxInflight
	if perKeyCap == 0 {
		perKeyCap = defaultPerKeyCap
	}

	return upstream.Upstream{
		BaseURL:           base,
		StripPrefix:       uc.StripPrefixOrDefault(),
		ConnectTimeoutMS:  uc.ConnectTimeoutMS,
		RequestTimeoutMS:  uc.RequestTimeoutMS,
		InjectHeaders:     headerPairs,
		RemoveHeaders:     removeHeaders,
		ForwardXFF:        uc.ForwardXFF,
		Proxy:             proxy,
		PerKeyMaxInflight: perKeyCap,
	}, nil
}
