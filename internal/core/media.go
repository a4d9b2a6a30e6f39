package core

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"time"

	"gamewatch/internal/cache"
	"gamewatch/internal/types"
)

var (
	gif87a = []byte("GIF87a")
	gif89a = []byte("GIF89a")
)

type probeResult struct {
	data  []byte
	isGIF bool
}

type ResolverConfig struct {
	PlaceholderURL string
	AttachmentName string
	CacheTTL       time.Duration
	Logger         *slog.Logger
	Hooks          Hooks
}

// Resolver picks exactly one image presentation for an item. Only the
// animated reference is ever downloaded.
type Resolver struct {
	downloader     Downloader
	placeholderURL string
	attachmentName string
	probes         *cache.Cache[string, probeResult]
	logger         *slog.Logger
	hooks          Hooks
}

func NewResolver(downloader Downloader, config ResolverConfig) *Resolver {
	if config.AttachmentName == "" {
		config.AttachmentName = "game.gif"
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Resolver{
		downloader:     downloader,
		placeholderURL: config.PlaceholderURL,
		attachmentName: config.AttachmentName,
		probes: cache.NewCache[string, probeResult](
			cache.CacheConfig{TTL: config.CacheTTL, Logger: config.Logger},
			func(u string) string { return "media:" + u },
		),
		logger: config.Logger,
		hooks:  config.Hooks,
	}
}

func (r *Resolver) Resolve(ctx context.Context, item types.CatalogItem) types.MediaDecision {
	decision, cached := r.resolve(ctx, item)
	r.hooks.media(decision.Kind, cached)
	return decision
}

func (r *Resolver) resolve(ctx context.Context, item types.CatalogItem) (types.MediaDecision, bool) {
	if ValidImageRef(item.AnimatedImageRef) {
		animated := strings.TrimSpace(item.AnimatedImageRef)

		probe, cached := r.probes.Get(animated)
		if !cached {
			var ok bool
			probe, ok = r.probe(ctx, animated)
			if !ok {
				return types.Placeholder(r.placeholderURL), false
			}
			r.probes.Set(animated, probe)
		}

		if probe.isGIF {
			return types.AttachBytes(probe.data, r.attachmentName), cached
		}
		return types.ReferenceURL(animated), cached
	}

	if ValidImageRef(item.StaticImageRef) {
		return types.ReferenceURL(strings.TrimSpace(item.StaticImageRef)), false
	}

	return types.Placeholder(r.placeholderURL), false
}

// probe downloads url once. It reports false when the media is unreachable.
func (r *Resolver) probe(ctx context.Context, url string) (probeResult, bool) {
	data, err := r.downloader.Download(ctx, url)
	if err != nil {
		if types.IsFetchKind(err, types.FetchTooLarge) {
			r.logger.Info("Animated image too large to attach", "media_url", url)
			return probeResult{}, true
		}
		r.logger.Warn("Animated image download failed", "media_url", url, "error", err)
		return probeResult{}, false
	}

	if IsGIF(data) {
		return probeResult{data: data, isGIF: true}, true
	}
	return probeResult{}, true
}

// ValidImageRef rejects empty references, the literal "null" and inline data
// URIs.
func ValidImageRef(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false
	}
	if strings.EqualFold(ref, "null") {
		return false
	}
	if len(ref) >= 5 && strings.EqualFold(ref[:5], "data:") {
		return false
	}
	return true
}

func IsGIF(data []byte) bool {
	return bytes.HasPrefix(data, gif87a) || bytes.HasPrefix(data, gif89a)
}
