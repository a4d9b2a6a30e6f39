package core

import (
	"context"
	"testing"
	"time"

	"gamewatch/internal/types"

	"github.com/google/go-cmp/cmp"
)

const placeholder = "https://play.aicade.io/logo.png"

func newTestResolver(d Downloader) *Resolver {
	return NewResolver(d, ResolverConfig{
		PlaceholderURL: placeholder,
		CacheTTL:       time.Minute,
		Logger:         discardLogger(),
	})
}

func TestResolve(t *testing.T) {
	gif := []byte("GIF89a\x01\x00\x01\x00")
	oldGIF := []byte("GIF87a\x01\x00")
	png := []byte("\x89PNG\r\n\x1a\n")

	tests := []struct {
		name     string
		animated string
		static   string
		want     types.MediaDecision
	}{
		{
			name:     "gif is attached",
			animated: "https://cdn.test/a.gif",
			static:   "https://cdn.test/c.png",
			want:     types.AttachBytes(gif, "game.gif"),
		},
		{
			name:     "gif87a is attached",
			animated: "https://cdn.test/old.gif",
			want:     types.AttachBytes(oldGIF, "game.gif"),
		},
		{
			name:     "non gif bytes are referenced",
			animated: "https://cdn.test/fake.gif",
			static:   "https://cdn.test/c.png",
			want:     types.ReferenceURL("https://cdn.test/fake.gif"),
		},
		{
			name:     "null animated falls back to static",
			animated: "null",
			static:   "https://cdn.test/c.png",
			want:     types.ReferenceURL("https://cdn.test/c.png"),
		},
		{
			name:     "NULL is also invalid",
			animated: "NULL",
			static:   "https://cdn.test/c.png",
			want:     types.ReferenceURL("https://cdn.test/c.png"),
		},
		{
			name:     "download failure uses placeholder",
			animated: "https://cdn.test/missing.gif",
			static:   "https://cdn.test/c.png",
			want:     types.Placeholder(placeholder),
		},
		{
			name:     "oversize gif is referenced",
			animated: "https://cdn.test/huge.gif",
			want:     types.ReferenceURL("https://cdn.test/huge.gif"),
		},
		{
			name:   "data uri static uses placeholder",
			static: "data:image/png;base64,AAAA",
			want:   types.Placeholder(placeholder),
		},
		{
			name:   "whitespace static uses placeholder",
			static: "   ",
			want:   types.Placeholder(placeholder),
		},
		{
			name: "nothing uses placeholder",
			want: types.Placeholder(placeholder),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDownloader()
			d.responses["https://cdn.test/a.gif"] = download{data: gif}
			d.responses["https://cdn.test/old.gif"] = download{data: oldGIF}
			d.responses["https://cdn.test/fake.gif"] = download{data: png}
			d.responses["https://cdn.test/huge.gif"] = download{err: &types.FetchError{Kind: types.FetchTooLarge}}

			it := item("x")
			it.AnimatedImageRef = tt.animated
			it.StaticImageRef = tt.static

			got := newTestResolver(d).Resolve(context.Background(), it)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveStaticIsNotDownloaded(t *testing.T) {
	d := newFakeDownloader()
	it := item("x")
	it.StaticImageRef = "https://cdn.test/c.png"

	newTestResolver(d).Resolve(context.Background(), it)
	if len(d.calls) != 0 {
		t.Errorf("static reference was downloaded: %v", d.calls)
	}
}

func TestResolveCachesSuccessOnly(t *testing.T) {
	d := newFakeDownloader()
	d.responses["https://cdn.test/a.gif"] = download{data: []byte("GIF89a")}
	r := newTestResolver(d)

	ok := item("ok")
	ok.AnimatedImageRef = "https://cdn.test/a.gif"
	r.Resolve(context.Background(), ok)
	r.Resolve(context.Background(), ok)
	if got := d.calls["https://cdn.test/a.gif"]; got != 1 {
		t.Errorf("successful probe downloaded %d times, want 1", got)
	}

	bad := item("bad")
	bad.AnimatedImageRef = "https://cdn.test/missing.gif"
	r.Resolve(context.Background(), bad)
	r.Resolve(context.Background(), bad)
	if got := d.calls["https://cdn.test/missing.gif"]; got != 2 {
		t.Errorf("failed probe downloaded %d times, want 2", got)
	}
}

func TestResolveCachesOversizeAsReference(t *testing.T) {
	d := newFakeDownloader()
	d.responses["https://cdn.test/huge.gif"] = download{err: &types.FetchError{Kind: types.FetchTooLarge}}
	r := newTestResolver(d)

	huge := item("huge")
	huge.AnimatedImageRef = "https://cdn.test/huge.gif"
	for i := 0; i < 2; i++ {
		got := r.Resolve(context.Background(), huge)
		if diff := cmp.Diff(types.ReferenceURL("https://cdn.test/huge.gif"), got); diff != "" {
			t.Errorf("Resolve #%d mismatch (-want +got):\n%s", i+1, diff)
		}
	}
	if got := d.calls["https://cdn.test/huge.gif"]; got != 1 {
		t.Errorf("oversize media downloaded %d times, want 1", got)
	}
}

func TestValidImageRef(t *testing.T) {
	tests := map[string]bool{
		"":                       false,
		"  ":                     false,
		"null":                   false,
		"Null":                   false,
		"data:image/gif;base64,": false,
		"DATA:text/plain,hi":     false,
		"https://cdn.test/a.gif": true,
		"nullable.gif":           true,
	}
	for ref, want := range tests {
		if got := ValidImageRef(ref); got != want {
			t.Errorf("ValidImageRef(%q) = %v, want %v", ref, got, want)
		}
	}
}
