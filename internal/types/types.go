package types

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type CatalogItem struct {
	Title            string
	Identifier       string
	CanonicalURL     string
	StaticImageRef   string
	AnimatedImageRef string
	PublishedAt      time.Time
}

// NewCatalogItem is the only way to build an item. Entries without a title or
// identifier are rejected so fetchers can skip them.
func NewCatalogItem(title, identifier, playBaseURL string) (CatalogItem, error) {
	title = strings.TrimSpace(title)
	identifier = strings.TrimSpace(identifier)

	if title == "" {
		return CatalogItem{}, fmt.Errorf("catalog item: title is required")
	}
	if identifier == "" {
		return CatalogItem{}, fmt.Errorf("catalog item: identifier is required")
	}

	return CatalogItem{
		Title:        title,
		Identifier:   identifier,
		CanonicalURL: CanonicalURL(playBaseURL, identifier),
	}, nil
}

func CanonicalURL(playBaseURL, identifier string) string {
	return strings.TrimRight(playBaseURL, "/") + "/" + url.PathEscape(identifier)
}

type MediaKind int

const (
	MediaPlaceholder MediaKind = iota
	MediaReferenceURL
	MediaAttachBytes
)

func (k MediaKind) String() string {
	switch k {
	case MediaAttachBytes:
		return "attach_bytes"
	case MediaReferenceURL:
		return "reference_url"
	default:
		return "placeholder"
	}
}

// MediaDecision carries exactly one image presentation for an item.
type MediaDecision struct {
	Kind     MediaKind
	URL      string
	Data     []byte
	Filename string
}

func AttachBytes(data []byte, filename string) MediaDecision {
	return MediaDecision{Kind: MediaAttachBytes, Data: data, Filename: filename}
}

func ReferenceURL(u string) MediaDecision {
	return MediaDecision{Kind: MediaReferenceURL, URL: u}
}

func Placeholder(u string) MediaDecision {
	return MediaDecision{Kind: MediaPlaceholder, URL: u}
}

// Summary is the rich message announcing one item.
type Summary struct {
	Title       string
	URL         string
	Description string
	Footer      string
	Color       int
	Media       MediaDecision
}
