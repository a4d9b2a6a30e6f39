package state

import (
	"context"
)

type Mode string

const (
	ModeCursor  Mode = "cursor"
	ModeSeenSet Mode = "seen_set"
)

// State records which canonical URLs have been announced. It has a single
// writer: the pipeline cycle holding the scheduler gate.
type State interface {
	Mode() Mode
	IsAnnounced(canonicalURL string) bool
	Commit(canonicalURL string)
	Flush(ctx context.Context) error
	Len() int
}

// Cursor remembers only the most recently announced item.
type Cursor struct {
	last string
}

var _ State = (*Cursor)(nil)

func NewCursor() *Cursor {
	return &Cursor{}
}

func (c *Cursor) Mode() Mode {
	return ModeCursor
}

func (c *Cursor) IsAnnounced(canonicalURL string) bool {
	return c.last != "" && c.last == canonicalURL
}

func (c *Cursor) Commit(canonicalURL string) {
	c.last = canonicalURL
}

func (c *Cursor) Last() string {
	return c.last
}

func (c *Cursor) Flush(ctx context.Context) error {
	return nil
}

func (c *Cursor) Len() int {
	if c.last == "" {
		return 0
	}
	return 1
}
