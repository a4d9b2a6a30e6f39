package state

import (
	"context"
	"log/slog"
)

// Persister stores the seen set as an ordered list of canonical URLs.
type Persister interface {
	Load(ctx context.Context) (urls []string, existed bool, err error)
	Save(ctx context.Context, urls []string) error
}

// SeenSet remembers every announced canonical URL. Commits only touch memory;
// Flush writes the whole set once per cycle.
type SeenSet struct {
	persister Persister
	logger    *slog.Logger
	order     []string
	seen      map[string]struct{}
	dirty     bool
	existed   bool
}

var _ State = (*SeenSet)(nil)

func NewSeenSet(persister Persister, logger *slog.Logger) *SeenSet {
	if logger == nil {
		logger = slog.Default()
	}
	return &SeenSet{
		persister: persister,
		logger:    logger,
		seen:      make(map[string]struct{}),
	}
}

// Load replaces the in-memory set with the persisted one. An absent file
// yields an empty set.
func (s *SeenSet) Load(ctx context.Context) error {
	urls, existed, err := s.persister.Load(ctx)
	if err != nil {
		return err
	}

	s.order = s.order[:0]
	s.seen = make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := s.seen[u]; ok {
			continue
		}
		s.seen[u] = struct{}{}
		s.order = append(s.order, u)
	}
	s.existed = existed
	s.dirty = false

	s.logger.Info("Seen set loaded", "count", len(s.order), "existed", existed)
	return nil
}

// Existed reports whether the last Load found persisted state.
func (s *SeenSet) Existed() bool {
	return s.existed
}

func (s *SeenSet) Mode() Mode {
	return ModeSeenSet
}

func (s *SeenSet) IsAnnounced(canonicalURL string) bool {
	_, ok := s.seen[canonicalURL]
	return ok
}

func (s *SeenSet) Commit(canonicalURL string) {
	if canonicalURL == "" {
		return
	}
	if _, ok := s.seen[canonicalURL]; ok {
		return
	}
	s.seen[canonicalURL] = struct{}{}
	s.order = append(s.order, canonicalURL)
	s.dirty = true
}

func (s *SeenSet) Dirty() bool {
	return s.dirty
}

// Flush persists the set when it changed since the last successful flush. A
// failed flush keeps the set dirty so the next cycle retries the write.
func (s *SeenSet) Flush(ctx context.Context) error {
	if !s.dirty {
		return nil
	}

	snapshot := make([]string, len(s.order))
	copy(snapshot, s.order)

	if err := s.persister.Save(ctx, snapshot); err != nil {
		return err
	}

	s.dirty = false
	s.existed = true
	s.logger.Debug("Seen set flushed", "count", len(snapshot))
	return nil
}

func (s *SeenSet) Len() int {
	return len(s.order)
}

func (s *SeenSet) URLs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
