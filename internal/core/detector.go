package core

import (
	"gamewatch/internal/state"
	"gamewatch/internal/types"
)

// Detect returns the fetched items that still need announcing, oldest first.
// fetched must be newest-first, as the catalog returns it.
func Detect(fetched []types.CatalogItem, st state.State) []types.CatalogItem {
	if len(fetched) == 0 {
		return nil
	}

	if st.Mode() == state.ModeCursor {
		newest := fetched[0]
		if st.IsAnnounced(newest.CanonicalURL) {
			return nil
		}
		return []types.CatalogItem{newest}
	}

	seen := make(map[string]struct{}, len(fetched))
	fresh := make([]types.CatalogItem, 0, len(fetched))
	for _, item := range fetched {
		if st.IsAnnounced(item.CanonicalURL) {
			continue
		}
		if _, dup := seen[item.CanonicalURL]; dup {
			continue
		}
		seen[item.CanonicalURL] = struct{}{}
		fresh = append(fresh, item)
	}

	for i, j := 0, len(fresh)-1; i < j; i, j = i+1, j-1 {
		fresh[i], fresh[j] = fresh[j], fresh[i]
	}

	return fresh
}
