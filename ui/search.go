package ui

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"
)

// SearchFilter debounces query updates to protect UI latency.
type SearchFilter struct {
	mu          sync.RWMutex
	query       string
	activeQuery string
	timer       *time.Timer
	ctx         context.Context
	onChange    func()
}

const searchDebounce = 250 * time.Millisecond

func NewSearchFilter(ctx context.Context) *SearchFilter {
	return &SearchFilter{ctx: ctx}
}

func (s *SearchFilter) SetQuery(query string, onChange func()) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.query = strings.ToLower(strings.TrimSpace(query))
	s.onChange = onChange
	if s.ctx != nil && s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(searchDebounce, s.fire)
	} else {
		s.timer.Reset(searchDebounce)
	}
	s.mu.Unlock()
}

func (s *SearchFilter) ActiveQuery() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeQuery
}

func (s *SearchFilter) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
}

func (s *SearchFilter) fire() {
	if s == nil {
		return
	}
	if s.ctx != nil && s.ctx.Err() != nil {
		return
	}
	var cb func()
	s.mu.Lock()
	s.activeQuery = s.query
	cb = s.onChange
	s.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// fuzzyMaxDistance bounds edit-distance matching so short queries don't match
// everything. Scaled by query length below.
const fuzzyMaxDistance = 2

// RankMatches returns indices of candidates matching query, substring matches
// first, then near misses ordered by edit distance. Candidates are compared
// lowercase; an empty query matches nothing.
func RankMatches(query string, candidates []string) []int {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	maxDist := fuzzyMaxDistance
	if len(query) < 4 {
		maxDist = 1
	}

	type match struct {
		idx  int
		dist int
	}
	exact := make([]int, 0, len(candidates))
	fuzzy := make([]match, 0)
	for i, candidate := range candidates {
		lower := strings.ToLower(candidate)
		if strings.Contains(lower, query) {
			exact = append(exact, i)
			continue
		}
		best := maxDist + 1
		for _, segment := range strings.Split(lower, "/") {
			if d := levenshtein.ComputeDistance(query, segment); d < best {
				best = d
			}
		}
		if best <= maxDist {
			fuzzy = append(fuzzy, match{idx: i, dist: best})
		}
	}
	sort.SliceStable(fuzzy, func(i, j int) bool { return fuzzy[i].dist < fuzzy[j].dist })
	for _, m := range fuzzy {
		exact = append(exact, m.idx)
	}
	return exact
}
