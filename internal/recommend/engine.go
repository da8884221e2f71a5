// Package recommend ranks the questions a student should see next. The
// engine is a pure function over an immutable concept graph and a progress
// snapshot: it writes nothing and returns identical output for identical
// input.
package recommend

import (
	"errors"
	"fmt"
	"sort"

	"github.com/fastwise/tutr/internal/graph"
	"github.com/fastwise/tutr/internal/progress"
)

// ErrConceptNotFound is returned by concept-scoped queries for concept names
// absent from the graph.
var ErrConceptNotFound = errors.New("concept not found")

const defaultMaxLimit = 20

// EngineConfig holds recommendation engine settings.
type EngineConfig struct {
	MaxLimit int // upper bound on returned questions per request (default 20)
}

// Engine computes ranked eligible-question lists.
type Engine struct {
	maxLimit int
}

// NewEngine creates a recommendation engine.
func NewEngine(cfg EngineConfig) *Engine {
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = defaultMaxLimit
	}
	return &Engine{maxLimit: maxLimit}
}

// Recommend returns up to limit eligible questions in deterministic rank
// order. An empty result means nothing is left to recommend; it is not an
// error.
func (e *Engine) Recommend(g *graph.Graph, snap progress.Snapshot, limit int) []*graph.Question {
	return e.rank(g, snap, g.Questions(), limit)
}

// RecommendByConcept runs the same pipeline restricted to questions that
// require the named concept.
func (e *Engine) RecommendByConcept(g *graph.Graph, snap progress.Snapshot, conceptName string, limit int) ([]*graph.Question, error) {
	if _, ok := g.Concept(conceptName); !ok {
		return nil, fmt.Errorf("concept %q: %w", conceptName, ErrConceptNotFound)
	}
	return e.rank(g, snap, g.QuestionsForConcept(conceptName), limit), nil
}

func (e *Engine) rank(g *graph.Graph, snap progress.Snapshot, candidates []*graph.Question, limit int) []*graph.Question {
	limit = e.clampLimit(limit)
	frontiers := newFrontierIndex(g, snap)

	eligible := make([]*graph.Question, 0, len(candidates))
	for _, q := range candidates {
		if isEligible(q, snap, frontiers) {
			eligible = append(eligible, q)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		return rankLess(eligible[i], eligible[j], snap)
	})

	if len(eligible) > limit {
		eligible = eligible[:limit]
	}
	return eligible
}

// clampLimit bounds a caller-supplied limit to [1, maxLimit].
func (e *Engine) clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > e.maxLimit {
		return e.maxLimit
	}
	return limit
}

// isEligible reports whether q may be recommended: it is not mastered, and
// every prerequisite concept and subconcept is either mastered or gated open
// by q itself being on that node's frontier.
func isEligible(q *graph.Question, snap progress.Snapshot, frontiers *frontierIndex) bool {
	if snap.QuestionMastered(q.ID) {
		return false
	}
	for _, c := range q.Concepts {
		if snap.ConceptMastered(c.Name) {
			continue
		}
		if !frontiers.conceptFrontier(c.Name).contains(q.ID) {
			return false
		}
	}
	for _, sc := range q.SubConcepts {
		if snap.SubConceptMastered(sc.Name) {
			continue
		}
		if !frontiers.subConceptFrontier(sc.Name).contains(q.ID) {
			return false
		}
	}
	return true
}

// rankLess is the engine's total order over eligible questions: curriculum
// position, then attempt count, then difficulty, then id.
func rankLess(a, b *graph.Question, snap progress.Snapshot) bool {
	if a.Position != b.Position {
		return a.Position.Less(b.Position)
	}
	if aa, ba := snap.AttemptCount(a.ID), snap.AttemptCount(b.ID); aa != ba {
		return aa < ba
	}
	if a.Difficulty != b.Difficulty {
		return a.Difficulty < b.Difficulty
	}
	return a.ID < b.ID
}

// frontier is the set of unmastered questions sharing the lowest curriculum
// position among those requiring one concept or subconcept. Letting the
// frontier question through keeps a fresh concept reachable without its
// prerequisite ever being pre-masterable.
type frontier map[string]struct{}

func (f frontier) contains(questionID string) bool {
	_, ok := f[questionID]
	return ok
}

// frontierIndex lazily computes and caches frontiers per node for one
// recommendation pass.
type frontierIndex struct {
	g           *graph.Graph
	snap        progress.Snapshot
	concepts    map[string]frontier
	subConcepts map[string]frontier
}

func newFrontierIndex(g *graph.Graph, snap progress.Snapshot) *frontierIndex {
	return &frontierIndex{
		g:           g,
		snap:        snap,
		concepts:    make(map[string]frontier),
		subConcepts: make(map[string]frontier),
	}
}

func (fi *frontierIndex) conceptFrontier(name string) frontier {
	if f, ok := fi.concepts[name]; ok {
		return f
	}
	f := computeFrontier(fi.g.QuestionsForConcept(name), fi.snap)
	fi.concepts[name] = f
	return f
}

func (fi *frontierIndex) subConceptFrontier(name string) frontier {
	if f, ok := fi.subConcepts[name]; ok {
		return f
	}
	f := computeFrontier(fi.g.QuestionsForSubConcept(name), fi.snap)
	fi.subConcepts[name] = f
	return f
}

func computeFrontier(qs []*graph.Question, snap progress.Snapshot) frontier {
	var best graph.Position
	found := false
	for _, q := range qs {
		if snap.QuestionMastered(q.ID) {
			continue
		}
		if !found || q.Position.Less(best) {
			best = q.Position
			found = true
		}
	}

	f := make(frontier)
	if !found {
		return f
	}
	for _, q := range qs {
		if snap.QuestionMastered(q.ID) {
			continue
		}
		if q.Position == best {
			f[q.ID] = struct{}{}
		}
	}
	return f
}
