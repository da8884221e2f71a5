package graph

import (
	"fmt"
	"sync/atomic"
)

// Graph is the materialized concept graph. It is immutable after Build, so
// concurrent readers need no synchronization; a data refresh builds a new
// Graph and publishes it through a Ref.
type Graph struct {
	questions    map[string]*Question
	ordered      []*Question // curriculum order, ties broken by id
	concepts     map[string]*Concept
	subConcepts  map[string]*SubConcept
	byConcept    map[string][]*Question
	bySubConcept map[string][]*Question
}

// Question returns the question with the given id.
func (g *Graph) Question(id string) (*Question, bool) {
	q, ok := g.questions[id]
	return q, ok
}

// Questions returns every question in curriculum order.
func (g *Graph) Questions() []*Question {
	return append([]*Question(nil), g.ordered...)
}

// Concept returns the concept with the given name.
func (g *Graph) Concept(name string) (*Concept, bool) {
	c, ok := g.concepts[name]
	return c, ok
}

// SubConcept returns the subconcept with the given name.
func (g *Graph) SubConcept(name string) (*SubConcept, bool) {
	sc, ok := g.subConcepts[name]
	return sc, ok
}

// QuestionsForConcept returns the questions requiring the named concept, in
// record order.
func (g *Graph) QuestionsForConcept(name string) []*Question {
	return append([]*Question(nil), g.byConcept[name]...)
}

// QuestionsForSubConcept returns the questions requiring the named
// subconcept, in record order.
func (g *Graph) QuestionsForSubConcept(name string) []*Question {
	return append([]*Question(nil), g.bySubConcept[name]...)
}

// Stats summarizes the graph population.
type Stats struct {
	Questions   int `json:"questions"`
	Concepts    int `json:"concepts"`
	SubConcepts int `json:"subconcepts"`
}

// Stats returns population counts for the graph.
func (g *Graph) Stats() Stats {
	return Stats{
		Questions:   len(g.questions),
		Concepts:    len(g.concepts),
		SubConcepts: len(g.subConcepts),
	}
}

// concept returns the named concept, creating it on first mention.
func (g *Graph) concept(name string) *Concept {
	if c, ok := g.concepts[name]; ok {
		return c
	}
	c := &Concept{Name: name}
	g.concepts[name] = c
	return c
}

// subConcept returns the named subconcept, creating it under parent on first
// mention. A subconcept has exactly one parent; a repeat mention under a
// different parent is a data error.
func (g *Graph) subConcept(name string, parent *Concept) (*SubConcept, error) {
	if sc, ok := g.subConcepts[name]; ok {
		if sc.Parent != parent {
			return nil, fmt.Errorf("subconcept %q already owned by concept %q", name, sc.Parent.Name)
		}
		return sc, nil
	}
	sc := &SubConcept{Name: name, Parent: parent}
	g.subConcepts[name] = sc
	parent.SubConcepts = append(parent.SubConcepts, sc)
	return sc, nil
}

// Ref publishes the current graph to concurrent readers. A rebuild stores a
// new graph; in-flight requests keep the snapshot they loaded.
type Ref struct {
	ptr atomic.Pointer[Graph]
}

// NewRef creates a Ref holding g.
func NewRef(g *Graph) *Ref {
	r := &Ref{}
	r.ptr.Store(g)
	return r
}

// Load returns the current graph.
func (r *Ref) Load() *Graph {
	return r.ptr.Load()
}

// Store atomically replaces the current graph.
func (r *Ref) Store(g *Graph) {
	r.ptr.Store(g)
}
