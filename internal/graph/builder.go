package graph

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// GeneralConceptName is the synthetic concept that owns key concepts of
// records listing no standard concepts, when the fallback is enabled.
const GeneralConceptName = "General"

// ValidationError rejects a whole build because of one malformed record.
type ValidationError struct {
	RecordID string // offending record id, empty if the id itself is missing
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("invalid question record: %s", e.Reason)
	}
	return fmt.Sprintf("invalid question record %q: %s", e.RecordID, e.Reason)
}

// BuilderConfig holds build policy knobs.
type BuilderConfig struct {
	// GeneralConceptFallback scopes key concepts of records with no standard
	// concepts under the synthetic "General" concept instead of rejecting
	// the record for ambiguous subconcept ownership.
	GeneralConceptFallback bool
}

// Builder validates raw question records and assembles a Graph.
// The build is all-or-nothing: any invalid record rejects the whole batch.
type Builder struct {
	generalFallback bool
}

// NewBuilder creates a builder.
func NewBuilder(cfg BuilderConfig) *Builder {
	return &Builder{generalFallback: cfg.GeneralConceptFallback}
}

// Build assembles an immutable graph from the given records.
func (b *Builder) Build(records []Record) (*Graph, error) {
	g := &Graph{
		questions:    make(map[string]*Question, len(records)),
		concepts:     make(map[string]*Concept),
		subConcepts:  make(map[string]*SubConcept),
		byConcept:    make(map[string][]*Question),
		bySubConcept: make(map[string][]*Question),
	}

	for _, rec := range records {
		q, err := b.buildQuestion(g, rec)
		if err != nil {
			return nil, err
		}
		g.questions[q.ID] = q
		g.ordered = append(g.ordered, q)
	}

	sort.Slice(g.ordered, func(i, j int) bool {
		a, b := g.ordered[i], g.ordered[j]
		if a.Position != b.Position {
			return a.Position.Less(b.Position)
		}
		return a.ID < b.ID
	})

	slog.Info("concept graph built",
		"questions", len(g.questions),
		"concepts", len(g.concepts),
		"subconcepts", len(g.subConcepts),
	)
	return g, nil
}

func (b *Builder) buildQuestion(g *Graph, rec Record) (*Question, error) {
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		return nil, &ValidationError{Reason: "missing id"}
	}
	if strings.TrimSpace(rec.Title) == "" {
		return nil, &ValidationError{RecordID: id, Reason: "missing question_title"}
	}
	if _, exists := g.questions[id]; exists {
		return nil, &ValidationError{RecordID: id, Reason: "duplicate id"}
	}
	if rec.StepNumber < 1 || rec.SubStepNumber < 1 || rec.SequenceNumber < 1 {
		return nil, &ValidationError{RecordID: id, Reason: "curriculum numbers must be positive"}
	}

	difficulty, ok := ParseDifficulty(rec.Difficulty)
	if !ok {
		// Unknown labels land in the middle of the ordinal scale so they
		// neither jump the queue nor sink to the bottom on ties.
		difficulty = DifficultyMedium
		slog.Warn("unknown difficulty, defaulting to Medium", "question_id", id, "difficulty", rec.Difficulty)
	}

	q := &Question{
		ID:         id,
		Title:      rec.Title,
		Content:    rec.Content,
		Difficulty: difficulty,
		Position: Position{
			Step:     rec.StepNumber,
			SubStep:  rec.SubStepNumber,
			Sequence: rec.SequenceNumber,
		},
		Approaches: append([]SolutionApproach(nil), rec.SolutionApproaches...),
	}

	standard := cleanNames(rec.StandardConcepts)
	keys := cleanNames(rec.KeyConcepts)

	if len(keys) > 0 && len(standard) == 0 && !b.generalFallback {
		return nil, &ValidationError{RecordID: id, Reason: "sub_concepts present but standard_concepts empty"}
	}

	for _, name := range standard {
		c := g.concept(name)
		q.Concepts = append(q.Concepts, c)
		g.byConcept[name] = append(g.byConcept[name], q)
	}

	if len(keys) > 0 {
		parentName := GeneralConceptName
		if len(standard) > 0 {
			parentName = standard[0]
		}
		parent := g.concept(parentName)
		for _, name := range keys {
			sc, err := g.subConcept(name, parent)
			if err != nil {
				return nil, &ValidationError{RecordID: id, Reason: err.Error()}
			}
			q.SubConcepts = append(q.SubConcepts, sc)
			g.bySubConcept[name] = append(g.bySubConcept[name], q)
		}
	}

	return q, nil
}

// cleanNames trims, NFC-normalizes, and drops empty or repeated names while
// preserving order. Deduplication stays case-sensitive.
func cleanNames(names []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = norm.NFC.String(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
