package graph_test

import (
	"errors"
	"testing"

	"github.com/fastwise/tutr/internal/graph"
)

func validRecord(id string) graph.Record {
	return graph.Record{
		ID:               id,
		Title:            "Add two numbers",
		Content:          "What is 2 + 3?",
		Difficulty:       "Easy",
		StepNumber:       1,
		SubStepNumber:    1,
		SequenceNumber:   1,
		StandardConcepts: []string{"Addition"},
		KeyConcepts:      []string{"Single-digit addition"},
	}
}

func TestBuilder_Build(t *testing.T) {
	r1 := validRecord("q1")
	r2 := validRecord("q2")
	r2.SequenceNumber = 2
	r2.StandardConcepts = []string{"Addition", "Subtraction"}

	g, err := graph.NewBuilder(graph.BuilderConfig{}).Build([]graph.Record{r1, r2})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if got := g.Stats(); got.Questions != 2 || got.Concepts != 2 || got.SubConcepts != 1 {
		t.Errorf("Stats() = %+v, want 2 questions, 2 concepts, 1 subconcept", got)
	}

	q, ok := g.Question("q1")
	if !ok {
		t.Fatal("Question(q1) not found")
	}
	if q.Difficulty != graph.DifficultyEasy {
		t.Errorf("Difficulty = %v, want Easy", q.Difficulty)
	}
	if len(q.Concepts) != 1 || q.Concepts[0].Name != "Addition" {
		t.Errorf("Concepts = %v, want [Addition]", q.Concepts)
	}
	if len(q.SubConcepts) != 1 || q.SubConcepts[0].Parent.Name != "Addition" {
		t.Error("subconcept should be owned by the first standard concept")
	}
}

func TestBuilder_Validation(t *testing.T) {
	missingID := validRecord("")
	missingTitle := validRecord("q1")
	missingTitle.Title = "   "
	badStep := validRecord("q1")
	badStep.StepNumber = 0
	orphanKeys := validRecord("q1")
	orphanKeys.StandardConcepts = nil

	tests := []struct {
		name    string
		records []graph.Record
	}{
		{"missing id", []graph.Record{missingID}},
		{"missing title", []graph.Record{missingTitle}},
		{"duplicate id", []graph.Record{validRecord("q1"), validRecord("q1")}},
		{"non-positive step", []graph.Record{badStep}},
		{"key concepts without standard concepts", []graph.Record{orphanKeys}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := graph.NewBuilder(graph.BuilderConfig{}).Build(tt.records)
			var verr *graph.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Build() error = %v, want *ValidationError", err)
			}
		})
	}
}

func TestBuilder_AllOrNothing(t *testing.T) {
	bad := validRecord("q2")
	bad.StepNumber = -1

	g, err := graph.NewBuilder(graph.BuilderConfig{}).Build([]graph.Record{validRecord("q1"), bad})
	if err == nil {
		t.Fatal("Build() should reject the whole batch")
	}
	if g != nil {
		t.Error("Build() returned a partial graph alongside an error")
	}
}

func TestBuilder_GeneralConceptFallback(t *testing.T) {
	rec := validRecord("q1")
	rec.StandardConcepts = nil

	g, err := graph.NewBuilder(graph.BuilderConfig{GeneralConceptFallback: true}).Build([]graph.Record{rec})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	sc, ok := g.SubConcept("Single-digit addition")
	if !ok {
		t.Fatal("SubConcept not found")
	}
	if sc.Parent.Name != graph.GeneralConceptName {
		t.Errorf("Parent = %q, want %q", sc.Parent.Name, graph.GeneralConceptName)
	}
}

func TestBuilder_DeduplicatesConceptsByExactName(t *testing.T) {
	r1 := validRecord("q1")
	r2 := validRecord("q2")
	r2.SequenceNumber = 2
	r3 := validRecord("q3")
	r3.SequenceNumber = 3
	r3.StandardConcepts = []string{"addition"} // different case, distinct concept
	r3.KeyConcepts = nil

	g, err := graph.NewBuilder(graph.BuilderConfig{}).Build([]graph.Record{r1, r2, r3})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if got := g.Stats().Concepts; got != 2 {
		t.Errorf("Concepts = %d, want 2 (dedup is case-sensitive)", got)
	}

	c1, _ := g.Question("q1")
	c2, _ := g.Question("q2")
	if c1.Concepts[0] != c2.Concepts[0] {
		t.Error("repeated concept mention should reuse the same node")
	}
}

func TestBuilder_SubConceptOwnershipConflict(t *testing.T) {
	r1 := validRecord("q1")
	r2 := validRecord("q2")
	r2.SequenceNumber = 2
	r2.StandardConcepts = []string{"Subtraction"}

	_, err := graph.NewBuilder(graph.BuilderConfig{}).Build([]graph.Record{r1, r2})
	var verr *graph.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Build() error = %v, want ownership conflict ValidationError", err)
	}
}

func TestBuilder_UnknownDifficultyDefaultsToMedium(t *testing.T) {
	rec := validRecord("q1")
	rec.Difficulty = "impossible"

	g, err := graph.NewBuilder(graph.BuilderConfig{}).Build([]graph.Record{rec})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	q, _ := g.Question("q1")
	if q.Difficulty != graph.DifficultyMedium {
		t.Errorf("Difficulty = %v, want Medium", q.Difficulty)
	}
}

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in   string
		want graph.Difficulty
		ok   bool
	}{
		{"Easy", graph.DifficultyEasy, true},
		{"medium", graph.DifficultyMedium, true},
		{" HARD ", graph.DifficultyHard, true},
		{"", 0, false},
		{"trivial", 0, false},
	}

	for _, tt := range tests {
		got, ok := graph.ParseDifficulty(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseDifficulty(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
