// Package graph holds the immutable concept graph: concepts, subconcepts,
// questions, and the structural edges between them. A graph is built once
// from raw question records and shared read-only across requests.
package graph

import "strings"

// Difficulty is the ordinal difficulty of a question (Easy < Medium < Hard).
type Difficulty int

const (
	DifficultyEasy Difficulty = iota + 1
	DifficultyMedium
	DifficultyHard
)

func (d Difficulty) String() string {
	switch d {
	case DifficultyEasy:
		return "Easy"
	case DifficultyMedium:
		return "Medium"
	case DifficultyHard:
		return "Hard"
	default:
		return "Unknown"
	}
}

// ParseDifficulty maps a difficulty label to its ordinal, case-insensitively.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return DifficultyEasy, true
	case "medium":
		return DifficultyMedium, true
	case "hard":
		return DifficultyHard, true
	default:
		return 0, false
	}
}

// Position is a question's curriculum position. Positions order questions in
// intended teaching order but are not required to be unique.
type Position struct {
	Step     int `json:"step_no"`
	SubStep  int `json:"sub_step_no"`
	Sequence int `json:"sl_no"`
}

// Less reports whether p comes before o in lexicographic curriculum order.
func (p Position) Less(o Position) bool {
	if p.Step != o.Step {
		return p.Step < o.Step
	}
	if p.SubStep != o.SubStep {
		return p.SubStep < o.SubStep
	}
	return p.Sequence < o.Sequence
}

// Concept is a top-level learning topic, identified by unique name.
type Concept struct {
	Name        string
	SubConcepts []*SubConcept
}

// SubConcept is a specific skill nested under exactly one parent concept.
type SubConcept struct {
	Name   string
	Parent *Concept
}

// SolutionApproach is one named way of solving a question.
type SolutionApproach struct {
	Name        string `json:"approach_name" yaml:"approach_name"`
	Explanation string `json:"explanation" yaml:"explanation"`
}

// Question is a single educational question placed in the curriculum.
type Question struct {
	ID         string
	Title      string
	Content    string
	Difficulty Difficulty
	Position   Position

	// Concepts and SubConcepts are the question's prerequisites
	// (REQUIRES_CONCEPT / REQUIRES_SUBCONCEPT edges). Either may be empty.
	Concepts    []*Concept
	SubConcepts []*SubConcept

	Approaches []SolutionApproach
}

// Record is the raw question record shape supplied by external collaborators.
// Field names mirror the upstream question bank format.
type Record struct {
	ID                 string             `json:"id" yaml:"id"`
	Title              string             `json:"question_title" yaml:"question_title"`
	Content            string             `json:"question" yaml:"question"`
	Difficulty         string             `json:"difficulty" yaml:"difficulty"`
	StepNumber         int                `json:"step_no" yaml:"step_no"`
	SubStepNumber      int                `json:"sub_step_no" yaml:"sub_step_no"`
	SequenceNumber     int                `json:"sl_no" yaml:"sl_no"`
	StandardConcepts   []string           `json:"standard_concepts" yaml:"standard_concepts"`
	KeyConcepts        []string           `json:"sub_concepts" yaml:"sub_concepts"`
	SolutionApproaches []SolutionApproach `json:"solution_approaches" yaml:"solution_approaches"`
}
