// Package progress tracks per-student attempts and mastery. The tracker owns
// the mutable state the recommendation engine reads; persistence is delegated
// to a pluggable Store hook.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fastwise/tutr/internal/graph"
)

// ErrStudentNotFound is returned by read-only operations that require a
// pre-existing student record. Mutating operations create records on demand
// and never return it.
var ErrStudentNotFound = errors.New("student not found")

// QuestionState is a student's state for one question.
type QuestionState struct {
	Attempts int  `json:"attempts"`
	Mastered bool `json:"mastered,omitempty"`
}

// StudentRecord is the persisted progress record for one student.
type StudentRecord struct {
	StudentID   string                   `json:"student_id"`
	Questions   map[string]QuestionState `json:"questions"`
	Concepts    map[string]bool          `json:"concepts"`
	SubConcepts map[string]bool          `json:"subconcepts"`
	CreatedAt   time.Time                `json:"created_at"`
	LastActive  time.Time                `json:"last_active"`
}

func newStudentRecord(studentID string) *StudentRecord {
	now := time.Now()
	return &StudentRecord{
		StudentID:   studentID,
		Questions:   make(map[string]QuestionState),
		Concepts:    make(map[string]bool),
		SubConcepts: make(map[string]bool),
		CreatedAt:   now,
		LastActive:  now,
	}
}

// clone deep-copies the record so snapshots never alias tracker state.
func (r *StudentRecord) clone() *StudentRecord {
	c := *r
	c.Questions = make(map[string]QuestionState, len(r.Questions))
	for k, v := range r.Questions {
		c.Questions[k] = v
	}
	c.Concepts = make(map[string]bool, len(r.Concepts))
	for k, v := range r.Concepts {
		c.Concepts[k] = v
	}
	c.SubConcepts = make(map[string]bool, len(r.SubConcepts))
	for k, v := range r.SubConcepts {
		c.SubConcepts[k] = v
	}
	return &c
}

// student pairs a record with the mutex that serializes its mutations.
// Operations on different students never contend on the same lock.
type student struct {
	mu     sync.Mutex
	rec    *StudentRecord // nil until loaded
	loaded bool
}

// TrackerConfig holds dependencies for the progress tracker.
type TrackerConfig struct {
	Store  Store       // persistence hook, memory-only when nil
	Events EventLogger // progress event sink, NopEventLogger when nil
}

// Tracker maintains per-student progress with create-on-demand semantics.
type Tracker struct {
	mu       sync.Mutex
	students map[string]*student
	store    Store
	events   EventLogger
}

// NewTracker creates a progress tracker.
func NewTracker(cfg TrackerConfig) *Tracker {
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	return &Tracker{
		students: make(map[string]*student),
		store:    cfg.Store,
		events:   events,
	}
}

// RecordAttempt increments the attempt count for a question. Repeated calls
// accumulate; the count feeds the engine's tie-breaking.
func (t *Tracker) RecordAttempt(ctx context.Context, studentID, questionID string) error {
	if studentID == "" || questionID == "" {
		return fmt.Errorf("student id and question id are required")
	}

	err := t.mutate(ctx, studentID, func(rec *StudentRecord) {
		st := rec.Questions[questionID]
		st.Attempts++
		rec.Questions[questionID] = st
	})
	if err != nil {
		return err
	}

	t.logEvent(Event{
		StudentID:  studentID,
		QuestionID: questionID,
		Type:       EventAttempt,
	})
	return nil
}

// MarkCompletion records a completion. With mastered=true the question is
// promoted to Mastered (terminal) and concept/subconcept mastery is
// recomputed against g; with mastered=false the attempt history stays as is
// and an existing Mastered state is never reverted.
func (t *Tracker) MarkCompletion(ctx context.Context, g *graph.Graph, studentID, questionID string, mastered bool) error {
	if studentID == "" || questionID == "" {
		return fmt.Errorf("student id and question id are required")
	}

	err := t.mutate(ctx, studentID, func(rec *StudentRecord) {
		st := rec.Questions[questionID]
		if mastered {
			st.Mastered = true
		}
		rec.Questions[questionID] = st
		if mastered {
			propagateMastery(g, rec, questionID)
		}
	})
	if err != nil {
		return err
	}

	t.logEvent(Event{
		StudentID:  studentID,
		QuestionID: questionID,
		Type:       EventCompletion,
		Data:       map[string]any{"mastered": mastered},
	})
	return nil
}

// Snapshot returns a consistent view of a student's progress for the
// recommendation engine. Unknown students yield an empty snapshot.
func (t *Tracker) Snapshot(ctx context.Context, studentID string) Snapshot {
	s := t.lookupOrLoad(ctx, studentID)
	if s == nil {
		return Snapshot{StudentID: studentID}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return Snapshot{StudentID: studentID}
	}
	return snapshotOf(s.rec)
}

// Summary returns a progress summary, empty for unknown students.
func (t *Tracker) Summary(ctx context.Context, studentID string) Summary {
	return summaryOf(t.Snapshot(ctx, studentID))
}

// AuditSummary returns a progress summary and fails with ErrStudentNotFound
// when no record exists for the student.
func (t *Tracker) AuditSummary(ctx context.Context, studentID string) (Summary, error) {
	s := t.lookupOrLoad(ctx, studentID)
	if s == nil {
		return Summary{}, fmt.Errorf("student %q: %w", studentID, ErrStudentNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return Summary{}, fmt.Errorf("student %q: %w", studentID, ErrStudentNotFound)
	}
	return summaryOf(snapshotOf(s.rec)), nil
}

// mutate runs fn on the student's record under its lock, creating the record
// on demand, and writes the result through to the store.
func (t *Tracker) mutate(ctx context.Context, studentID string, fn func(*StudentRecord)) error {
	s := t.entry(studentID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.rec = t.loadRecord(ctx, studentID)
		s.loaded = true
	}
	if s.rec == nil {
		s.rec = newStudentRecord(studentID)
	}

	fn(s.rec)
	s.rec.LastActive = time.Now()

	if t.store != nil {
		if err := t.store.Save(ctx, s.rec.clone()); err != nil {
			return fmt.Errorf("save progress for %q: %w", studentID, err)
		}
	}
	return nil
}

// entry returns the per-student slot, creating it if needed.
func (t *Tracker) entry(studentID string) *student {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.students[studentID]
	if !ok {
		s = &student{}
		t.students[studentID] = s
	}
	return s
}

// lookupOrLoad returns the student's slot if it exists in memory or in the
// store, nil otherwise. A store hit is adopted into memory.
func (t *Tracker) lookupOrLoad(ctx context.Context, studentID string) *student {
	t.mu.Lock()
	s, ok := t.students[studentID]
	t.mu.Unlock()
	if ok {
		s.mu.Lock()
		if !s.loaded {
			s.rec = t.loadRecord(ctx, studentID)
			s.loaded = true
		}
		known := s.rec != nil
		s.mu.Unlock()
		if !known {
			return nil
		}
		return s
	}

	if t.store == nil {
		return nil
	}
	rec := t.loadRecord(ctx, studentID)
	if rec == nil {
		return nil
	}

	s = t.entry(studentID)
	s.mu.Lock()
	if !s.loaded {
		s.rec = rec
		s.loaded = true
	}
	s.mu.Unlock()
	return s
}

func (t *Tracker) loadRecord(ctx context.Context, studentID string) *StudentRecord {
	if t.store == nil {
		return nil
	}
	rec, err := t.store.Load(ctx, studentID)
	if err != nil {
		if !errors.Is(err, ErrStudentNotFound) {
			slog.Error("failed to load progress record", "student_id", studentID, "error", err)
		}
		return nil
	}
	return rec
}

func (t *Tracker) logEvent(e Event) {
	if err := t.events.LogEvent(e); err != nil {
		slog.Warn("failed to log progress event", "type", e.Type, "student_id", e.StudentID, "error", err)
	}
}

// propagateMastery recomputes mastery for every concept and subconcept the
// completed question requires: a node becomes mastered once every question
// requiring it is mastered. Mastery never reverts.
func propagateMastery(g *graph.Graph, rec *StudentRecord, questionID string) {
	if g == nil {
		return
	}
	q, ok := g.Question(questionID)
	if !ok {
		return
	}

	for _, c := range q.Concepts {
		if allMastered(rec, g.QuestionsForConcept(c.Name)) {
			rec.Concepts[c.Name] = true
		}
	}
	for _, sc := range q.SubConcepts {
		if allMastered(rec, g.QuestionsForSubConcept(sc.Name)) {
			rec.SubConcepts[sc.Name] = true
		}
	}
}

func allMastered(rec *StudentRecord, qs []*graph.Question) bool {
	for _, q := range qs {
		if !rec.Questions[q.ID].Mastered {
			return false
		}
	}
	return true
}

// Snapshot is a point-in-time view of one student's progress.
type Snapshot struct {
	StudentID           string
	MasteredQuestions   map[string]bool
	MasteredConcepts    map[string]bool
	MasteredSubConcepts map[string]bool
	Attempts            map[string]int
}

// QuestionMastered reports whether the student has mastered the question.
func (s Snapshot) QuestionMastered(id string) bool { return s.MasteredQuestions[id] }

// ConceptMastered reports whether the student has mastered the concept.
func (s Snapshot) ConceptMastered(name string) bool { return s.MasteredConcepts[name] }

// SubConceptMastered reports whether the student has mastered the subconcept.
func (s Snapshot) SubConceptMastered(name string) bool { return s.MasteredSubConcepts[name] }

// AttemptCount returns the student's attempt count for the question.
func (s Snapshot) AttemptCount(id string) int { return s.Attempts[id] }

func snapshotOf(rec *StudentRecord) Snapshot {
	snap := Snapshot{
		StudentID:           rec.StudentID,
		MasteredQuestions:   make(map[string]bool),
		MasteredConcepts:    make(map[string]bool, len(rec.Concepts)),
		MasteredSubConcepts: make(map[string]bool, len(rec.SubConcepts)),
		Attempts:            make(map[string]int),
	}
	for id, st := range rec.Questions {
		if st.Mastered {
			snap.MasteredQuestions[id] = true
		}
		if st.Attempts > 0 {
			snap.Attempts[id] = st.Attempts
		}
	}
	for name, v := range rec.Concepts {
		if v {
			snap.MasteredConcepts[name] = true
		}
	}
	for name, v := range rec.SubConcepts {
		if v {
			snap.MasteredSubConcepts[name] = true
		}
	}
	return snap
}

// Summary is the reporting view of a student's progress. ID slices are
// sorted for stable output.
type Summary struct {
	StudentID             string         `json:"student_id"`
	MasteredQuestionIDs   []string       `json:"mastered_question_ids"`
	MasteredConceptIDs    []string       `json:"mastered_concept_ids"`
	MasteredSubConceptIDs []string       `json:"mastered_subconcept_ids"`
	AttemptCounts         map[string]int `json:"attempt_counts"`
}

func summaryOf(snap Snapshot) Summary {
	sum := Summary{
		StudentID:             snap.StudentID,
		MasteredQuestionIDs:   sortedKeys(snap.MasteredQuestions),
		MasteredConceptIDs:    sortedKeys(snap.MasteredConcepts),
		MasteredSubConceptIDs: sortedKeys(snap.MasteredSubConcepts),
		AttemptCounts:         snap.Attempts,
	}
	if sum.AttemptCounts == nil {
		sum.AttemptCounts = map[string]int{}
	}
	return sum
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
