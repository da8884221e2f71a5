package api_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fastwise/tutr/internal/api"
	"github.com/fastwise/tutr/internal/graph"
	"github.com/fastwise/tutr/internal/progress"
	"github.com/fastwise/tutr/internal/recommend"
)

func record(id string, step, subStep, seq int, difficulty string, concepts ...string) graph.Record {
	return graph.Record{
		ID:               id,
		Title:            "title " + id,
		Content:          "content " + id,
		Difficulty:       difficulty,
		StepNumber:       step,
		SubStepNumber:    subStep,
		SequenceNumber:   seq,
		StandardConcepts: concepts,
	}
}

func build(t *testing.T, records ...graph.Record) *graph.Graph {
	t.Helper()
	g, err := graph.NewBuilder(graph.BuilderConfig{}).Build(records)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return g
}

func newTestServer(t *testing.T, cfg api.ServerConfig) *httptest.Server {
	t.Helper()
	if cfg.Graph == nil {
		cfg.Graph = graph.NewRef(build(t,
			record("q1", 1, 1, 1, "Easy", "Counting"),
			record("q2", 1, 1, 2, "Easy", "Counting"),
			record("q3", 1, 2, 1, "Medium", "Addition"),
		))
	}
	if cfg.Tracker == nil {
		cfg.Tracker = progress.NewTracker(progress.TrackerConfig{})
	}
	if cfg.Engine == nil {
		cfg.Engine = recommend.NewEngine(recommend.EngineConfig{})
	}
	srv := httptest.NewServer(api.NewServer(cfg).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	resp, err := http.Post(url, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

type questionsResponse struct {
	Questions []struct {
		ID string `json:"id"`
	} `json:"questions"`
}

func (r questionsResponse) ids() []string {
	out := make([]string, len(r.Questions))
	for i, q := range r.Questions {
		out[i] = q.ID
	}
	return out
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, api.ServerConfig{})

	for _, path := range []string{"/healthz", "/readyz"} {
		if status := getJSON(t, srv.URL+path, nil); status != http.StatusOK {
			t.Errorf("GET %s status = %d, want %d", path, status, http.StatusOK)
		}
	}
}

func TestServer_RecommendationFlow(t *testing.T) {
	srv := newTestServer(t, api.ServerConfig{})

	var got questionsResponse
	if status := getJSON(t, srv.URL+"/v1/students/alice/recommendations", &got); status != http.StatusOK {
		t.Fatalf("recommendations status = %d, want %d", status, http.StatusOK)
	}
	if len(got.Questions) != 1 || got.Questions[0].ID != "q1" {
		t.Fatalf("recommendations = %v, want [q1]", got.ids())
	}

	// Mastering q1 moves the student along to q2.
	if status := postJSON(t, srv.URL+"/v1/students/alice/completions", map[string]any{
		"question_id": "q1",
		"mastered":    true,
	}); status != http.StatusNoContent {
		t.Fatalf("completion status = %d, want %d", status, http.StatusNoContent)
	}

	got = questionsResponse{}
	getJSON(t, srv.URL+"/v1/students/alice/recommendations", &got)
	if len(got.Questions) != 1 || got.Questions[0].ID != "q2" {
		t.Fatalf("recommendations after mastery = %v, want [q2]", got.ids())
	}
}

func TestServer_RecommendationsLimit(t *testing.T) {
	srv := newTestServer(t, api.ServerConfig{})

	var got questionsResponse
	getJSON(t, srv.URL+"/v1/students/alice/recommendations?limit=10", &got)
	// q2 is outside the Counting frontier until q1 is mastered.
	if len(got.Questions) != 2 {
		t.Fatalf("recommendations = %v, want 2 questions", got.ids())
	}

	if status := getJSON(t, srv.URL+"/v1/students/alice/recommendations?limit=abc", nil); status != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want %d", status, http.StatusBadRequest)
	}
}

func TestServer_ConceptRecommendations(t *testing.T) {
	srv := newTestServer(t, api.ServerConfig{})

	var got questionsResponse
	if status := getJSON(t, srv.URL+"/v1/students/alice/concepts/Addition/recommendations", &got); status != http.StatusOK {
		t.Fatalf("concept recommendations status = %d, want %d", status, http.StatusOK)
	}
	if len(got.Questions) != 1 || got.Questions[0].ID != "q3" {
		t.Fatalf("concept recommendations = %v, want [q3]", got.ids())
	}

	if status := getJSON(t, srv.URL+"/v1/students/alice/concepts/Fractions/recommendations", nil); status != http.StatusNotFound {
		t.Errorf("unknown concept status = %d, want %d", status, http.StatusNotFound)
	}
}

func TestServer_Attempts(t *testing.T) {
	srv := newTestServer(t, api.ServerConfig{})

	if status := postJSON(t, srv.URL+"/v1/students/alice/attempts", map[string]any{
		"question_id": "q1",
	}); status != http.StatusNoContent {
		t.Fatalf("attempt status = %d, want %d", status, http.StatusNoContent)
	}

	if status := postJSON(t, srv.URL+"/v1/students/alice/attempts", map[string]any{}); status != http.StatusBadRequest {
		t.Errorf("missing question_id status = %d, want %d", status, http.StatusBadRequest)
	}
}

func TestServer_Summary(t *testing.T) {
	srv := newTestServer(t, api.ServerConfig{})

	if status := getJSON(t, srv.URL+"/v1/students/ghost/summary", nil); status != http.StatusNotFound {
		t.Errorf("unknown student status = %d, want %d", status, http.StatusNotFound)
	}

	postJSON(t, srv.URL+"/v1/students/alice/completions", map[string]any{
		"question_id": "q1",
		"mastered":    true,
	})

	var summary struct {
		MasteredQuestionIDs []string `json:"mastered_question_ids"`
	}
	if status := getJSON(t, srv.URL+"/v1/students/alice/summary", &summary); status != http.StatusOK {
		t.Fatalf("summary status = %d, want %d", status, http.StatusOK)
	}
	if len(summary.MasteredQuestionIDs) != 1 || summary.MasteredQuestionIDs[0] != "q1" {
		t.Errorf("mastered_question_ids = %v, want [q1]", summary.MasteredQuestionIDs)
	}
}

func TestServer_Reload(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		srv := newTestServer(t, api.ServerConfig{})
		if status := postJSON(t, srv.URL+"/v1/admin/reload", nil); status != http.StatusNotFound {
			t.Errorf("reload status = %d, want %d", status, http.StatusNotFound)
		}
	})

	t.Run("swaps the graph", func(t *testing.T) {
		ref := graph.NewRef(build(t, record("q1", 1, 1, 1, "Easy", "Counting")))
		srv := newTestServer(t, api.ServerConfig{
			Graph: ref,
			Reload: func() (*graph.Graph, error) {
				return build(t,
					record("q1", 1, 1, 1, "Easy", "Counting"),
					record("q9", 2, 1, 1, "Hard", "Division"),
				), nil
			},
		})

		if status := postJSON(t, srv.URL+"/v1/admin/reload", nil); status != http.StatusOK {
			t.Fatalf("reload status = %d, want %d", status, http.StatusOK)
		}
		if _, ok := ref.Load().Question("q9"); !ok {
			t.Error("reloaded graph missing q9")
		}
	})

	t.Run("validation failure", func(t *testing.T) {
		srv := newTestServer(t, api.ServerConfig{
			Reload: func() (*graph.Graph, error) {
				return nil, &graph.ValidationError{RecordID: "q1", Reason: "missing title"}
			},
		})
		if status := postJSON(t, srv.URL+"/v1/admin/reload", nil); status != http.StatusUnprocessableEntity {
			t.Errorf("reload status = %d, want %d", status, http.StatusUnprocessableEntity)
		}
	})

	t.Run("load failure", func(t *testing.T) {
		srv := newTestServer(t, api.ServerConfig{
			Reload: func() (*graph.Graph, error) {
				return nil, errors.New("disk on fire")
			},
		})
		if status := postJSON(t, srv.URL+"/v1/admin/reload", nil); status != http.StatusInternalServerError {
			t.Errorf("reload status = %d, want %d", status, http.StatusInternalServerError)
		}
	})
}
