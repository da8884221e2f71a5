package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fastwise/tutr/internal/platform/config"
)

func testConfig(dataPath string) *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Data:      config.DataConfig{Path: dataPath},
		Recommend: config.RecommendConfig{MaxLimit: 20},
		Log:       config.LogConfig{Level: "error", Format: "json"},
	}
}

func TestRun_MissingQuestionBank(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "nope.json"))

	if err := run(context.Background(), cfg); err == nil {
		t.Fatal("run() error = nil, want error for missing question bank")
	}
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	bank := `[{
		"id": "q1",
		"question_title": "Count to ten",
		"question": "Count from 1 to 10.",
		"difficulty": "Easy",
		"step_no": 1,
		"sub_step_no": 1,
		"sl_no": 1,
		"standard_concepts": ["Counting"]
	}]`
	if err := os.WriteFile(path, []byte(bank), 0o644); err != nil {
		t.Fatalf("write bank: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, testConfig(path))
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v, want nil after shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run() did not shut down after cancel")
	}
}
