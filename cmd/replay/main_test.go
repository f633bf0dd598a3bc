package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/formcoach-app/engine/internal/engine"
	"github.com/formcoach-app/engine/internal/exercise"
	"github.com/formcoach-app/engine/internal/pose"
)

// standingFrame is a symmetric upright squat pose: both knees at 180.
func standingFrame(timestampMs int64) *pose.Frame {
	lm := func(x, y float64) pose.Landmark {
		return pose.Landmark{X: x, Y: y, Confidence: 0.9}
	}
	return &pose.Frame{
		TimestampMs: timestampMs,
		Landmarks: map[string]pose.Landmark{
			pose.LeftShoulder:  lm(0.45, 0.2),
			pose.RightShoulder: lm(0.55, 0.2),
			pose.LeftHip:       lm(0.45, 0.5),
			pose.RightHip:      lm(0.55, 0.5),
			pose.LeftKnee:      lm(0.45, 0.7),
			pose.RightKnee:     lm(0.55, 0.7),
			pose.LeftAnkle:     lm(0.45, 0.9),
			pose.RightAnkle:    lm(0.55, 0.9),
		},
	}
}

func frameLine(t *testing.T, frame *pose.Frame) string {
	t.Helper()
	b, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	return string(b)
}

func startedEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng := engine.New(engine.Options{Speaker: &consoleSpeaker{quiet: true}})
	if err := eng.StartSession(exercise.Squat, "test-user"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng
}

func TestReplayFile(t *testing.T) {
	lines := frameLine(t, standingFrame(1000)) + "\n" +
		"{not json\n" + // undecodable, skipped
		`{"timestamp_ms":0,"landmarks":{}}` + "\n" + // fails validation, skipped
		"\n" + // blank, ignored entirely
		frameLine(t, standingFrame(1200)) + "\n"

	path := filepath.Join(t.TempDir(), "frames.jsonl")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	eng := startedEngine(t)
	frames, bad, err := replayFile(eng, path)
	if err != nil {
		t.Fatalf("replayFile: %v", err)
	}
	if frames != 2 {
		t.Errorf("expected 2 frames processed, got %d", frames)
	}
	if bad != 2 {
		t.Errorf("expected 2 lines skipped, got %d", bad)
	}
	if got := eng.Statistics().FramesRecorded; got != 2 {
		t.Errorf("expected 2 frames recorded in the session, got %d", got)
	}
}

func TestReplayFile_RoundTripsLandmarks(t *testing.T) {
	want := standingFrame(1000)
	var got pose.Frame
	if err := json.Unmarshal([]byte(frameLine(t, want)), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.TimestampMs != want.TimestampMs {
		t.Errorf("timestamp: got %d, want %d", got.TimestampMs, want.TimestampMs)
	}
	if len(got.Landmarks) != len(want.Landmarks) {
		t.Fatalf("landmarks: got %d, want %d", len(got.Landmarks), len(want.Landmarks))
	}
	if got.Landmarks[pose.LeftKnee] != want.Landmarks[pose.LeftKnee] {
		t.Errorf("left knee: got %+v, want %+v",
			got.Landmarks[pose.LeftKnee], want.Landmarks[pose.LeftKnee])
	}
}

func TestReplayFile_MissingFile(t *testing.T) {
	eng := startedEngine(t)
	if _, _, err := replayFile(eng, filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Fatal("expected error for missing frames file")
	}
}
