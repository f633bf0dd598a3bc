// Command replay runs recorded pose frames through the form evaluation
// engine as if they were arriving live. Input is one frame JSON object
// per line. With -db, the finished session is saved to the history
// store.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/formcoach-app/engine/internal/config"
	"github.com/formcoach-app/engine/internal/engine"
	"github.com/formcoach-app/engine/internal/exercise"
	"github.com/formcoach-app/engine/internal/monitoring"
	"github.com/formcoach-app/engine/internal/perfmon"
	"github.com/formcoach-app/engine/internal/pose"
	"github.com/formcoach-app/engine/internal/session"
	"github.com/formcoach-app/engine/internal/storage/sqlite"
	"github.com/formcoach-app/engine/internal/version"
)

// consoleSpeaker prints spoken advisories to stdout.
type consoleSpeaker struct {
	quiet bool
}

func (s *consoleSpeaker) Speak(text string, priority exercise.Priority) {
	if s.quiet {
		return
	}
	fmt.Printf("  [%s] %s\n", strings.ToUpper(string(priority)), text)
}

func main() {
	framesPath := flag.String("frames", "", "path to JSONL file of pose frames (required)")
	exerciseName := flag.String("exercise", "squat", "exercise type: squat, pushup, lunge or plank")
	dbPath := flag.String("db", "", "optional sqlite history database to save the session into")
	userID := flag.String("user", "local", "user id recorded on the session")
	configPath := flag.String("config", "", "optional tuning config JSON")
	quiet := flag.Bool("quiet", false, "suppress per-frame feedback output")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("replay", version.String())
		return
	}
	if *framesPath == "" {
		flag.Usage()
		log.Fatal("missing required -frames")
	}
	if *quiet {
		monitoring.SetLogger(nil)
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
		tuning = loaded
	}

	speaker := &consoleSpeaker{quiet: *quiet}
	eng := engine.NewFromTuning(tuning, engine.Options{
		Speaker: speaker,
		Listener: session.Listener{
			OnRepRecorded: func(rep session.RepSummary) {
				fmt.Printf("rep %2d  score %5.1f  (%s)\n", rep.Number, rep.Score, rep.Level)
			},
			OnSetCompleted: func(set session.SetSummary) {
				fmt.Printf("set %d complete: %d reps, avg %.1f\n",
					set.Number, len(set.Reps), set.AverageScore)
			},
		},
		FallbackCallback: func(level perfmon.Level) {
			fmt.Printf("frame rate degraded, falling back to %s\n", level)
		},
	})
	defer eng.Close()

	if err := eng.StartSession(exercise.Type(*exerciseName), *userID); err != nil {
		log.Fatalf("failed to start session: %v", err)
	}

	frames, bad, err := replayFile(eng, *framesPath)
	if err != nil {
		log.Fatalf("replay failed: %v", err)
	}

	record, err := eng.EndSession()
	if err != nil {
		log.Fatalf("failed to end session: %v", err)
	}

	printSummary(record, frames, bad)

	if *dbPath != "" {
		if err := saveRecord(*dbPath, record); err != nil {
			log.Fatalf("failed to save session: %v", err)
		}
		fmt.Printf("saved session %s to %s\n", record.SessionID, *dbPath)
	}
}

// replayFile streams frames from a JSONL file into the engine,
// returning how many frames were processed and how many lines were
// skipped as undecodable or invalid.
func replayFile(eng *engine.Engine, path string) (frames, bad int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var frame pose.Frame
		if err := json.Unmarshal([]byte(line), &frame); err != nil {
			monitoring.Logf("line %d: undecodable frame: %v", lineNo, err)
			bad++
			continue
		}
		if _, err := eng.ProcessFrame(&frame); err != nil {
			monitoring.Logf("line %d: rejected frame: %v", lineNo, err)
			bad++
			continue
		}
		frames++
	}
	return frames, bad, scanner.Err()
}

func printSummary(record *session.Record, frames, bad int) {
	fmt.Println()
	fmt.Printf("session %s (%s)\n", record.SessionID, record.ExerciseType)
	fmt.Printf("  frames processed: %d (%d skipped)\n", frames, bad)
	fmt.Printf("  reps: %d in %d sets\n", record.TotalReps, record.TotalSets)
	fmt.Printf("  average score: %.1f (%s)\n",
		record.AverageScore, exercise.LevelForScore(record.AverageScore))
	if len(record.TopIssues) > 0 {
		fmt.Printf("  top issues: ")
		for i, code := range record.TopIssues {
			if i > 0 {
				fmt.Print(", ")
			}
			fmt.Print(code)
		}
		fmt.Println()
	}
}

func saveRecord(path string, record *session.Record) error {
	store, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return err
	}
	return store.SaveSession(record)
}
