// Command trend-report renders the history dashboard for one exercise:
// an HTML page of interactive charts plus an optional static PNG, with
// the analysis summary printed to stdout.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/formcoach-app/engine/internal/exercise"
	"github.com/formcoach-app/engine/internal/report"
	"github.com/formcoach-app/engine/internal/storage/sqlite"
	"github.com/formcoach-app/engine/internal/version"
)

func main() {
	dbPath := flag.String("db", "", "sqlite history database (required)")
	exerciseName := flag.String("exercise", "squat", "exercise type to report on")
	outPath := flag.String("out", "trend-report.html", "output HTML path")
	pngPath := flag.String("png", "", "optional output PNG path for the score plot")
	limit := flag.Int("limit", 0, "maximum sessions to analyze, 0 for all")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("trend-report", version.String())
		return
	}
	if *dbPath == "" {
		flag.Usage()
		log.Fatal("missing required -db")
	}

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open %s: %v", *dbPath, err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		log.Fatalf("failed to migrate %s: %v", *dbPath, err)
	}

	records, err := store.ListSessions(exercise.Type(*exerciseName), *limit)
	if err != nil {
		log.Fatalf("failed to load sessions: %v", err)
	}
	if len(records) == 0 {
		log.Fatalf("no %s sessions in %s", *exerciseName, *dbPath)
	}

	report.Summarize(records).WriteText(os.Stdout)

	out, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("failed to create %s: %v", *outPath, err)
	}
	defer out.Close()

	title := fmt.Sprintf("FormCoach %s history", *exerciseName)
	if err := report.RenderHTML(out, title, records); err != nil {
		log.Fatalf("failed to render report: %v", err)
	}
	fmt.Printf("wrote %s (%d sessions)\n", *outPath, len(records))

	if *pngPath != "" {
		if err := report.SaveScorePlot(*pngPath, records); err != nil {
			log.Fatalf("failed to save plot: %v", err)
		}
		fmt.Printf("wrote %s\n", *pngPath)
	}
}
