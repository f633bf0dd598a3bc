// Package trend computes longitudinal statistics over persisted session
// records. It runs on stored history, never on the live frame path.
package trend

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/formcoach-app/engine/internal/exercise"
	"github.com/formcoach-app/engine/internal/session"
)

// plateauWindow is how many recent sessions the plateau test considers,
// and plateauThresholdPct the mean absolute improvement below which the
// user is considered plateaued.
const (
	plateauWindow       = 5
	plateauThresholdPct = 2.0
)

// hysteresisPct is the dead band for issue trend classification; a
// recent-vs-history shift inside the band reads as stable.
const hysteresisPct = 10.0

// recentSessions is how many of the newest sessions count as "recent"
// for issue trend comparison.
const recentSessions = 10

// ScoreTrend summarizes how per-session average scores move over time.
type ScoreTrend struct {
	Sessions        int       `json:"sessions"`
	Scores          []float64 `json:"scores"`
	ImprovementRate float64   `json:"improvement_rate_pct"`
	Slope           float64   `json:"slope"`
	Plateau         bool      `json:"plateau"`
}

// IssueDirection classifies how often an issue shows up lately compared
// to earlier history.
type IssueDirection string

const (
	DirectionImproving IssueDirection = "improving"
	DirectionWorsening IssueDirection = "worsening"
	DirectionStable    IssueDirection = "stable"
)

// IssueFrequency is one row of the issue leaderboard.
type IssueFrequency struct {
	Code      exercise.IssueCode `json:"code"`
	Count     int                `json:"count"`
	Direction IssueDirection     `json:"direction"`
}

// DayBucket is a coarse time-of-day slot derived from session start.
type DayBucket string

const (
	BucketMorning   DayBucket = "morning"   // 05:00–11:59
	BucketAfternoon DayBucket = "afternoon" // 12:00–16:59
	BucketEvening   DayBucket = "evening"   // 17:00–21:59
	BucketNight     DayBucket = "night"     // 22:00–04:59
)

// BucketStats aggregates the sessions started within one bucket.
type BucketStats struct {
	Sessions     int     `json:"sessions"`
	AverageScore float64 `json:"average_score"`
}

// Fatigue reports the average first-set to last-set score change across
// sessions that had at least two sets. A negative MeanDeltaPct means
// scores fall as the session goes on.
type Fatigue struct {
	SessionsConsidered int     `json:"sessions_considered"`
	MeanDeltaPct       float64 `json:"mean_delta_pct"`
}

// byStartTime returns a chronologically sorted copy of records.
func byStartTime(records []session.Record) []session.Record {
	out := make([]session.Record, len(records))
	copy(out, records)
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

// AnalyzeScoreTrend computes the session-over-session score trajectory.
// The improvement rate is the mean percentage change between consecutive
// sessions over the trailing plateau window; the slope is a least
// squares fit over session index.
func AnalyzeScoreTrend(records []session.Record) ScoreTrend {
	ordered := byStartTime(records)

	scores := make([]float64, len(ordered))
	for i, r := range ordered {
		scores[i] = r.AverageScore
	}
	out := ScoreTrend{Sessions: len(scores), Scores: scores}
	if len(scores) < 2 {
		return out
	}

	xs := make([]float64, len(scores))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, out.Slope = stat.LinearRegression(xs, scores, nil, false)

	changes := pctChanges(scores)
	recent := changes
	if len(recent) > plateauWindow {
		recent = recent[len(recent)-plateauWindow:]
	}
	out.ImprovementRate = stat.Mean(recent, nil)

	if len(scores) >= plateauWindow {
		window := changes
		if len(window) > plateauWindow-1 {
			window = window[len(window)-(plateauWindow-1):]
		}
		sum := 0.0
		for _, c := range window {
			if c < 0 {
				c = -c
			}
			sum += c
		}
		out.Plateau = sum/float64(len(window)) < plateauThresholdPct
	}
	return out
}

// pctChanges returns session-over-session percentage changes. A zero
// previous score contributes a zero change rather than a division blowup.
func pctChanges(scores []float64) []float64 {
	changes := make([]float64, 0, len(scores)-1)
	for i := 1; i < len(scores); i++ {
		prev := scores[i-1]
		if prev == 0 {
			changes = append(changes, 0)
			continue
		}
		changes = append(changes, (scores[i]-prev)/prev*100)
	}
	return changes
}

// AnalyzeIssueFrequency returns the five most frequent issue codes with
// a direction per code. Direction compares the share of recent sessions
// exhibiting the issue against the share in the older history; shifts
// inside the hysteresis band, or histories too short to split, read
// stable.
func AnalyzeIssueFrequency(records []session.Record) []IssueFrequency {
	ordered := byStartTime(records)

	totals := make(map[exercise.IssueCode]int)
	for _, r := range ordered {
		for code, n := range r.IssueCounts {
			totals[code] += n
		}
	}
	if len(totals) == 0 {
		return nil
	}

	codes := make([]exercise.IssueCode, 0, len(totals))
	for code := range totals {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		if totals[codes[i]] != totals[codes[j]] {
			return totals[codes[i]] > totals[codes[j]]
		}
		return codes[i] < codes[j]
	})
	if len(codes) > 5 {
		codes = codes[:5]
	}

	split := len(ordered) - recentSessions
	out := make([]IssueFrequency, 0, len(codes))
	for _, code := range codes {
		row := IssueFrequency{Code: code, Count: totals[code], Direction: DirectionStable}
		if split > 0 {
			older := occurrencePct(ordered[:split], code)
			recent := occurrencePct(ordered[split:], code)
			switch {
			case recent-older > hysteresisPct:
				row.Direction = DirectionWorsening
			case older-recent > hysteresisPct:
				row.Direction = DirectionImproving
			}
		}
		out = append(out, row)
	}
	return out
}

// occurrencePct is the percentage of sessions in which the code appears.
func occurrencePct(records []session.Record, code exercise.IssueCode) float64 {
	if len(records) == 0 {
		return 0
	}
	n := 0
	for _, r := range records {
		if r.IssueCounts[code] > 0 {
			n++
		}
	}
	return float64(n) / float64(len(records)) * 100
}

// AnalyzeTimeOfDay buckets sessions by local start hour and averages
// scores within each bucket. Buckets with no sessions are omitted.
func AnalyzeTimeOfDay(records []session.Record) map[DayBucket]BucketStats {
	sums := make(map[DayBucket]float64)
	counts := make(map[DayBucket]int)
	for _, r := range records {
		b := bucketFor(r.StartTime)
		sums[b] += r.AverageScore
		counts[b]++
	}
	if len(counts) == 0 {
		return nil
	}
	out := make(map[DayBucket]BucketStats, len(counts))
	for b, n := range counts {
		out[b] = BucketStats{Sessions: n, AverageScore: sums[b] / float64(n)}
	}
	return out
}

func bucketFor(t time.Time) DayBucket {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return BucketMorning
	case h >= 12 && h < 17:
		return BucketAfternoon
	case h >= 17 && h < 22:
		return BucketEvening
	default:
		return BucketNight
	}
}

// AnalyzeFatigue measures intra-session score decay: for each session
// with at least two sets, the percentage change from the first set's
// average to the last set's, averaged across qualifying sessions.
func AnalyzeFatigue(records []session.Record) Fatigue {
	var deltas []float64
	for _, r := range records {
		if len(r.Sets) < 2 {
			continue
		}
		first := r.Sets[0].AverageScore
		last := r.Sets[len(r.Sets)-1].AverageScore
		if first == 0 {
			continue
		}
		deltas = append(deltas, (last-first)/first*100)
	}
	if len(deltas) == 0 {
		return Fatigue{}
	}
	return Fatigue{
		SessionsConsidered: len(deltas),
		MeanDeltaPct:       stat.Mean(deltas, nil),
	}
}

// CorrelateRepsScore returns the Pearson correlation between total reps
// and average score per session. The correlation is undefined, and ok
// false, with fewer than five sessions or zero variance in either
// series.
func CorrelateRepsScore(records []session.Record) (r float64, ok bool) {
	if len(records) < 5 {
		return 0, false
	}
	reps := make([]float64, len(records))
	scores := make([]float64, len(records))
	for i, rec := range records {
		reps[i] = float64(rec.TotalReps)
		scores[i] = rec.AverageScore
	}
	if stat.Variance(reps, nil) == 0 || stat.Variance(scores, nil) == 0 {
		return 0, false
	}
	return stat.Correlation(reps, scores, nil), true
}
