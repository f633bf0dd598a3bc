package exercise

import (
	"math"

	"github.com/formcoach-app/engine/internal/geometry"
	"github.com/formcoach-app/engine/internal/pose"
)

// collectIssues runs the tolerance-band checks for the active exercise.
// Dispatch is a closed switch over the exercise type; every issue comes
// out of the central deduction table.
func (a *Analyzer) collectIssues(frame *pose.Frame, angles map[string]float64, smoothed float64, repCompleted, repAborted bool) []Issue {
	var issues []Issue

	if repAborted {
		issues = append(issues, newIssue(IssueIncompleteRange))
	}
	if repCompleted && a.cfg.DepthShallowAbove > 0 && a.cycleMin > a.cfg.DepthShallowAbove {
		issues = append(issues, newIssue(IssueShallowDepth))
	}
	if a.tempoExceeded() {
		issues = append(issues, newIssue(IssueTempoFast))
	}
	if issue, ok := a.symmetryIssue(angles); ok {
		issues = append(issues, issue)
	}

	switch a.cfg.Type {
	case Squat:
		issues = append(issues, a.squatIssues(frame, angles)...)
	case Pushup:
		issues = append(issues, a.pushupIssues(frame, angles)...)
	case Lunge:
		issues = append(issues, a.lungeIssues(frame, angles)...)
	case Plank:
		issues = append(issues, a.plankIssues(frame, angles)...)
	}

	return issues
}

func (a *Analyzer) symmetryIssue(angles map[string]float64) (Issue, bool) {
	if a.cfg.SymmetryToleranceDeg <= 0 {
		return Issue{}, false
	}
	name := a.primaryAngleName()
	left, okL := angles["left_"+name]
	right, okR := angles["right_"+name]
	if !okL || !okR {
		return Issue{}, false
	}
	if math.Abs(left-right) > a.cfg.SymmetryToleranceDeg {
		return newIssue(IssueAsymmetry), true
	}
	return Issue{}, false
}

// inDescentOrHold reports whether the machine is in a loaded portion of
// the cycle, where posture checks are meaningful.
func (a *Analyzer) inDescentOrHold() bool {
	return a.phase == PhaseDown || a.phase == PhaseBottom
}

func (a *Analyzer) squatIssues(frame *pose.Frame, angles map[string]float64) []Issue {
	var issues []Issue

	if lean, ok := torsoLean(frame); ok {
		angles["torso_lean"] = lean
		if a.cfg.BackLeanMaxDeg > 0 && a.inDescentOrHold() && lean > a.cfg.BackLeanMaxDeg {
			issues = append(issues, newIssue(IssueBackRounded))
		}
	}

	if a.cfg.ValgusMinSepRatio > 0 && a.inDescentOrHold() && a.kneesCaving(frame) {
		issues = append(issues, newIssue(IssueKneeValgus))
	}

	return issues
}

func (a *Analyzer) pushupIssues(frame *pose.Frame, angles map[string]float64) []Issue {
	var issues []Issue

	if issue, ok := a.bodyLineIssue(frame, angles); ok {
		issues = append(issues, issue)
	}

	if a.cfg.ElbowFlareMaxDeg > 0 && a.inDescentOrHold() {
		if flare, ok := elbowFlare(frame); ok {
			angles["elbow_flare"] = flare
			if flare > a.cfg.ElbowFlareMaxDeg {
				issues = append(issues, newIssue(IssueElbowFlare))
			}
		}
	}

	return issues
}

func (a *Analyzer) lungeIssues(frame *pose.Frame, angles map[string]float64) []Issue {
	var issues []Issue

	if a.cfg.KneeOverToeMaxX > 0 && a.inDescentOrHold() {
		if offset, ok := frontKneeOffset(frame, angles); ok {
			angles["front_knee_offset"] = offset
			if offset > a.cfg.KneeOverToeMaxX {
				issues = append(issues, newIssue(IssueKneeOverToe))
			}
		}
	}

	return issues
}

func (a *Analyzer) plankIssues(frame *pose.Frame, angles map[string]float64) []Issue {
	var issues []Issue
	if issue, ok := a.bodyLineIssue(frame, angles); ok {
		issues = append(issues, issue)
	}
	return issues
}

// bodyLineIssue checks the shoulder-hip-ankle line and classifies a break
// as sagging or piking from the hip's vertical offset against the line's
// endpoints. Image Y grows downward.
func (a *Analyzer) bodyLineIssue(frame *pose.Frame, angles map[string]float64) (Issue, bool) {
	if a.cfg.BodyLineMinDeg <= 0 {
		return Issue{}, false
	}

	shoulders, ok := midpointOf(frame, pose.LeftShoulder, pose.RightShoulder)
	if !ok {
		return Issue{}, false
	}
	hips, ok := midpointOf(frame, pose.LeftHip, pose.RightHip)
	if !ok {
		return Issue{}, false
	}
	// Prefer ankles for the line's far end; fall back to knees when the
	// feet are out of frame.
	far, ok := midpointOf(frame, pose.LeftAnkle, pose.RightAnkle)
	if !ok {
		far, ok = midpointOf(frame, pose.LeftKnee, pose.RightKnee)
		if !ok {
			return Issue{}, false
		}
	}

	line, defined := geometry.Angle(shoulders, hips, far)
	if !defined {
		return Issue{}, false
	}
	angles["body_line_break"] = 180 - line

	if line >= a.cfg.BodyLineMinDeg {
		return Issue{}, false
	}

	midY := (shoulders.Y + far.Y) / 2
	switch {
	case hips.Y > midY+a.cfg.HipOffsetTolerance:
		return newIssue(IssueHipsSagging), true
	case hips.Y < midY-a.cfg.HipOffsetTolerance:
		return newIssue(IssueHipsPiking), true
	}
	return Issue{}, false
}

// torsoLean returns the hip-to-shoulder line's deviation from vertical in
// degrees.
func torsoLean(frame *pose.Frame) (float64, bool) {
	shoulders, ok := midpointOf(frame, pose.LeftShoulder, pose.RightShoulder)
	if !ok {
		return 0, false
	}
	hips, ok := midpointOf(frame, pose.LeftHip, pose.RightHip)
	if !ok {
		return 0, false
	}
	// Up in image coordinates is negative Y.
	up := hips.Add(geometry.Vec3{Y: -1})
	return geometry.Angle(shoulders, hips, up)
}

// kneesCaving reports valgus collapse: knee separation shrinking well
// inside ankle separation.
func (a *Analyzer) kneesCaving(frame *pose.Frame) bool {
	kneeL, ok1 := frame.Get(pose.LeftKnee)
	kneeR, ok2 := frame.Get(pose.RightKnee)
	ankleL, ok3 := frame.Get(pose.LeftAnkle)
	ankleR, ok4 := frame.Get(pose.RightAnkle)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return false
	}

	kneeSep := math.Abs(kneeL.X - kneeR.X)
	ankleSep := math.Abs(ankleL.X - ankleR.X)
	if ankleSep == 0 {
		return false
	}
	return kneeSep < a.cfg.ValgusMinSepRatio*ankleSep
}

// elbowFlare returns the larger of the two elbow-shoulder-hip angles: the
// angle the upper arm makes with the torso.
func elbowFlare(frame *pose.Frame) (float64, bool) {
	left, okL := shoulderAngle(frame, pose.LeftElbow, pose.LeftShoulder, pose.LeftHip)
	right, okR := shoulderAngle(frame, pose.RightElbow, pose.RightShoulder, pose.RightHip)

	switch {
	case okL && okR:
		return math.Max(left, right), true
	case okL:
		return left, true
	case okR:
		return right, true
	}
	return 0, false
}

func shoulderAngle(frame *pose.Frame, elbow, shoulder, hip string) (float64, bool) {
	e, ok1 := frame.Get(elbow)
	s, ok2 := frame.Get(shoulder)
	h, ok3 := frame.Get(hip)
	if !ok1 || !ok2 || !ok3 {
		return 0, false
	}
	return geometry.Angle(e.Position(), s.Position(), h.Position())
}

// frontKneeOffset returns how far the front leg's knee has traveled past
// its ankle in the direction of the lunge. The front leg is the more bent
// one; the travel direction is taken from the ankle's position relative
// to the hip. Negative values (knee behind the toes) are healthy.
func frontKneeOffset(frame *pose.Frame, angles map[string]float64) (float64, bool) {
	leftAngle, okL := angles["left_knee"]
	rightAngle, okR := angles["right_knee"]
	if !okL || !okR {
		return 0, false
	}

	hip, knee, ankle := pose.LeftHip, pose.LeftKnee, pose.LeftAnkle
	if rightAngle < leftAngle {
		hip, knee, ankle = pose.RightHip, pose.RightKnee, pose.RightAnkle
	}

	h, ok1 := frame.Get(hip)
	k, ok2 := frame.Get(knee)
	a, ok3 := frame.Get(ankle)
	if !ok1 || !ok2 || !ok3 {
		return 0, false
	}

	forward := a.X - h.X
	if math.Abs(forward) < 0.01 {
		// Head-on view; the lunge direction cannot be resolved.
		return 0, false
	}
	if forward < 0 {
		return a.X - k.X, true
	}
	return k.X - a.X, true
}

func midpointOf(frame *pose.Frame, left, right string) (geometry.Vec3, bool) {
	l, okL := frame.Get(left)
	r, okR := frame.Get(right)
	if !okL || !okR {
		return geometry.Vec3{}, false
	}
	return geometry.Midpoint(l.Position(), r.Position()), true
}
