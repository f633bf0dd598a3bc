package exercise

import (
	"github.com/formcoach-app/engine/internal/pose"
)

// PhaseThresholds are the smoothed-primary-angle boundaries driving the
// phase machine. Enter and leave thresholds are deliberately distinct
// (hysteresis) so a value hovering on a boundary cannot oscillate the
// machine between phases.
type PhaseThresholds struct {
	DownEnterBelow   float64 // start → down when the angle drops below
	BottomEnterBelow float64 // down → bottom
	BottomExitAbove  float64 // bottom → up
	StartEnterAbove  float64 // up → start; closes the cycle and records a rep
}

// Config parameterizes one exercise variant. All angle values are degrees;
// X offsets and separations are in the detector's normalized coordinates.
type Config struct {
	Type              Type
	RequiredLandmarks []string
	MinConfidence     float64
	SmoothingWindow   int

	// Isometric exercises (plank) hold a single phase and record no reps.
	Isometric bool

	// Primary angle triples, one per side: {a, vertex, b} landmark names.
	// Sides with degenerate geometry are skipped; the primary angle is
	// the mean over the sides that resolved, or the minimum when
	// PrimaryMin is set (asymmetric movements where one side drives).
	LeftPrimary  [3]string
	RightPrimary [3]string
	PrimaryMin   bool

	Thresholds PhaseThresholds

	// Tolerance bands. A zero value disables the corresponding check.
	DepthShallowAbove    float64 // cycle min angle above this → shallow rep
	BackLeanMaxDeg       float64 // torso lean from vertical beyond this → rounded back
	BodyLineMinDeg       float64 // shoulder-hip-ankle line below this → sag/pike
	HipOffsetTolerance   float64 // hip Y offset from the body line before sag/pike triggers
	KneeOverToeMaxX      float64 // front knee X past the ankle beyond this → knee over toe
	ValgusMinSepRatio    float64 // knee separation / ankle separation below this → valgus
	ElbowFlareMaxDeg     float64 // elbow-shoulder-hip angle beyond this → flare
	SymmetryToleranceDeg float64 // left/right primary delta beyond this → asymmetry
	TempoMaxDegPerSec    float64 // primary angular speed beyond this → rushing
}

// ConfigFor returns the built-in configuration for an exercise type.
// The boolean is false for unknown types.
func ConfigFor(t Type) (Config, bool) {
	switch t {
	case Squat:
		return squatConfig(), true
	case Pushup:
		return pushupConfig(), true
	case Lunge:
		return lungeConfig(), true
	case Plank:
		return plankConfig(), true
	}
	return Config{}, false
}

func squatConfig() Config {
	return Config{
		Type: Squat,
		RequiredLandmarks: []string{
			pose.LeftShoulder, pose.RightShoulder,
			pose.LeftHip, pose.RightHip,
			pose.LeftKnee, pose.RightKnee,
			pose.LeftAnkle, pose.RightAnkle,
		},
		MinConfidence:   0.5,
		SmoothingWindow: 3,
		LeftPrimary:     [3]string{pose.LeftHip, pose.LeftKnee, pose.LeftAnkle},
		RightPrimary:    [3]string{pose.RightHip, pose.RightKnee, pose.RightAnkle},
		Thresholds: PhaseThresholds{
			DownEnterBelow:   150,
			BottomEnterBelow: 100,
			BottomExitAbove:  110,
			StartEnterAbove:  160,
		},
		DepthShallowAbove:    95,
		BackLeanMaxDeg:       45,
		ValgusMinSepRatio:    0.7,
		SymmetryToleranceDeg: 15,
		TempoMaxDegPerSec:    250,
	}
}

func pushupConfig() Config {
	return Config{
		Type: Pushup,
		RequiredLandmarks: []string{
			pose.LeftShoulder, pose.RightShoulder,
			pose.LeftElbow, pose.RightElbow,
			pose.LeftWrist, pose.RightWrist,
			pose.LeftHip, pose.RightHip,
		},
		MinConfidence:   0.5,
		SmoothingWindow: 3,
		LeftPrimary:     [3]string{pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist},
		RightPrimary:    [3]string{pose.RightShoulder, pose.RightElbow, pose.RightWrist},
		Thresholds: PhaseThresholds{
			DownEnterBelow:   150,
			BottomEnterBelow: 100,
			BottomExitAbove:  110,
			StartEnterAbove:  160,
		},
		DepthShallowAbove:    100,
		BodyLineMinDeg:       160,
		HipOffsetTolerance:   0.05,
		ElbowFlareMaxDeg:     80,
		SymmetryToleranceDeg: 15,
		TempoMaxDegPerSec:    300,
	}
}

func lungeConfig() Config {
	return Config{
		Type: Lunge,
		RequiredLandmarks: []string{
			pose.LeftHip, pose.RightHip,
			pose.LeftKnee, pose.RightKnee,
			pose.LeftAnkle, pose.RightAnkle,
		},
		MinConfidence:   0.5,
		SmoothingWindow: 3,
		LeftPrimary:     [3]string{pose.LeftHip, pose.LeftKnee, pose.LeftAnkle},
		RightPrimary:    [3]string{pose.RightHip, pose.RightKnee, pose.RightAnkle},
		// The rear leg stays extended; the front (most bent) knee drives
		// the phase machine.
		PrimaryMin: true,
		Thresholds: PhaseThresholds{
			DownEnterBelow:   150,
			BottomEnterBelow: 105,
			BottomExitAbove:  115,
			StartEnterAbove:  160,
		},
		DepthShallowAbove: 100,
		KneeOverToeMaxX:   0.08,
		TempoMaxDegPerSec: 250,
		// Lunges are intentionally asymmetric; the symmetry check stays off.
	}
}

func plankConfig() Config {
	return Config{
		Type: Plank,
		RequiredLandmarks: []string{
			pose.LeftShoulder, pose.RightShoulder,
			pose.LeftHip, pose.RightHip,
			pose.LeftAnkle, pose.RightAnkle,
		},
		MinConfidence:      0.5,
		SmoothingWindow:    5,
		Isometric:          true,
		LeftPrimary:        [3]string{pose.LeftShoulder, pose.LeftHip, pose.LeftAnkle},
		RightPrimary:       [3]string{pose.RightShoulder, pose.RightHip, pose.RightAnkle},
		BodyLineMinDeg:     160,
		HipOffsetTolerance: 0.04,
	}
}
