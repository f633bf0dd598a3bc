// Package pose defines the keypoint frame model the engine consumes from
// the on-device pose detector. Frames are produced externally, validated
// once on entry, and treated as immutable from then on.
package pose

import (
	"errors"

	"github.com/formcoach-app/engine/internal/geometry"
)

// Landmark names follow the detector's anatomical naming. Only the subset
// the exercise analyzers reference is enumerated here; frames may carry
// more.
const (
	Nose          = "nose"
	LeftShoulder  = "left_shoulder"
	RightShoulder = "right_shoulder"
	LeftElbow     = "left_elbow"
	RightElbow    = "right_elbow"
	LeftWrist     = "left_wrist"
	RightWrist    = "right_wrist"
	LeftHip       = "left_hip"
	RightHip      = "right_hip"
	LeftKnee      = "left_knee"
	RightKnee     = "right_knee"
	LeftAnkle     = "left_ankle"
	RightAnkle    = "right_ankle"
)

// Validation errors for malformed frames. These indicate a broken capture
// layer; callers must fix the producer rather than resubmit the frame.
var (
	ErrNoTimestamp    = errors.New("pose: frame has no timestamp")
	ErrEmptyLandmarks = errors.New("pose: frame has no landmarks")
)

// Landmark is a single detected anatomical point. Coordinates are in the
// detector's normalized space; Confidence is the detection confidence in
// [0, 1].
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Confidence float64 `json:"confidence"`
}

// Position returns the landmark as a geometry vector.
func (l Landmark) Position() geometry.Vec3 {
	return geometry.Vec3{X: l.X, Y: l.Y, Z: l.Z}
}

// Frame is one timestamped set of detected landmarks. TimestampMs is
// milliseconds from the capture clock.
type Frame struct {
	TimestampMs int64               `json:"timestamp_ms"`
	Landmarks   map[string]Landmark `json:"landmarks"`
}

// Validate rejects structurally malformed frames with a typed error.
// Low-confidence landmarks are not a validation failure; analyzers handle
// those as degraded input.
func (f *Frame) Validate() error {
	if f.TimestampMs <= 0 {
		return ErrNoTimestamp
	}
	if len(f.Landmarks) == 0 {
		return ErrEmptyLandmarks
	}
	return nil
}

// Get returns the named landmark and whether it is present.
func (f *Frame) Get(name string) (Landmark, bool) {
	lm, ok := f.Landmarks[name]
	return lm, ok
}

// Visible reports whether the named landmark is present with at least the
// given confidence.
func (f *Frame) Visible(name string, minConfidence float64) bool {
	lm, ok := f.Landmarks[name]
	return ok && lm.Confidence >= minConfidence
}
