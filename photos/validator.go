package photos

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"

	_ "golang.org/x/image/webp"

	"herobook_back/session"
)

const (
	// MinResolution is the smallest usable edge length for a reference
	// photo, in pixels.
	MinResolution = 250

	// MaxFiles caps the active upload set; MinFiles is how many valid
	// photos the wizard requires before customization can start.
	MaxFiles = 10
	MinFiles = 5
)

const (
	reasonUnreadable = "Could not read image dimensions. The file might be corrupted."
	reasonNoFace     = "Could not detect a single clear face. Please try another photo."
	reasonOccluded   = "Face might be unclear. Avoid photos with glasses, hats, or shadows."
)

// FaceCheck is the outcome of the biometric screening capability.
type FaceCheck struct {
	SingleFaceFound bool
	Occluded        bool
}

// FaceDetector screens a photo for a single, unobstructed face. The
// wizard ships without a real model; implementations plug in here without
// touching the validation control flow.
type FaceDetector interface {
	DetectFaceIssues(ctx context.Context, imageData []byte) (FaceCheck, error)
}

// permissiveDetector approves every photo. It stands in until a real
// detector is configured; the dimension check still applies.
type permissiveDetector struct{}

func (permissiveDetector) DetectFaceIssues(context.Context, []byte) (FaceCheck, error) {
	return FaceCheck{SingleFaceFound: true}, nil
}

// Validator runs the per-image checks. Each image is validated
// independently; a failure never blocks the rest of the set.
type Validator struct {
	detector      FaceDetector
	minResolution int
}

// NewValidator builds a Validator. A nil detector falls back to the
// permissive stand-in.
func NewValidator(detector FaceDetector) *Validator {
	if detector == nil {
		detector = permissiveDetector{}
	}
	return &Validator{detector: detector, minResolution: MinResolution}
}

// Validate checks one uploaded image and returns a human-readable reason
// string, or "" when the image is acceptable. It never panics and never
// returns an ambiguous nil-vs-valid: empty means valid, anything else is
// the reason shown to the user.
func (v *Validator) Validate(ctx context.Context, img session.Image) string {
	_, data, err := img.Decode()
	if err != nil {
		return reasonUnreadable
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return reasonUnreadable
	}

	if cfg.Width < v.minResolution || cfg.Height < v.minResolution {
		return fmt.Sprintf("Image is too small (%dx%d). Please use images at least %dx%dpx.",
			cfg.Width, cfg.Height, v.minResolution, v.minResolution)
	}

	check, err := v.detector.DetectFaceIssues(ctx, data)
	if err != nil {
		log.Printf("photos: face detector failed for %s: %v", img.ID, err)
		return reasonNoFace
	}
	if !check.SingleFaceFound {
		return reasonNoFace
	}
	if check.Occluded {
		return reasonOccluded
	}

	return ""
}

// ValidCount reports how many images in the set carry no validation error.
func ValidCount(images []session.Image) int {
	count := 0
	for _, img := range images {
		if img.Error == "" {
			count++
		}
	}
	return count
}

// CanProceed reports whether the set satisfies the upload gate: at least
// MinFiles valid images and no more than MaxFiles total.
func CanProceed(images []session.Image) bool {
	return len(images) <= MaxFiles && ValidCount(images) >= MinFiles
}
