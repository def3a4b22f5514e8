package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"herobook_back/hero"
	"herobook_back/session"
)

// Unit accounting: 1 upload + 1 preprocess + 1 story + 10 avatars +
// 1 transition + 3 scenes.
const (
	totalUnits  = 17
	avatarCount = 10
	sceneCount  = 3

	successDelay = 1500 * time.Millisecond
	successLog   = "Your hero is ready!"
	failureLog   = "An error occurred. Please try again."
)

var (
	// ErrMissingPrimaryImage means the job was started without any photos.
	ErrMissingPrimaryImage = errors.New("pipeline: no images found to process")
	// ErrUndecodableImage means the primary image payload could not be parsed.
	ErrUndecodableImage = errors.New("pipeline: primary image is missing usable data")
)

// Generator produces the creative assets. *generation.Client satisfies it;
// tests substitute a stub.
type Generator interface {
	Captions(ctx context.Context, c hero.Customization) []string
	HeroImage(ctx context.Context, imageData []byte, mimeType, prompt string) ([]byte, string, error)
}

// Orchestrator runs one generation job from start to finish, publishing a
// status snapshot after every unit of work.
type Orchestrator struct {
	generator Generator
	sleep     func(time.Duration)
}

// NewOrchestrator builds an orchestrator around a generator.
func NewOrchestrator(generator Generator) *Orchestrator {
	return &Orchestrator{generator: generator, sleep: time.Sleep}
}

func progressAfter(units int) int {
	p := int(math.Round(float64(units) / totalUnits * 100))
	if p > 100 {
		p = 100
	}
	return p
}

// Run executes the pipeline for one job. Units run strictly in sequence;
// the first avatar or scene failure aborts the whole job and no partial
// results survive. Captions are the exception, the generator falls back to
// canned ones internally. The returned results are delivered after the
// success status has been visible for a short beat. Cancelling the context
// aborts between units.
func (o *Orchestrator) Run(ctx context.Context, jobID string, images []session.Image, custom hero.Customization, publish func(JobStatus)) (*session.Results, error) {
	cur := JobStatus{
		JobID:        jobID,
		Status:       StateInProgress,
		CurrentStage: StageUploadingFiles,
		Log:          "Job created. Starting...",
	}
	publish(cur)

	units := 0
	advance := func(stage Stage, logLine string) {
		units++
		cur.Progress = progressAfter(units)
		cur.CurrentStage = stage
		cur.Log = logLine
		publish(cur)
	}
	fail := func(err error) (*session.Results, error) {
		cur.Status = StateFailure
		cur.Log = failureLog
		publish(cur)
		log.Printf("pipeline: job %s failed: %v", jobID, err)
		return nil, err
	}

	advance(StageUploadingFiles, "Preparing your main photo...")
	if len(images) == 0 {
		return fail(ErrMissingPrimaryImage)
	}
	mimeType, imageData, err := images[0].Decode()
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrUndecodableImage, err))
	}

	advance(StagePreprocessingImages, "Writing your hero's story...")
	captions := o.generator.Captions(ctx, custom)

	advance(StageGeneratingStory, "Creating cartoon avatars...")
	avatarPrompt := hero.CharacterPrompt(custom.WithPose(hero.PoseActionReady)) + hero.PortraitSuffix

	avatars := make([]session.AvatarResult, 0, avatarCount)
	for i := 0; i < avatarCount; i++ {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		generated, mime, err := o.generator.HeroImage(ctx, imageData, mimeType, avatarPrompt)
		if err != nil {
			return fail(fmt.Errorf("pipeline: generate avatar %d: %w", i+1, err))
		}
		avatars = append(avatars, session.AvatarResult{
			ID:  fmt.Sprintf("avatar_%d", i),
			URL: session.DataURL(mime, generated),
		})
		advance(StageStylizingAvatars, fmt.Sprintf("Generated avatar %d of %d...", i+1, avatarCount))
	}

	advance(StageStylizingAvatars, "Illustrating story scenes...")
	scenes := make([]session.SceneResult, 0, sceneCount)
	for i := 0; i < sceneCount; i++ {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		generated, mime, err := o.generator.HeroImage(ctx, imageData, mimeType, hero.CharacterPrompt(custom))
		if err != nil {
			return fail(fmt.Errorf("pipeline: generate scene %d: %w", i+1, err))
		}
		caption := ""
		if i < len(captions) {
			caption = captions[i]
		}
		if caption == "" {
			caption = fmt.Sprintf("Scene %d: An epic adventure unfolds!", i+1)
		}
		scenes = append(scenes, session.SceneResult{
			ID:      fmt.Sprintf("scene_%d", i),
			URL:     session.DataURL(mime, generated),
			Caption: caption,
		})
		advance(StageGeneratingScenes, fmt.Sprintf("Generated scene %d of %d...", i+1, sceneCount))
	}

	cur.Status = StateSuccess
	cur.Progress = 100
	cur.Log = successLog
	publish(cur)

	// Let the completed bar stay on screen for a moment before the
	// results page takes over.
	o.sleep(successDelay)

	return &session.Results{JobID: jobID, Avatars: avatars, Scenes: scenes}, nil
}
