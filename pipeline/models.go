package pipeline

// Stage labels match what the progress stepper renders, so they travel
// over the wire as display strings.
type Stage string

const (
	StageUploadingFiles      Stage = "Uploading Files"
	StagePreprocessingImages Stage = "Preprocessing Images"
	StageGeneratingStory     Stage = "Generating Story"
	StageStylizingAvatars    Stage = "Stylizing Avatars"
	StageGeneratingScenes    Stage = "Generating Scenes"
)

// Stages lists the pipeline stages in execution order.
var Stages = []Stage{
	StageUploadingFiles,
	StagePreprocessingImages,
	StageGeneratingStory,
	StageStylizingAvatars,
	StageGeneratingScenes,
}

// State is the lifecycle state of a job.
type State string

const (
	StatePending    State = "PENDING"
	StateInProgress State = "IN_PROGRESS"
	StateSuccess    State = "SUCCESS"
	StateFailure    State = "FAILURE"
)

// JobStatus is the snapshot polled by the processing page and pushed over
// the websocket. Progress is a 0..100 percentage.
type JobStatus struct {
	JobID        string `json:"jobId"`
	Status       State  `json:"status"`
	Progress     int    `json:"progress"`
	CurrentStage Stage  `json:"currentStage"`
	Log          string `json:"log"`
}

// Terminal reports whether the job finished, either way.
func (s JobStatus) Terminal() bool {
	return s.Status == StateSuccess || s.Status == StateFailure
}
