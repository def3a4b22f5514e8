package session

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"herobook_back/hero"
)

// Stage identifies a page of the wizard. The saved stage decides where a
// returning user resumes.
type Stage string

const (
	StageLanding     Stage = "LANDING"
	StageDashboard   Stage = "DASHBOARD"
	StageUpload      Stage = "UPLOAD"
	StageReview      Stage = "REVIEW"
	StageCustomize   Stage = "CUSTOMIZE"
	StageProcessing  Stage = "PROCESSING"
	StageResults     Stage = "RESULTS"
	StageProfileCard Stage = "PROFILE_CARD"
	StageSettings    Stage = "SETTINGS"
	StageCredits     Stage = "CREDITS"
	StageComic       Stage = "COMIC_CREATOR"
)

// Image is one uploaded reference photo. The id is derived from the file
// name and modification time and is unique within the active set. Both
// encodings are base64 data URIs; the full one feeds generation, the
// preview one is display-sized.
type Image struct {
	ID         string `json:"id"`
	PreviewURL string `json:"previewUrl"`
	DataURL    string `json:"dataUrl"`
	Error      string `json:"error,omitempty"`
}

var errBadDataURL = errors.New("session: data URL is not a mime/base64 pair")

// Decode splits the image's full data URI into its mime type and raw bytes.
func (img Image) Decode() (string, []byte, error) {
	header, payload, ok := strings.Cut(img.DataURL, ",")
	if !ok {
		return "", nil, errBadDataURL
	}
	mime := strings.TrimPrefix(header, "data:")
	mime, _, _ = strings.Cut(mime, ";")
	if mime == "" || payload == "" {
		return "", nil, errBadDataURL
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("session: decode image payload: %w", err)
	}
	return mime, raw, nil
}

// DataURL builds a data URI from raw image bytes.
func DataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// AvatarResult is one generated avatar portrait.
type AvatarResult struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// SceneResult is one generated story scene with its caption.
type SceneResult struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

// Results holds everything a completed job produced. Immutable once set;
// owned by the session until an explicit reset.
type Results struct {
	JobID   string         `json:"jobId"`
	Avatars []AvatarResult `json:"avatars"`
	Scenes  []SceneResult  `json:"scenes"`
}

// State is the full wizard session payload persisted between reloads.
type State struct {
	Stage         Stage              `json:"page"`
	Images        []Image            `json:"images"`
	JobID         string             `json:"jobId,omitempty"`
	Results       *Results           `json:"results,omitempty"`
	Customization hero.Customization `json:"customization"`
}

// NewState returns the state a brand-new visitor starts from.
func NewState() *State {
	return &State{
		Stage:         StageLanding,
		Customization: hero.DefaultCustomization(),
	}
}

var (
	stagesRequiringImages  = map[Stage]bool{StageReview: true, StageCustomize: true, StageProcessing: true, StageComic: true}
	stagesRequiringResults = map[Stage]bool{StageResults: true, StageProfileCard: true, StageComic: true}
	knownStages            = map[Stage]bool{
		StageLanding: true, StageDashboard: true, StageUpload: true, StageReview: true,
		StageCustomize: true, StageProcessing: true, StageResults: true,
		StageProfileCard: true, StageSettings: true, StageCredits: true, StageComic: true,
	}
)

// normalize repairs a loaded state whose saved stage outruns its data: an
// image-dependent stage without images falls back to Upload, a
// result-dependent stage without results falls back to Dashboard, and a
// returning user never lands on the Landing page again.
func (st *State) normalize() {
	if st.Stage == "" || !knownStages[st.Stage] {
		st.Stage = StageDashboard
	}
	if stagesRequiringImages[st.Stage] && len(st.Images) == 0 {
		st.Stage = StageUpload
	}
	if stagesRequiringResults[st.Stage] && st.Results == nil {
		st.Stage = StageDashboard
	}
	if st.Stage == StageLanding {
		st.Stage = StageDashboard
	}
}

// slim strips the large payloads for the reduced-persistence retry: only
// the stage, job id and customization survive.
func (st *State) slim() *State {
	return &State{
		Stage:         st.Stage,
		JobID:         st.JobID,
		Customization: st.Customization,
	}
}
