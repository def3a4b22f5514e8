package hero

import "strings"

// Style names the art direction applied to every generated image.
type Style string

// SuitColor is the hero suit color woven into prompts.
type SuitColor string

// Pose is the body pose requested from the image model.
type Pose string

// HairColor optionally overrides the hair color from the reference photo.
type HairColor string

// Emblem is the chest emblem shape.
type Emblem string

const (
	StylePixar Style = "Pixar"
	StyleChibi Style = "Chibi"
	StyleComic Style = "Comic"

	SuitRed    SuitColor = "Red"
	SuitBlue   SuitColor = "Blue"
	SuitGreen  SuitColor = "Green"
	SuitYellow SuitColor = "Yellow"
	SuitPurple SuitColor = "Purple"

	PoseFlying      Pose = "Flying"
	PosePowerStance Pose = "Power Stance"
	PoseActionReady Pose = "Action Ready"

	HairOriginal HairColor = "Original"
	HairBlack    HairColor = "Black"
	HairBrown    HairColor = "Brown"
	HairBlonde   HairColor = "Blonde"
	HairRed      HairColor = "Red"

	EmblemLightning Emblem = "Lightning"
	EmblemStar      Emblem = "Star"
	EmblemHeart     Emblem = "Heart"
	EmblemCircle    Emblem = "Circle"
)

// Styles, SuitColors, Poses, HairColors and Emblems list the selectable
// values in display order. The UI enforces membership; the prompt builder
// interpolates whatever it is given.
var (
	Styles     = []Style{StylePixar, StyleChibi, StyleComic}
	SuitColors = []SuitColor{SuitRed, SuitBlue, SuitGreen, SuitYellow, SuitPurple}
	Poses      = []Pose{PoseFlying, PosePowerStance, PoseActionReady}
	HairColors = []HairColor{HairOriginal, HairBlack, HairBrown, HairBlonde, HairRed}
	Emblems    = []Emblem{EmblemLightning, EmblemStar, EmblemHeart, EmblemCircle}
)

// Customization is the snapshot of the user's hero choices. It is copied,
// never mutated, once a pipeline job starts.
type Customization struct {
	Style       Style     `json:"style"`
	SuitColor   SuitColor `json:"color"`
	Pose        Pose      `json:"pose"`
	HeroName    string    `json:"heroName"`
	HairColor   HairColor `json:"hairColor"`
	EmblemShape Emblem    `json:"emblemShape"`
}

// DefaultCustomization returns the initial wizard selection.
func DefaultCustomization() Customization {
	return Customization{
		Style:       Styles[0],
		SuitColor:   SuitColors[0],
		Pose:        Poses[0],
		HeroName:    "",
		HairColor:   HairColors[0],
		EmblemShape: Emblems[0],
	}
}

// WithPose returns a copy of the customization with the pose replaced.
// The avatar-portrait prompt always uses the "Action Ready" pose.
func (c Customization) WithPose(p Pose) Customization {
	c.Pose = p
	return c
}

// Ready reports whether the customization is complete enough to start a job.
func (c Customization) Ready() bool {
	return strings.TrimSpace(c.HeroName) != ""
}
