package hero

// FlavorStats are the decorative profile-card attributes. They are a
// deterministic function of the hero name, not a gameplay system.
type FlavorStats struct {
	PowerLevel    int    `json:"powerLevel"`
	PowerType     string `json:"powerType"`
	SignatureMove string `json:"signatureMove"`
	Weakness      string `json:"weakness"`
	OriginPlanet  string `json:"originPlanet"`
}

var (
	powerTypes     = [5]string{"Cosmic Rays", "Super Strength", "Telekinesis", "Shapeshifting", "Elemental Control"}
	signatureMoves = [5]string{"Galaxy Punch", "Meteor Slam", "Mind Warp", "Mirage Strike", "Tornado Kick"}
	weaknesses     = [5]string{"Kittens", "Spicy Food", "Loud Noises", "Tickling", "Mondays"}
	originPlanets  = [5]string{"Zorbon", "Giggle-Prime", "Crystalia", "Fluff-Topia", "Technos"}
)

// Stats derives the flavor stats for a hero name. The power level is
// (len(name) mod 10) + 1 and the remaining attributes index the fixed
// tables by powerLevel mod 5.
func Stats(heroName string) FlavorStats {
	level := (len(heroName) % 10) + 1
	idx := level % 5
	return FlavorStats{
		PowerLevel:    level,
		PowerType:     powerTypes[idx],
		SignatureMove: signatureMoves[idx],
		Weakness:      weaknesses[idx],
		OriginPlanet:  originPlanets[idx],
	}
}
