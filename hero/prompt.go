package hero

import "fmt"

const characterPromptTemplate = `Create a high-quality 3D cartoon version of this child in a %s animation style.
Preserve the child's real facial identity, skin tone, and hairstyle from the reference photo.
Make the character cute, expressive, and friendly with big glossy eyes and smooth skin shading.
Dress the child as a unique superhero with a %s suit, a short cape, and a glowing emblem
on the chest. The character should be in a "%s" pose.
Add soft cinematic lighting, subtle rim highlights, and smooth depth-of-field.
Place a magical, uplifting background with soft gradients and sparkles to match a storybook theme.
Render at high resolution with clean edges, detailed textures, and proper anatomy.
Style: %s-level polish, vibrant, playful, kid-friendly, positive energy.`

const negativePrompt = `Do not generate a deformed face, creepy eyes, mutated hands, blurry textures, or low-quality results. Avoid extra limbs, stretched features, weird shadows, NSFW content, scary, dark, or ugly themes. Do not include any text or watermarks.`

// PortraitSuffix narrows an avatar generation to a profile-picture framing.
const PortraitSuffix = ` Focus on a head and shoulders portrait view, perfect for a profile picture. Neutral background.`

// CharacterPrompt builds the image-generation prompt for the given
// customization. It is a pure function: the same input always yields the
// same string, and it always ends with the negative-prompt suffix. Enum
// values are interpolated as-is; membership is the caller's problem.
func CharacterPrompt(c Customization) string {
	main := fmt.Sprintf(characterPromptTemplate, c.Style, c.SuitColor, c.Pose, c.Style)
	return main + "\n\nIMPORTANT: " + negativePrompt
}

// NegativePrompt returns the fixed safety suffix appended to every
// character prompt. It carries no input-dependent content.
func NegativePrompt() string {
	return negativePrompt
}
