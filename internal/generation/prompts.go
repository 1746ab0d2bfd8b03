package generation

import (
	"fmt"

	"github.com/nbox/texturelab/internal/models"
)

var mapDescriptions = map[models.MapID]string{
	models.Roughness: "Create a grayscale roughness map. Lighter values represent rough areas, darker values represent smooth/glossy areas.",
	models.Normal:    "Generate a standard PBR Normal map (violet/blue palette) representing surface micro-relief and bumps.",
	models.Height:    "Create a grayscale displacement/height map. White represents high areas, black represents low areas.",
	models.AO:        "Generate an Ambient Occlusion map focusing on micro-shadows in crevices and pits.",
	models.Metalness: "Create a metalness mask. Pure black for non-metals, pure white for metal parts.",
}

// AlbedoPrompt asks for a seamless diffuse texture of the material
func AlbedoPrompt(material models.Material) string {
	return fmt.Sprintf(`Generate a professional PBR Albedo (Diffuse) texture of %s.
Instruction: Using the provided reference as a guide, reconstruct it into a 100%% SEAMLESS and TILEABLE architectural texture.
- View: Orthographic, flat, top-down perspective.
- Lighting: Purely diffuse with ZERO shadows or highlights.
- Quality: High-resolution detail capturing realistic grain and surface features.
- Tiling: Ensure the left/right and top/bottom edges align perfectly for repeated use in 3D.
- Content: Only the material surface. Remove all perspective, objects, or environmental context.`, material)
}

// MapPrompt asks for one derived map aligned with the albedo
func MapPrompt(m models.TextureMap, material models.Material) string {
	return fmt.Sprintf(`Convert the provided Albedo texture into a professional PBR %s map for %s.
Requirement: %s
Maintain 100%% alignment with the original albedo and ensure the result remains SEAMLESS and TILEABLE.`,
		m.Name, material, mapDescriptions[m.ID])
}
