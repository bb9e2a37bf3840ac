package diagram

import (
	"fmt"

	"github.com/loomworks/loom/pkg/schema"
)

// Format selects a renderer.
type Format string

const (
	FormatMermaid Format = "mermaid"
	FormatASCII   Format = "ascii"
	FormatPNG     Format = "png"
)

// Render flattens a definition and renders it in the requested format.
// Mermaid and ASCII return UTF-8 text bytes; PNG returns image bytes.
func Render(def *schema.WorkflowDefinition, format Format) ([]byte, error) {
	model := Flatten(def)
	switch format {
	case FormatMermaid, "":
		return []byte(RenderMermaid(model)), nil
	case FormatASCII:
		return []byte(RenderASCII(model)), nil
	case FormatPNG:
		return RenderImage(model)
	default:
		return nil, fmt.Errorf("diagram: unknown format %q", format)
	}
}
