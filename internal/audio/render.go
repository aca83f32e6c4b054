package audio

import (
	"fmt"
	"strings"
)

// downmixLayouts lets libopus pick the matching layout for 7.1, 5.1 and stereo
// sources. Opus has no mapping for other layouts without a filter.
const downmixLayouts = `7.1|5.1|stereo`

// Fragment renders one decision as ffmpeg per-output-stream options. Every
// fragment ends with a space so fragments concatenate directly.
func Fragment(d Decision) string {
	if d.Action == ActionTranscode {
		return fmt.Sprintf("-c:a:%[1]d libopus -b:a:%[1]d %[2]dk -filter:a:%[1]d aformat=channel_layouts=%[3]q ",
			d.Index, d.BitrateKbps, downmixLayouts)
	}
	return fmt.Sprintf("-c:a:%d copy ", d.Index)
}

// Render concatenates the fragments in decision order.
func Render(decisions []Decision) string {
	var b strings.Builder
	for _, d := range decisions {
		b.WriteString(Fragment(d))
	}
	return b.String()
}
