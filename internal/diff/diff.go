// Package diff finds presentation segments with no exact match in the
// reference document.
package diff

import "github.com/dgallion1/ghostcheck/internal/segment"

// Ghosts returns the members of presentation absent from reference, in
// presentation insertion order. An empty result means every presentation
// segment is covered by the reference.
func Ghosts(reference, presentation *segment.Set) []string {
	out := make([]string, 0, presentation.Len())
	for _, v := range presentation.Values() {
		if !reference.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}
