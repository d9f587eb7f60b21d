package shader

import (
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

// MergeBindGroupLayouts merges the bind group layout descriptors of a vertex
// and fragment shader pair into the unified set a render pipeline layout is
// built from. Entries with the same binding number have their Visibility flags
// ORed together; entries unique to one shader keep their original visibility.
//
// Bind groups used with a render pipeline must be created from the merged
// descriptors: both stages parse every resource declaration in a shared
// source, so a single stage's descriptors carry too narrow a visibility.
//
// Parameters:
//   - vertexLayouts: bind group layout descriptors from the vertex shader
//   - fragmentLayouts: bind group layout descriptors from the fragment shader
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
func MergeBindGroupLayouts(
	vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor,
) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor, len(vertexLayouts))
	for g, desc := range vertexLayouts {
		merged[g] = desc
	}

	for g, fDesc := range fragmentLayouts {
		vDesc, shared := merged[g]
		if !shared {
			merged[g] = fDesc
			continue
		}

		byBinding := make(map[uint32]wgpu.BindGroupLayoutEntry, len(vDesc.Entries))
		for _, e := range vDesc.Entries {
			byBinding[e.Binding] = e
		}
		for _, e := range fDesc.Entries {
			if prev, ok := byBinding[e.Binding]; ok {
				prev.Visibility |= e.Visibility
				e = prev
			}
			byBinding[e.Binding] = e
		}

		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(byBinding))
		for _, e := range byBinding {
			entries = append(entries, e)
		}
		// Entry order must be deterministic for pipeline cache keys.
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})

		merged[g] = wgpu.BindGroupLayoutDescriptor{
			Label:   vDesc.Label,
			Entries: entries,
		}
	}

	return merged
}
