package shader

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// The WGSL parser extracts the reflection data the renderer needs from raw
// shader source: entry points, workgroup sizes, vertex input layouts, and
// bind group layout descriptors with MinBindingSize computed from struct
// layout rules. Source is parsed once into a moduleInfo and queried from
// there.

// typeSize is the byte size and alignment of a WGSL type.
type typeSize struct {
	bytes uint64
	align uint64
}

// fieldDecl is one field of a WGSL struct.
type fieldDecl struct {
	name    string
	typ     string
	builtin bool
	// location is the @location index, or -1 when the field carries none.
	location int
}

// structDecl is one struct block from the source.
type structDecl struct {
	name   string
	fields []fieldDecl
}

// resourceDecl is one @group/@binding var declaration.
type resourceDecl struct {
	group   int
	binding int
	// space is the address space inside var<...>, empty for handle types
	// like textures and samplers.
	space string
	name  string
	typ   string
}

// moduleInfo is the reflection data extracted from one WGSL source.
type moduleInfo struct {
	structs   []structDecl
	resources []resourceDecl
	entries   map[ShaderType]string
	workgroup [3]uint32
}

// vertexFormat pairs a wgpu vertex format with its byte size.
type vertexFormat struct {
	format wgpu.VertexFormat
	bytes  uint64
}

// vertexFormats maps WGSL types usable as vertex attributes to wgpu formats.
// scalarLayouts covers the same scalar and vector types for buffer layout
// resolution. Both tables carry the vecNf shorthand and the vecN<T> spelling;
// init derives them from the three 32-bit scalar families.
var (
	vertexFormats = map[string]vertexFormat{}
	scalarLayouts = map[string]typeSize{}
)

func init() {
	families := []struct {
		typ    string
		short  string
		widths [4]wgpu.VertexFormat
	}{
		{"f32", "f", [4]wgpu.VertexFormat{wgpu.VertexFormatFloat32, wgpu.VertexFormatFloat32x2, wgpu.VertexFormatFloat32x3, wgpu.VertexFormatFloat32x4}},
		{"i32", "i", [4]wgpu.VertexFormat{wgpu.VertexFormatSint32, wgpu.VertexFormatSint32x2, wgpu.VertexFormatSint32x3, wgpu.VertexFormatSint32x4}},
		{"u32", "u", [4]wgpu.VertexFormat{wgpu.VertexFormatUint32, wgpu.VertexFormatUint32x2, wgpu.VertexFormatUint32x3, wgpu.VertexFormatUint32x4}},
	}
	for _, fam := range families {
		vertexFormats[fam.typ] = vertexFormat{fam.widths[0], 4}
		scalarLayouts[fam.typ] = typeSize{4, 4}
		for n := uint64(2); n <= 4; n++ {
			// vec3 aligns to 16 per the WGSL layout rules
			align := 4 * n
			if n == 3 {
				align = 16
			}
			for _, spelling := range []string{
				fmt.Sprintf("vec%d<%s>", n, fam.typ),
				fmt.Sprintf("vec%d%s", n, fam.short),
			} {
				vertexFormats[spelling] = vertexFormat{fam.widths[n-1], 4 * n}
				scalarLayouts[spelling] = typeSize{4 * n, align}
			}
		}
	}
	scalarLayouts["bool"] = typeSize{4, 4}
	scalarLayouts["atomic<u32>"] = typeSize{4, 4}
	scalarLayouts["atomic<i32>"] = typeSize{4, 4}
	// matCxR<f32> is C columns at the column vector's stride
	scalarLayouts["mat3x3<f32>"] = typeSize{48, 16}
	scalarLayouts["mat4x4<f32>"] = typeSize{64, 16}
}

// textureDimensions maps sampled, depth, and storage texture base types to
// their view dimension.
var textureDimensions = map[string]wgpu.TextureViewDimension{
	"texture_2d":               wgpu.TextureViewDimension2D,
	"texture_2d_array":         wgpu.TextureViewDimension2DArray,
	"texture_3d":               wgpu.TextureViewDimension3D,
	"texture_depth_2d":         wgpu.TextureViewDimension2D,
	"texture_depth_2d_array":   wgpu.TextureViewDimension2DArray,
	"texture_storage_2d":       wgpu.TextureViewDimension2D,
	"texture_storage_2d_array": wgpu.TextureViewDimension2DArray,
	"texture_storage_3d":       wgpu.TextureViewDimension3D,
}

// sampleTypes maps the scalar parameter of a sampled texture to its wgpu
// sample type.
var sampleTypes = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

// storageAccess maps WGSL access mode keywords to wgpu storage texture access.
var storageAccess = map[string]wgpu.StorageTextureAccess{
	"write":      wgpu.StorageTextureAccessWriteOnly,
	"read":       wgpu.StorageTextureAccessReadOnly,
	"read_write": wgpu.StorageTextureAccessReadWrite,
}

// texelFormats maps the texel format strings valid for storage textures to
// wgpu texture formats.
var texelFormats = map[string]wgpu.TextureFormat{
	"r32uint":     wgpu.TextureFormatR32Uint,
	"r32sint":     wgpu.TextureFormatR32Sint,
	"r32float":    wgpu.TextureFormatR32Float,
	"rg32uint":    wgpu.TextureFormatRG32Uint,
	"rg32sint":    wgpu.TextureFormatRG32Sint,
	"rg32float":   wgpu.TextureFormatRG32Float,
	"rgba8unorm":  wgpu.TextureFormatRGBA8Unorm,
	"rgba8snorm":  wgpu.TextureFormatRGBA8Snorm,
	"rgba8uint":   wgpu.TextureFormatRGBA8Uint,
	"rgba8sint":   wgpu.TextureFormatRGBA8Sint,
	"rgba16uint":  wgpu.TextureFormatRGBA16Uint,
	"rgba16sint":  wgpu.TextureFormatRGBA16Sint,
	"rgba16float": wgpu.TextureFormatRGBA16Float,
	"rgba32uint":  wgpu.TextureFormatRGBA32Uint,
	"rgba32sint":  wgpu.TextureFormatRGBA32Sint,
	"rgba32float": wgpu.TextureFormatRGBA32Float,
	"bgra8unorm":  wgpu.TextureFormatBGRA8Unorm,
}

var (
	// attrRegex matches any @name(args) attribute and captures name and args.
	attrRegex = regexp.MustCompile(`@(\w+)\(([^)]*)\)`)

	// structRegex captures the name and body of a struct block.
	structRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// entryRegex captures a stage attribute, the attributes between it and
	// the fn keyword, and the function name.
	entryRegex = regexp.MustCompile(`(?s)@(vertex|fragment|compute)\b(.*?)\bfn\s+(\w+)`)

	// varRegex captures the optional address space, name, and type of a
	// module-scope var declaration.
	varRegex = regexp.MustCompile(`\bvar(?:<([^>]*)>)?\s+(\w+)\s*:\s*(.+)`)
)

// parseEntryPoint returns the entry point function name for the given shader
// stage, or an empty string when the source declares none.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - shaderType: the shader stage to look up
//
// Returns:
//   - string: the entry point function name, or empty string if not found
func parseEntryPoint(source string, shaderType ShaderType) string {
	return parseModule(source).entries[shaderType]
}

// parseWorkgroupSize returns the @workgroup_size dimensions of the compute
// entry point. Omitted dimensions default to 1, as does the whole result when
// the source has no compute stage.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - [3]uint32: the workgroup size as [x, y, z]
func parseWorkgroupSize(source string) [3]uint32 {
	return parseModule(source).workgroup
}

// parseVertexLayouts returns the vertex buffer layouts of all vertex input
// structs in the source, keyed by sequential slot index. A struct counts as
// vertex input when every field has a vertex-format type, none is a builtin,
// and at least one carries @location. Compute and fullscreen-triangle shaders
// return an empty map.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - map[int][]wgpu.VertexBufferLayout: vertex layouts keyed by slot index
func parseVertexLayouts(source string) map[int][]wgpu.VertexBufferLayout {
	layouts := make(map[int][]wgpu.VertexBufferLayout)
	slot := 0
	for _, sd := range parseModule(source).structs {
		layout, ok := vertexLayoutFor(sd)
		if !ok {
			continue
		}
		layouts[slot] = []wgpu.VertexBufferLayout{layout}
		slot++
	}
	return layouts
}

// parseBindGroupLayouts returns a bind group layout descriptor per group
// index, with entries sorted by binding and MinBindingSize resolved from the
// bound type's WGSL layout. The visibility flag is stamped onto every entry.
// The second return value maps group and binding indices to the declared
// variable names for resource tracking.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - visibility: the shader stage visibility flag to set on each entry
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: layout descriptors keyed by group index
//   - map[int]map[int]string: variable names keyed by group and binding index
func parseBindGroupLayouts(source string, visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	m := parseModule(source)
	sizes := resolveStructLayouts(m.structs)

	grouped := make(map[int][]wgpu.BindGroupLayoutEntry)
	names := make(map[int]map[int]string)
	for _, res := range m.resources {
		grouped[res.group] = append(grouped[res.group], layoutEntryFor(res, visibility, sizes))
		if names[res.group] == nil {
			names[res.group] = make(map[int]string)
		}
		names[res.group][res.binding] = res.name
	}

	descriptors := make(map[int]wgpu.BindGroupLayoutDescriptor, len(grouped))
	for g, entries := range grouped {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		descriptors[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return descriptors, names
}

// parseModule parses WGSL source into its reflection data.
func parseModule(source string) *moduleInfo {
	cleaned := stripComments(source)
	m := &moduleInfo{
		entries:   make(map[ShaderType]string, 3),
		workgroup: [3]uint32{1, 1, 1},
	}

	for _, sm := range structRegex.FindAllStringSubmatch(cleaned, -1) {
		m.structs = append(m.structs, structDecl{name: sm[1], fields: scanFields(sm[2])})
	}
	m.resources = scanResources(cleaned)

	for _, fn := range entryRegex.FindAllStringSubmatch(cleaned, -1) {
		switch fn[1] {
		case "vertex":
			m.entries[ShaderTypeVertex] = fn[3]
		case "fragment":
			m.entries[ShaderTypeFragment] = fn[3]
		case "compute":
			m.entries[ShaderTypeCompute] = fn[3]
			m.workgroup = scanWorkgroupSize(fn[2])
		}
	}
	return m
}

// scanWorkgroupSize reads @workgroup_size dimensions from the attribute text
// between @compute and the fn keyword.
func scanWorkgroupSize(attrText string) [3]uint32 {
	size := [3]uint32{1, 1, 1}
	for _, a := range attrRegex.FindAllStringSubmatch(attrText, -1) {
		if a[1] != "workgroup_size" {
			continue
		}
		for i, dim := range strings.Split(a[2], ",") {
			if i > 2 {
				break
			}
			if v, err := strconv.ParseUint(strings.TrimSpace(dim), 10, 32); err == nil {
				size[i] = uint32(v)
			}
		}
	}
	return size
}

// scanResources collects the @group/@binding var declarations. The cleaned
// source is walked statement by statement so each declaration's attributes
// stay paired with its var keyword.
func scanResources(cleaned string) []resourceDecl {
	var out []resourceDecl
	for _, stmt := range strings.Split(cleaned, ";") {
		group, binding := -1, -1
		declStart := 0
		for _, loc := range attrRegex.FindAllStringSubmatchIndex(stmt, -1) {
			name := stmt[loc[2]:loc[3]]
			if name != "group" && name != "binding" {
				continue
			}
			v, err := strconv.Atoi(strings.TrimSpace(stmt[loc[4]:loc[5]]))
			if err != nil {
				continue
			}
			if name == "group" {
				group = v
			} else {
				binding = v
			}
			declStart = loc[1]
		}
		if group < 0 || binding < 0 {
			continue
		}
		decl := varRegex.FindStringSubmatch(stmt[declStart:])
		if decl == nil {
			continue
		}
		out = append(out, resourceDecl{
			group:   group,
			binding: binding,
			space:   strings.TrimSpace(decl[1]),
			name:    decl[2],
			typ:     strings.TrimSpace(decl[3]),
		})
	}
	return out
}

// scanFields parses a struct body into fields, reading @location and @builtin
// attributes before stripping them off to expose the name and type.
func scanFields(body string) []fieldDecl {
	var fields []fieldDecl
	for _, raw := range splitFields(body) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		f := fieldDecl{location: -1}
		for _, a := range attrRegex.FindAllStringSubmatch(raw, -1) {
			switch a[1] {
			case "location":
				if v, err := strconv.Atoi(strings.TrimSpace(a[2])); err == nil {
					f.location = v
				}
			case "builtin":
				f.builtin = true
			}
		}

		decl := attrRegex.ReplaceAllString(raw, "")
		name, typ, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		f.name = strings.TrimSpace(name)
		f.typ = strings.TrimSpace(typ)
		fields = append(fields, f)
	}
	return fields
}

// splitFields splits a struct body at the commas separating fields, leaving
// commas nested in angle brackets (array<T, N>) alone.
func splitFields(body string) []string {
	var parts []string
	depth, start := 0, 0
	for i, c := range body {
		switch c {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, body[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, body[start:])
}

// vertexLayoutFor builds a vertex buffer layout from a vertex input struct.
// Structs with builtin fields are stage interfaces rather than vertex input,
// and structs using types without a vertex format (uniform blocks with
// matrices, for example) are rejected the same way.
func vertexLayoutFor(sd structDecl) (wgpu.VertexBufferLayout, bool) {
	attrs := make([]wgpu.VertexAttribute, 0, len(sd.fields))
	var stride uint64
	located := false

	for _, f := range sd.fields {
		if f.builtin {
			return wgpu.VertexBufferLayout{}, false
		}
		vf, ok := vertexFormats[f.typ]
		if !ok {
			return wgpu.VertexBufferLayout{}, false
		}
		if f.location >= 0 {
			located = true
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         vf.format,
			Offset:         stride,
			ShaderLocation: uint32(f.location),
		})
		stride += vf.bytes
	}
	if !located {
		return wgpu.VertexBufferLayout{}, false
	}

	return wgpu.VertexBufferLayout{
		ArrayStride: stride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}, true
}

// layoutEntryFor builds the bind group layout entry for one resource
// declaration. Buffer bindings get MinBindingSize from the bound type so
// InitBindGroup can allocate correctly sized buffers.
func layoutEntryFor(res resourceDecl, visibility wgpu.ShaderStage, sizes map[string]typeSize) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    uint32(res.binding),
		Visibility: visibility,
	}

	if res.space != "" {
		switch {
		case res.space == "uniform":
			entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		case strings.Contains(res.space, "read_write"):
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		case strings.HasPrefix(res.space, "storage"):
			entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		}
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if ts, ok := layoutOf(res.typ, sizes); ok && ts.bytes > 0 {
				entry.Buffer.MinBindingSize = ts.bytes
			}
		}
		return entry
	}

	base, params := typeParams(res.typ)
	switch {
	case res.typ == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case res.typ == "sampler_comparison":
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case strings.HasPrefix(base, "texture_storage_"):
		entry.StorageTexture.ViewDimension = textureDimensions[base]
		format, access, _ := strings.Cut(params, ",")
		if tf, ok := texelFormats[strings.TrimSpace(format)]; ok {
			entry.StorageTexture.Format = tf
		}
		if sa, ok := storageAccess[strings.TrimSpace(access)]; ok {
			entry.StorageTexture.Access = sa
		}
	case strings.HasPrefix(base, "texture_depth_"):
		entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		entry.Texture.ViewDimension = textureDimensions[base]
	case strings.HasPrefix(base, "texture_"):
		entry.Texture.ViewDimension = textureDimensions[base]
		if st, ok := sampleTypes[params]; ok {
			entry.Texture.SampleType = st
		}
	}
	return entry
}

// resolveStructLayouts computes the size and alignment of every struct,
// iterating until structs nested in other structs settle.
func resolveStructLayouts(structs []structDecl) map[string]typeSize {
	sizes := make(map[string]typeSize, len(structs))
	pending := structs
	for len(pending) > 0 {
		var next []structDecl
		for _, sd := range pending {
			if ts, ok := structLayout(sd, sizes); ok {
				sizes[sd.name] = ts
			} else {
				next = append(next, sd)
			}
		}
		if len(next) == len(pending) {
			break
		}
		pending = next
	}
	return sizes
}

// structLayout computes one struct's size and alignment per the WGSL layout
// rules: each field lands on the next offset aligned to its type, and the
// total rounds up to the largest field alignment.
func structLayout(sd structDecl, known map[string]typeSize) (typeSize, bool) {
	var offset uint64
	maxAlign := uint64(1)

	for _, f := range sd.fields {
		if f.builtin {
			continue
		}
		ts, ok := layoutOf(f.typ, known)
		if !ok {
			return typeSize{}, false
		}
		offset = alignTo(offset, ts.align) + ts.bytes
		if ts.align > maxAlign {
			maxAlign = ts.align
		}
	}
	return typeSize{alignTo(offset, maxAlign), maxAlign}, true
}

// layoutOf resolves a type name to its size and alignment from the scalar
// table, resolved structs, and array types. A runtime-sized array resolves to
// one element stride, the smallest binding the shader can use.
func layoutOf(typ string, known map[string]typeSize) (typeSize, bool) {
	if ts, ok := scalarLayouts[typ]; ok {
		return ts, true
	}
	if ts, ok := known[typ]; ok {
		return ts, true
	}

	elem, count, ok := arrayType(typ)
	if !ok {
		return typeSize{}, false
	}
	ts, ok := layoutOf(elem, known)
	if !ok {
		return typeSize{}, false
	}
	stride := alignTo(ts.bytes, ts.align)
	if count == 0 {
		return typeSize{stride, ts.align}, true
	}
	return typeSize{stride * count, ts.align}, true
}

// arrayType splits "array<T>" or "array<T, N>" into element type and count,
// with count 0 marking a runtime-sized array.
func arrayType(typ string) (string, uint64, bool) {
	inner, ok := strings.CutPrefix(typ, "array<")
	if !ok {
		return "", 0, false
	}
	inner, ok = strings.CutSuffix(inner, ">")
	if !ok {
		return "", 0, false
	}
	elem, countStr, hasCount := strings.Cut(inner, ",")
	if !hasCount {
		return strings.TrimSpace(elem), 0, true
	}
	count, err := strconv.ParseUint(strings.TrimSpace(countStr), 10, 64)
	if err != nil {
		return "", 0, false
	}
	return strings.TrimSpace(elem), count, true
}

// alignTo rounds value up to the next multiple of align, which must be a
// power of two.
func alignTo(value, align uint64) uint64 {
	if align == 0 {
		return value
	}
	return (value + align - 1) &^ (align - 1)
}

// typeParams splits a parameterized type like "texture_2d<f32>" into base
// name and parameter text.
func typeParams(typ string) (string, string) {
	base, rest, ok := strings.Cut(typ, "<")
	if !ok {
		return typ, ""
	}
	return base, strings.TrimSpace(strings.TrimSuffix(rest, ">"))
}

// stripComments removes line and block comments from WGSL source in one pass.
// Block comments nest per the WGSL grammar; newlines are kept so declarations
// stay line-separated.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if depth == 0 && source[i] == '/' && i+1 < len(source) && source[i+1] == '/' {
			for i < len(source) && source[i] != '\n' {
				i++
			}
			if i < len(source) {
				sb.WriteByte('\n')
			}
			continue
		}
		if source[i] == '/' && i+1 < len(source) && source[i+1] == '*' {
			depth++
			i++
			continue
		}
		if depth > 0 && source[i] == '*' && i+1 < len(source) && source[i+1] == '/' {
			depth--
			i++
			continue
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
