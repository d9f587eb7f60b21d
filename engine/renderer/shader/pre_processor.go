package shader

import (
	"fmt"
	"regexp"
	"strings"
)

const maxIncludeDepth = 8

var (
	// includeRegex matches //#include <key> directives
	includeRegex = regexp.MustCompile(`^\s*//#include\s+<([\w./-]+)>\s*$`)

	// directiveRegex matches //#ifdef, //#ifndef, //#else, and //#endif directives
	directiveRegex = regexp.MustCompile(`^\s*//#(ifdef|ifndef|else|endif)(?:\s+(\w+))?\s*$`)
)

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	includes map[string]string
}

// PreProcessor resolves //#include and conditional compilation directives in WGSL source
// before it is handed to the parser and the GPU. Directives are written as line comments so
// unprocessed source remains valid WGSL for editors and tooling:
//
//	//#include <atmosphere/common>
//	//#ifdef CLOUDS_ENABLED
//	  ... variant-specific code ...
//	//#else
//	  ... fallback ...
//	//#endif
//
// Includes are registered once (typically from embedded sources) and may themselves contain
// directives. Conditionals are resolved against a VariantSet per Process call, so a single
// registered source can yield multiple compiled variants.
type PreProcessor interface {
	// RegisterInclude registers a named source fragment for //#include resolution.
	// Registering an existing key replaces the previous fragment.
	//
	// Parameters:
	//   - key: the include key referenced by //#include <key>
	//   - source: the WGSL fragment to substitute
	RegisterInclude(key, source string)

	// Process expands includes and resolves conditional directives in the given source.
	//
	// Parameters:
	//   - source: the raw WGSL source containing directives
	//   - variants: the define set used to resolve //#ifdef and //#ifndef, may be nil
	//
	// Returns:
	//   - string: the processed WGSL source with all directives resolved
	//   - error: an error on unknown includes, include cycles, or unbalanced conditionals
	Process(source string, variants VariantSet) (string, error)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with no registered includes.
//
// Returns:
//   - PreProcessor: a new PreProcessor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		includes: make(map[string]string),
	}
}

func (p *preProcessor) RegisterInclude(key, source string) {
	p.includes[key] = source
}

func (p *preProcessor) Process(source string, variants VariantSet) (string, error) {
	expanded, err := p.expandIncludes(source, 0)
	if err != nil {
		return "", err
	}
	return resolveConditionals(expanded, variants)
}

// expandIncludes substitutes //#include directives with their registered fragments,
// recursively expanding fragments that contain further includes. Depth is bounded to
// catch include cycles.
func (p *preProcessor) expandIncludes(source string, depth int) (string, error) {
	if depth > maxIncludeDepth {
		return "", fmt.Errorf("shader: include depth exceeds %d, include cycle likely", maxIncludeDepth)
	}

	var sb strings.Builder
	sb.Grow(len(source))
	for _, line := range strings.Split(source, "\n") {
		match := includeRegex.FindStringSubmatch(line)
		if match == nil {
			sb.WriteString(line)
			sb.WriteByte('\n')
			continue
		}

		key := match[1]
		fragment, ok := p.includes[key]
		if !ok {
			return "", fmt.Errorf("shader: unknown include %q", key)
		}

		expanded, err := p.expandIncludes(fragment, depth+1)
		if err != nil {
			return "", err
		}
		sb.WriteString(expanded)
		sb.WriteByte('\n')
	}

	out := sb.String()
	// Split always yields one more line than the source had; drop the trailing newline
	// we appended for it so repeated processing does not grow the source.
	return strings.TrimSuffix(out, "\n"), nil
}

// condState tracks one level of //#ifdef nesting during conditional resolution.
type condState struct {
	parentActive bool
	active       bool
	seenElse     bool
}

// resolveConditionals walks the source line by line keeping a stack of conditional states.
// Lines inside inactive branches are dropped. Directive lines themselves never appear in
// the output.
func resolveConditionals(source string, variants VariantSet) (string, error) {
	var sb strings.Builder
	sb.Grow(len(source))

	var stack []condState
	lineActive := func() bool {
		if len(stack) == 0 {
			return true
		}
		top := stack[len(stack)-1]
		return top.parentActive && top.active
	}
	defined := func(name string) bool {
		return variants != nil && variants.Defined(name)
	}

	for i, line := range strings.Split(source, "\n") {
		match := directiveRegex.FindStringSubmatch(line)
		if match == nil {
			if lineActive() {
				sb.WriteString(line)
				sb.WriteByte('\n')
			}
			continue
		}

		directive, name := match[1], match[2]
		switch directive {
		case "ifdef", "ifndef":
			if name == "" {
				return "", fmt.Errorf("shader: line %d: //#%s requires a name", i+1, directive)
			}
			cond := defined(name)
			if directive == "ifndef" {
				cond = !cond
			}
			stack = append(stack, condState{
				parentActive: lineActive(),
				active:       cond,
			})
		case "else":
			if len(stack) == 0 {
				return "", fmt.Errorf("shader: line %d: //#else without matching //#ifdef", i+1)
			}
			top := &stack[len(stack)-1]
			if top.seenElse {
				return "", fmt.Errorf("shader: line %d: duplicate //#else", i+1)
			}
			top.seenElse = true
			top.active = !top.active
		case "endif":
			if len(stack) == 0 {
				return "", fmt.Errorf("shader: line %d: //#endif without matching //#ifdef", i+1)
			}
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) != 0 {
		return "", fmt.Errorf("shader: %d unterminated //#ifdef block(s)", len(stack))
	}

	out := sb.String()
	return strings.TrimSuffix(out, "\n"), nil
}
