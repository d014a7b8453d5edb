// Package property parses and resolves property paths against model graphs.
//
// A path is either a dotted chain such as "address.street" or an expression
// wrapped in ${...} such as "${count > 0}". Chains resolve one segment at a
// time through observable containers, model interfaces, getter and setter
// methods, exported fields and maps. Expressions are CEL programs whose
// identifier chains resolve the same way.
//
// Parsed paths are immutable and may be shared by any number of bindings and
// watchers.
package property

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/dshills/bindkit/internal/metrics"
)

const (
	exprOpen  = "${"
	exprClose = "}"
)

// Path is a parsed property reference.
type Path struct {
	raw      string
	segments []string
	expr     *expression
	metrics  *metrics.Metrics
}

// Parse parses s into a Path.
func Parse(s string) (*Path, error) {
	return parse(s, nil)
}

// MustParse is like Parse but panics on error.
func MustParse(s string) *Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func parse(s string, m *metrics.Metrics) (*Path, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return nil, resolutionError(OpParse, s, "", fmt.Errorf("%w: empty path", ErrSyntax))
	}

	if strings.HasPrefix(raw, exprOpen) {
		if !strings.HasSuffix(raw, exprClose) {
			return nil, resolutionError(OpParse, s, "", fmt.Errorf("%w: unterminated expression", ErrSyntax))
		}
		source := strings.TrimSpace(raw[len(exprOpen) : len(raw)-len(exprClose)])
		if source == "" {
			return nil, resolutionError(OpParse, s, "", fmt.Errorf("%w: empty expression", ErrSyntax))
		}
		expr, err := compileExpression(raw, source, m)
		if err != nil {
			return nil, err
		}
		return &Path{raw: raw, expr: expr, metrics: m}, nil
	}

	segments := strings.Split(raw, ".")
	for _, seg := range segments {
		if seg == "" {
			return nil, resolutionError(OpParse, s, "", fmt.Errorf("%w: empty segment", ErrSyntax))
		}
		if strings.IndexFunc(seg, unicode.IsSpace) >= 0 || strings.ContainsAny(seg, "${}") {
			return nil, resolutionError(OpParse, s, seg, fmt.Errorf("%w: invalid segment", ErrSyntax))
		}
	}
	return &Path{raw: raw, segments: segments, metrics: m}, nil
}

// String returns the path as written.
func (p *Path) String() string {
	return p.raw
}

// IsExpression reports whether p is a ${...} expression.
func (p *Path) IsExpression() bool {
	return p.expr != nil
}

// Writable reports whether Set can succeed on p. Chains and expressions that
// consist of a single chain are writable.
func (p *Path) Writable() bool {
	return p.expr == nil || p.expr.chain != nil
}

// Segments returns the dotted segments of a chain, or nil for an expression.
func (p *Path) Segments() []string {
	return slices.Clone(p.segments)
}

// Dependencies returns every chain the path reads, in dotted form.
func (p *Path) Dependencies() []string {
	if p.expr == nil {
		return []string{p.raw}
	}
	deps := make([]string, len(p.expr.deps))
	for i, chain := range p.expr.deps {
		deps[i] = strings.Join(chain, ".")
	}
	return deps
}

// chains returns the dependency chains as segment slices.
func (p *Path) chains() [][]string {
	if p.expr == nil {
		return [][]string{p.segments}
	}
	return p.expr.deps
}

// Get resolves p against root.
func (p *Path) Get(root any) (any, error) {
	if p.expr != nil {
		return p.expr.eval(p.raw, root, p.metrics)
	}
	cur := root
	for _, seg := range p.segments {
		v, err := getSegment(cur, seg)
		if err != nil {
			return nil, resolutionError(OpGet, p.raw, seg, err)
		}
		cur = v
	}
	return cur, nil
}

// Set writes value to the property p addresses on root.
func (p *Path) Set(root any, value any) error {
	segments := p.segments
	if p.expr != nil {
		if p.expr.chain == nil {
			return resolutionError(OpSet, p.raw, "", ErrReadOnly)
		}
		segments = p.expr.chain
	}

	holder := root
	for _, seg := range segments[:len(segments)-1] {
		v, err := getSegment(holder, seg)
		if err != nil {
			return resolutionError(OpSet, p.raw, seg, err)
		}
		holder = v
	}
	last := segments[len(segments)-1]
	if err := setSegment(holder, last, value); err != nil {
		return resolutionError(OpSet, p.raw, last, err)
	}
	return nil
}

// Holder resolves every segment except the last and returns the holder of the
// terminal property together with its name. Expressions that are not a single
// chain have no holder.
func (p *Path) Holder(root any) (any, string, error) {
	segments := p.segments
	if p.expr != nil {
		if p.expr.chain == nil {
			return nil, "", resolutionError(OpGet, p.raw, "", ErrReadOnly)
		}
		segments = p.expr.chain
	}
	holder := root
	for _, seg := range segments[:len(segments)-1] {
		v, err := getSegment(holder, seg)
		if err != nil {
			return nil, "", resolutionError(OpGet, p.raw, seg, err)
		}
		holder = v
	}
	return holder, segments[len(segments)-1], nil
}
