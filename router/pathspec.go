// Package router resolves (method, path) pairs to registered routes. Static
// paths resolve through an exact-match table in near-constant time; dynamic
// patterns are scanned in registration order, first match wins. Captured path
// parameters pass through security sanitization before handlers see them.
package router

import (
	"strings"

	httprouter "github.com/julienschmidt/httprouter"
)

// WildcardKey is the capture name for a `*` segment: the remainder of the
// path, including slashes.
const WildcardKey = "*"

type segmentKind uint8

const (
	segLiteral segmentKind = iota
	segParam
	segWildcard
)

// segment is one compiled pattern element between slashes.
type segment struct {
	kind  segmentKind
	value string // literal bytes, or the parameter name
}

// PathSpec is a compiled route pattern: the normalized literal form, the
// ordered parameter names, and the matcher. Immutable once compiled.
//
// Pattern grammar: segments separated by `/`. A segment starting with `:` is
// a named parameter matching one non-empty slash-free run. A segment that is
// exactly `*` is a wildcard matching the remainder of the path (anything
// after a wildcard in the pattern is unreachable and ignored).
type PathSpec struct {
	pattern    string
	segments   []segment
	paramNames []string
	wildcard   bool
}

// Compile builds a PathSpec from a textual pattern. Empty patterns normalize
// to "/"; a single trailing slash is stripped (paths match with or without
// one).
func Compile(pattern string) *PathSpec {
	pattern = NormalizePath(pattern)
	ps := &PathSpec{pattern: pattern}
	if pattern == "/" {
		return ps
	}
	for _, raw := range strings.Split(pattern[1:], "/") {
		switch {
		case raw == WildcardKey:
			ps.segments = append(ps.segments, segment{kind: segWildcard, value: WildcardKey})
			ps.paramNames = append(ps.paramNames, WildcardKey)
			ps.wildcard = true
			return ps // the wildcard consumes the rest of the pattern
		case strings.HasPrefix(raw, ":"):
			name := raw[1:]
			ps.segments = append(ps.segments, segment{kind: segParam, value: name})
			ps.paramNames = append(ps.paramNames, name)
		default:
			ps.segments = append(ps.segments, segment{kind: segLiteral, value: raw})
		}
	}
	return ps
}

// String returns the normalized pattern.
func (ps *PathSpec) String() string { return ps.pattern }

// ParamNames returns the capture names in segment order.
func (ps *PathSpec) ParamNames() []string { return ps.paramNames }

// IsStatic reports whether the pattern has no parameters and no wildcard,
// making it eligible for the exact-match table.
func (ps *PathSpec) IsStatic() bool {
	return len(ps.paramNames) == 0 && !ps.wildcard
}

// HasWildcard reports whether the pattern ends in a wildcard.
func (ps *PathSpec) HasWildcard() bool { return ps.wildcard }

// Match tests path against the compiled pattern and returns the ordered
// captures. A trailing slash on the path is accepted regardless of pattern
// form. Parameter segments never match an empty segment; a wildcard matches
// an empty remainder as well as a multi-slash one.
func (ps *PathSpec) Match(path string) ([]httprouter.Param, bool) {
	path = NormalizePath(path)

	// Split into segments, remembering byte offsets so a wildcard can
	// capture the raw remainder including slashes.
	var segs []string
	var offs []int
	if path != "/" {
		start := 1
		for i := 1; i <= len(path); i++ {
			if i == len(path) || path[i] == '/' {
				segs = append(segs, path[start:i])
				offs = append(offs, start)
				start = i + 1
			}
		}
	}

	var params []httprouter.Param
	if len(ps.paramNames) > 0 {
		params = make([]httprouter.Param, 0, len(ps.paramNames))
	}

	pi := 0
	for _, seg := range ps.segments {
		switch seg.kind {
		case segWildcard:
			rest := ""
			if pi < len(segs) {
				rest = path[offs[pi]:]
			}
			params = append(params, httprouter.Param{Key: seg.value, Value: rest})
			return params, true
		case segParam:
			if pi >= len(segs) || segs[pi] == "" {
				return nil, false
			}
			params = append(params, httprouter.Param{Key: seg.value, Value: segs[pi]})
			pi++
		default:
			if pi >= len(segs) || segs[pi] != seg.value {
				return nil, false
			}
			pi++
		}
	}
	if pi != len(segs) {
		return nil, false
	}
	return params, true
}

// NormalizePath gives every path a canonical form: a leading slash, no
// trailing slash (one is stripped), and "/" for the empty path.
func NormalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	if len(p) > 1 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	if p == "" {
		return "/"
	}
	return p
}
