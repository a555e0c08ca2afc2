package cube

import (
	"strings"

	"github.com/roach88/starcube/internal/ir"
)

// Textual cut syntax:
//
//	cuts   = cut { "|" cut }
//	cut    = dimension [ "@" hierarchy ] ":" ( point | range | set )
//	point  = path
//	range  = [ path ] "-" [ path ]
//	set    = path ";" path { ";" path }
//	path   = value { "," value }
//
// A backslash escapes the next character. Values that parse as decimal
// integers become integers.
const escapeChars = `\|:;,-@`

// ParseCuts parses a "|" separated list of cuts.
func ParseCuts(s string) ([]Cut, error) {
	if s == "" {
		return nil, nil
	}
	parts := splitUnescaped(s, '|', -1)
	cuts := make([]Cut, 0, len(parts))
	for _, p := range parts {
		cut, err := ParseCut(p)
		if err != nil {
			return nil, err
		}
		cuts = append(cuts, cut)
	}
	return cuts, nil
}

// ParseCut parses a single cut.
func ParseCut(s string) (Cut, error) {
	head := splitUnescaped(s, ':', 2)
	if len(head) != 2 {
		return nil, &ParseError{Input: s, Message: "expected dimension:cut"}
	}

	target := splitUnescaped(head[0], '@', -1)
	if len(target) > 2 {
		return nil, &ParseError{Input: s, Message: "more than one hierarchy"}
	}
	dim := unescape(target[0])
	if dim == "" {
		return nil, &ParseError{Input: s, Message: "missing dimension"}
	}
	var hier string
	if len(target) == 2 {
		if hier = unescape(target[1]); hier == "" {
			return nil, &ParseError{Input: s, Message: "empty hierarchy"}
		}
	}

	body := head[1]
	if set := splitUnescaped(body, ';', -1); len(set) > 1 {
		cut := SetCut{Dim: dim, Hier: hier}
		for _, p := range set {
			if len(splitUnescaped(p, '-', -1)) > 1 {
				return nil, &ParseError{Input: s, Message: "range inside a set"}
			}
			if p != "" {
				cut.Paths = append(cut.Paths, parsePath(p))
			}
		}
		return cut, nil
	}

	if bounds := splitUnescaped(body, '-', -1); len(bounds) > 1 {
		if len(bounds) > 2 {
			return nil, &ParseError{Input: s, Message: "range with more than two bounds"}
		}
		return RangeCut{Dim: dim, Hier: hier, From: parsePath(bounds[0]), To: parsePath(bounds[1])}, nil
	}

	return PointCut{Dim: dim, Hier: hier, Path: parsePath(body)}, nil
}

// parsePath returns nil for an empty string.
func parsePath(s string) []ir.IRValue {
	if s == "" {
		return nil
	}
	parts := splitUnescaped(s, ',', -1)
	for i, p := range parts {
		parts[i] = unescape(p)
	}
	return ir.ParsePath(parts)
}

// ParseDrilldown parses "dimension[@hierarchy][:level]".
func ParseDrilldown(s string) (DrilldownRequest, error) {
	head := splitUnescaped(s, ':', -1)
	if len(head) > 2 {
		return DrilldownRequest{}, &ParseError{Input: s, Message: "more than one level"}
	}
	target := splitUnescaped(head[0], '@', -1)
	if len(target) > 2 {
		return DrilldownRequest{}, &ParseError{Input: s, Message: "more than one hierarchy"}
	}

	req := DrilldownRequest{Dimension: unescape(target[0])}
	if req.Dimension == "" {
		return DrilldownRequest{}, &ParseError{Input: s, Message: "missing dimension"}
	}
	if len(target) == 2 {
		req.Hierarchy = unescape(target[1])
	}
	if len(head) == 2 {
		req.Level = unescape(head[1])
	}
	return req, nil
}

// ParseDrilldowns parses each drilldown string.
func ParseDrilldowns(specs []string) ([]DrilldownRequest, error) {
	reqs := make([]DrilldownRequest, 0, len(specs))
	for _, s := range specs {
		req, err := ParseDrilldown(s)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// FormatCut renders a cut in the textual cut syntax.
func FormatCut(cut Cut) string {
	var sb strings.Builder
	sb.WriteString(escape(cut.Dimension()))
	if h := cut.Hierarchy(); h != "" {
		sb.WriteString("@")
		sb.WriteString(escape(h))
	}
	sb.WriteString(":")

	switch c := normalize(cut).(type) {
	case PointCut:
		sb.WriteString(formatPath(c.Path))
	case RangeCut:
		sb.WriteString(formatPath(c.From))
		sb.WriteString("-")
		sb.WriteString(formatPath(c.To))
	case SetCut:
		for i, p := range c.Paths {
			if i > 0 {
				sb.WriteString(";")
			}
			sb.WriteString(formatPath(p))
		}
		if len(c.Paths) < 2 {
			sb.WriteString(";")
		}
	}
	return sb.String()
}

// FormatCuts joins formatted cuts with "|".
func FormatCuts(cuts []Cut) string {
	parts := make([]string, len(cuts))
	for i, c := range cuts {
		parts[i] = FormatCut(c)
	}
	return strings.Join(parts, "|")
}

func formatPath(path []ir.IRValue) string {
	parts := make([]string, len(path))
	for i, v := range path {
		parts[i] = escape(ir.Format(v))
	}
	return strings.Join(parts, ",")
}

// splitUnescaped splits s at unescaped sep into at most n parts (n < 0
// means no limit). Escapes are kept in the parts.
func splitUnescaped(s string, sep byte, n int) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == sep && (n < 0 || len(parts) < n-1) {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func escape(s string) string {
	if !strings.ContainsAny(s, escapeChars) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(escapeChars, s[i]) >= 0 {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
