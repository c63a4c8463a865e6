// Package resource implements the Resource Detector (§4.C): per
// document, identify which Kubernetes apiVersion/kind a template file
// describes by scanning its literal top-level lines, without
// rendering. Detection runs over raw source text rather than the
// fused AST, mirroring how the Shape Tracker (internal/shape) also
// derives structure from literal spans rather than a pre-parsed tree.
package resource

import (
	"strings"

	"github.com/hupe1980/helmschema/internal/ir"
	"github.com/hupe1980/helmschema/internal/yamlutil"
)

// Detect scans a template file's raw source and returns one ir.Resource
// per YAML document found, in document order. A document with no literal
// apiVersion/kind line yields a zero Resource.
func Detect(text string) []ir.Resource {
	docs := yamlutil.SplitDocumentsString([]byte(text))
	if len(docs) == 0 {
		return []ir.Resource{detectDocument(text)}
	}

	results := make([]ir.Resource, len(docs))
	for i, doc := range docs {
		results[i] = detectDocument(doc)
	}

	return results
}

func detectDocument(text string) ir.Resource {
	var cur builder

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if isTopLevel(line) {
			cur.observeTopLevelLine(trimmed)
		}
	}

	return cur.build()
}

// isTopLevel reports whether line has zero leading whitespace, i.e. is
// a top-level mapping key rather than nested content. The raw line is
// checked as is, so a template action line starting at column 0
// ("{{- if ...}}") also counts as top-level; it matches neither header
// key.
func isTopLevel(line string) bool {
	if line == "" {
		return false
	}

	return line[0] != ' ' && line[0] != '\t'
}

type builder struct {
	apiVersion string
	kind       string
	alternates []string
	inHeader   bool
	started    bool
}

func (b *builder) observeTopLevelLine(trimmed string) {
	switch {
	case hasKey(trimmed, "apiVersion"):
		b.started = true

		v := valueOf(trimmed, "apiVersion")
		if v == "" {
			return
		}

		switch {
		case b.apiVersion == "":
			b.apiVersion = v
		case v != b.apiVersion:
			if rank(v) > rank(b.apiVersion) {
				b.alternates = append(b.alternates, b.apiVersion)
				b.apiVersion = v
			} else {
				b.alternates = append(b.alternates, v)
			}
		}

		b.inHeader = true

	case hasKey(trimmed, "kind"):
		b.started = true

		if b.kind == "" {
			b.kind = valueOf(trimmed, "kind")
		}

		b.inHeader = true

	default:
		if b.started {
			b.inHeader = false
		}
	}
}

func (b *builder) build() ir.Resource {
	return ir.Resource{APIVersion: b.apiVersion, Kind: b.kind, Alternates: b.alternates}
}

func hasKey(trimmed, key string) bool {
	if !strings.HasPrefix(trimmed, key) {
		return false
	}

	rest := trimmed[len(key):]

	return strings.HasPrefix(rest, ":")
}

func valueOf(trimmed, key string) string {
	rest := strings.TrimPrefix(trimmed, key+":")
	rest = strings.TrimSpace(rest)
	rest = strings.Trim(rest, `"'`)

	if idx := strings.Index(rest, "#"); idx >= 0 {
		rest = strings.TrimSpace(rest[:idx])
	}

	return rest
}

// class ranks an apiVersion group's maturity per §4.C: stable (v<digits>
// exactly) highest, then beta, then alpha, then anything that matches
// none of those shapes lowest.
func class(v string) int {
	last := v
	if idx := strings.LastIndex(v, "/"); idx >= 0 {
		last = v[idx+1:]
	}

	switch {
	case isStableVersion(last):
		return 4
	case strings.Contains(last, "beta"):
		return 3
	case strings.Contains(last, "alpha"):
		return 2
	default:
		return 1
	}
}

// isStableVersion reports whether last matches "v<digits>" exactly,
// with no alpha/beta suffix (e.g. "v1", "v2", but not "v1beta1").
func isStableVersion(last string) bool {
	if len(last) < 2 || last[0] != 'v' {
		return false
	}

	for _, r := range last[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

// rank orders apiVersions so the preferred candidate sorts highest:
// stable > beta > alpha > unknown, and within a class, a higher
// leading major version number wins.
func rank(v string) int {
	c := class(v)

	return c*1000 + majorVersion(v)
}

func majorVersion(v string) int {
	last := v
	if idx := strings.LastIndex(v, "/"); idx >= 0 {
		last = v[idx+1:]
	}

	last = strings.TrimPrefix(last, "v")

	n := 0

	for _, r := range last {
		if r < '0' || r > '9' {
			break
		}

		n = n*10 + int(r-'0')
	}

	return n
}
