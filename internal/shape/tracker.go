// Package shape implements the Shape Tracker (§4.D): it derives the
// YAML container structure (mapping/sequence nesting, current path)
// from the literal text spans between template actions, rather than
// from a pre-parsed YAML tree. The fused AST (internal/tmplast) keeps
// literal regions as flat text on purpose; this is where their
// structure actually gets reconstructed, incrementally, as the
// interpreter walks the document.
package shape

import (
	"strings"

	"github.com/hupe1980/helmschema/internal/ir"
)

type frame struct {
	segment ir.Segment
	indent  int // the indent column at which this frame's own entries sit
}

// Tracker holds the running YAML-shape state for one document as its
// literal text is ingested in source order.
type Tracker struct {
	stack []frame

	pendingKey       string
	pendingKeyIndent int
	havePendingKey   bool

	partial string // buffered, not-yet-newline-terminated tail of the current line
}

// New returns a Tracker positioned at a fresh document root.
func New() *Tracker {
	return &Tracker{stack: []frame{{indent: 0}}}
}

// Reset clears all state, used when a "---"/"..." document separator
// is crossed.
func (t *Tracker) Reset() {
	t.stack = []frame{{indent: 0}}
	t.havePendingKey = false
}

// Ingest feeds a span of literal (non-action) source text into the
// tracker. Call it with the Text content of KindText/KindComment
// nodes, in source order; never with template action source.
func (t *Tracker) Ingest(text string) {
	t.partial += text

	for {
		idx := strings.IndexByte(t.partial, '\n')
		if idx < 0 {
			break
		}

		line := t.partial[:idx]
		t.partial = t.partial[idx+1:]
		t.processLine(line)
	}
}

// Flush processes any buffered partial line as if newline-terminated,
// used at end of file.
func (t *Tracker) Flush() {
	if t.partial != "" {
		t.processLine(t.partial)
		t.partial = ""
	}
}

// CurrentPath returns the YAML path an expression positioned right now
// (immediately after everything ingested so far) would land at. It
// does not mutate tracker state: the trailing partial line is
// inspected but not committed until a newline completes it.
func (t *Tracker) CurrentPath() ir.YAMLPath {
	stack := append([]frame(nil), t.stack...)
	pendingKey, pendingKeyIndent, havePendingKey := t.pendingKey, t.pendingKeyIndent, t.havePendingKey

	trimmed := strings.TrimSpace(t.partial)
	if trimmed == "" {
		path := pathFromStack(stack)
		if havePendingKey {
			return path.WithKey(pendingKey)
		}

		return path
	}

	indent := leadingSpaces(t.partial)
	content, isItem := splitSeqItem(trimmed)

	if havePendingKey {
		ok := indent > pendingKeyIndent || (isItem && indent >= pendingKeyIndent)
		if ok {
			stack = append(stack, frame{segment: ir.Segment(pendingKey), indent: indent})
		}

		havePendingKey = false
	}

	for len(stack) > 1 && indent < stack[len(stack)-1].indent {
		stack = stack[:len(stack)-1]
	}

	if isItem {
		if n := len(stack); n > 1 && stack[n-1].segment == ir.ListMarker && stack[n-1].indent == indent {
			stack = stack[:n-1]
		}

		path := pathFromStack(stack).WithListItem()

		if key, hasInline := splitMappingKey(content); key != "" {
			_ = hasInline
			return path.WithKey(key)
		}

		return path
	}

	path := pathFromStack(stack)

	if key, hasInline := splitMappingKey(content); key != "" {
		_ = hasInline
		return path.WithKey(key)
	}

	return path
}

// NoteFragmentConsumedKey tells the tracker that the pending mapping
// key (if any) was just satisfied by a Fragment-valued expression
// (e.g. "resources:\n{{ toYaml .Values.resources | nindent 2 }}").
// virtualIndent is the column argument to a trailing nindent/indent
// call, or 0 if the expression carried none. When > 0, a frame is
// pushed so that further literal lines at that column are correctly
// understood as the fragment's (opaque) content; the ordinary
// dedent-pop rule later retires it once a shallower line arrives.
func (t *Tracker) NoteFragmentConsumedKey(virtualIndent int) {
	if !t.havePendingKey {
		return
	}

	key := t.pendingKey
	t.havePendingKey = false

	if virtualIndent > 0 {
		t.stack = append(t.stack, frame{segment: ir.Segment(key), indent: virtualIndent})
	}
}

func pathFromStack(stack []frame) ir.YAMLPath {
	var path ir.YAMLPath

	for _, f := range stack[1:] {
		if f.segment == ir.ListMarker {
			path = path.WithListItem()
			continue
		}

		path = path.WithKey(string(f.segment))
	}

	return path
}

func (t *Tracker) processLine(line string) {
	trimmed := strings.TrimSpace(line)

	// Rule 1: blank lines and full-line comments carry no structure.
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return
	}

	// Rule 2: document markers reset everything.
	if trimmed == "---" || trimmed == "..." {
		t.Reset()
		return
	}

	indent := leadingSpaces(line)
	content, isItem := splitSeqItem(trimmed)

	// Resolve the previous line's pending key now that this line's
	// indent is known: a deeper (or, for sequences, equal) indent means
	// the key's value was nested; otherwise it was empty/null and the
	// key contributed no frame.
	if t.havePendingKey {
		ok := indent > t.pendingKeyIndent || (isItem && indent >= t.pendingKeyIndent)

		if ok {
			t.stack = append(t.stack, frame{segment: ir.Segment(t.pendingKey), indent: indent})
		}

		t.havePendingKey = false
	}

	// Rule 3: dedent pops frames whose indent is no longer reachable.
	for len(t.stack) > 1 && indent < t.stack[len(t.stack)-1].indent {
		t.stack = t.stack[:len(t.stack)-1]
	}

	if isItem {
		t.processSequenceItem(indent, content)
		return
	}

	t.processMappingLine(indent, trimmed)
}

// processSequenceItem handles rule 4: a "- " introducer pushes a
// fresh list-item frame, replacing any previous item frame at the
// same indent, then recurses into the item's own content (which may
// itself be a nested "key: value" mapping line).
func (t *Tracker) processSequenceItem(indent int, content string) {
	if n := len(t.stack); n > 1 && t.stack[n-1].segment == ir.ListMarker && t.stack[n-1].indent == indent {
		t.stack = t.stack[:n-1]
	}

	t.stack = append(t.stack, frame{segment: ir.ListMarker, indent: indent})

	content = strings.TrimSpace(content)
	if content == "" {
		return
	}

	t.processMappingLine(indent+2, content)
}

// processMappingLine handles rule 5: a top-level "key:" line with no
// inline value sets the pending key for the next line to resolve. A
// "key: value" line is already fully resolved and clears any pending
// key instead.
func (t *Tracker) processMappingLine(indent int, content string) {
	key, hasInline := splitMappingKey(content)
	if key == "" {
		return
	}

	if hasInline {
		t.havePendingKey = false
		return
	}

	t.pendingKey = key
	t.pendingKeyIndent = indent
	t.havePendingKey = true
}

func leadingSpaces(line string) int {
	n := 0
	for _, r := range line {
		if r == ' ' {
			n++
			continue
		}

		if r == '\t' {
			n += 8
			continue
		}

		break
	}

	return n
}

func splitSeqItem(trimmed string) (content string, isItem bool) {
	if trimmed == "-" {
		return "", true
	}

	if strings.HasPrefix(trimmed, "- ") {
		return trimmed[2:], true
	}

	return trimmed, false
}

// splitMappingKey extracts a top-level "key" from "key:" or
// "key: value", ignoring colons that appear inside quotes. hasInline
// reports whether non-empty content follows the colon.
func splitMappingKey(content string) (key string, hasInline bool) {
	inSingle, inDouble := false, false

	for i, r := range content {
		switch r {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case ':':
			if inSingle || inDouble {
				continue
			}

			if i+1 == len(content) || content[i+1] == ' ' || content[i+1] == '\t' {
				k := strings.TrimSpace(content[:i])
				k = strings.Trim(k, `"'`)

				if k == "" {
					return "", false
				}

				rest := strings.TrimSpace(content[i+1:])

				return k, rest != ""
			}
		}
	}

	return "", false
}
