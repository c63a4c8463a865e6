// Package guard implements the Guard Stack and guard decomposition
// (§4.E): turning an {{if}}/{{with}} header's pipeline source into the
// ir.Guard predicates active for everything emitted underneath it.
package guard

import (
	"strings"

	"github.com/hupe1980/helmschema/internal/ir"
)

// Stack tracks the guards active at the current point of interpretation,
// as a simple slice used as a stack with savepoints for branch entry/exit.
type Stack struct {
	guards []ir.Guard
}

// New returns an empty Stack.
func New() *Stack { return &Stack{} }

// Mark returns a savepoint to later Restore to, used when entering an
// if/with branch whose guard should not leak into sibling branches.
func (s *Stack) Mark() int { return len(s.guards) }

// Restore truncates the stack back to a savepoint from Mark.
func (s *Stack) Restore(mark int) { s.guards = s.guards[:mark] }

// Push adds one guard, used for a truthy/with header or a single
// conjunct of an "and" header.
func (s *Stack) Push(g ir.Guard) { s.guards = append(s.guards, g) }

// PushAll adds each of a decomposed header's guards in order.
func (s *Stack) PushAll(gs []ir.Guard) { s.guards = append(s.guards, gs...) }

// Snapshot returns a copy of the currently active guards, in push order,
// suitable for attaching to an ir.ValueUse.
func (s *Stack) Snapshot() []ir.Guard {
	if len(s.guards) == 0 {
		return nil
	}

	out := make([]ir.Guard, len(s.guards))
	copy(out, s.guards)

	return out
}

// DecomposeIf derives the guard(s) that hold for the "then" branch of
// an {{if <source>}} header, per §4.E:
//   - a bare path                     -> Truthy(path)
//   - "not path"                      -> Not(path)
//   - `eq path "literal"`             -> Eq(path, literal)
//   - `or a b c`                      -> Or(a, b, c) (disjunction)
//   - `and a b c`                     -> one guard per conjunct
//   - anything else                   -> Truthy fallback over every
//     path referenced in the header, since the exact boolean shape
//     can't be classified but the dependency still must be recorded
func DecomposeIf(source string, pathOf func(selector string) ir.ValuePath) []ir.Guard {
	fields := tokenize(source)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "not":
		if len(fields) == 2 {
			return []ir.Guard{ir.Not(pathOf(fields[1]))}
		}
	case "eq":
		if len(fields) == 3 {
			lit, ok := literal(fields[2])
			if ok {
				return []ir.Guard{ir.Eq(pathOf(fields[1]), lit)}
			}
		}
	case "or":
		if len(fields) >= 2 {
			paths := make([]ir.ValuePath, 0, len(fields)-1)
			for _, f := range fields[1:] {
				paths = append(paths, pathOf(f))
			}

			return []ir.Guard{ir.OrGuard(paths...)}
		}
	case "and":
		if len(fields) >= 2 {
			guards := make([]ir.Guard, 0, len(fields)-1)
			for _, f := range fields[1:] {
				guards = append(guards, ir.Truthy(pathOf(f)))
			}

			return guards
		}
	}

	if len(fields) == 1 {
		return []ir.Guard{ir.Truthy(pathOf(fields[0]))}
	}

	// Unrecognized shape (function calls, comparisons other than eq,
	// multi-level boolean nesting): fall back to a Truthy guard per
	// referenced selector so the dependency is still recorded.
	guards := make([]ir.Guard, 0, len(fields))

	for _, f := range fields {
		if looksLikeSelector(f) {
			guards = append(guards, ir.Truthy(pathOf(f)))
		}
	}

	return guards
}

func tokenize(source string) []string {
	return strings.Fields(strings.TrimSpace(source))
}

func literal(tok string) (string, bool) {
	if len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"' {
		return tok[1 : len(tok)-1], true
	}

	if len(tok) >= 2 && tok[0] == '`' && tok[len(tok)-1] == '`' {
		return tok[1 : len(tok)-1], true
	}

	return "", false
}

func looksLikeSelector(tok string) bool {
	return strings.HasPrefix(tok, ".") || strings.HasPrefix(tok, "$")
}
