// Package rendering implements the recursive, fixed-point templating
// engine: {{ expr }} substitution over a bindings map, a raw-escape
// discipline for {% raw %}...{% endraw %} blocks, and a boolean
// expression evaluator built on the same expression grammar.
package rendering

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
)

var (
	exprRe        = regexp.MustCompile(`\{\{\s*(.*?)\s*\}\}`)
	rawBlockRe    = regexp.MustCompile(`(?s)\{%\s*raw\s*%\}(.*?)\{%\s*endraw\s*%\}`)
	directiveScan = regexp.MustCompile(`\{\{|\}\}|\{%|%\}`)
)

// maxPasses bounds the fixed-point recursion; a well-formed pipeline
// never needs more than a handful of indirection levels, and this
// backstops a binding cycle from hanging the renderer.
const maxPasses = 64

// rawSentinel is the fixed token substituted for the content of a
// {% raw %}...{% endraw %} block while directive expansion runs, so the
// block's literal text can never be mistaken for a live directive
// partway through a recursive pass. Derived from blake3 rather than a
// hard-coded literal, but fixed for the lifetime of the process.
var rawSentinel = deriveSentinel()

func deriveSentinel() string {
	sum := blake3.Sum256([]byte("deployer/internal/rendering raw-escape sentinel v1"))
	return "Z" + hex.EncodeToString(sum[:]) + "Z"
}

// Render expands {{ expr }} directives in tmpl against bindings,
// recursing to a fixed point so indirected bindings resolve
// transparently, while {% raw %}...{% endraw %} content survives every
// pass verbatim.
func Render(tmpl string, bindings map[string]any) (string, error) {
	protected, blocks := protectRawBlocks(tmpl)

	current := protected
	for pass := 0; pass < maxPasses; pass++ {
		next, changed, err := expandOnce(current, bindings)
		if err != nil {
			return "", err
		}
		if !changed {
			current = next
			break
		}
		current = next
	}

	return restoreRawBlocks(current, blocks), nil
}

// protectRawBlocks replaces every {% raw %}...{% endraw %} block with a
// unique, unlikely-to-collide placeholder and returns the blocks'
// original content (verbatim, including any directive-looking text) so
// it can be restored untouched after expansion.
func protectRawBlocks(s string) (string, []string) {
	var blocks []string
	out := rawBlockRe.ReplaceAllStringFunc(s, func(match string) string {
		groups := rawBlockRe.FindStringSubmatch(match)
		blocks = append(blocks, groups[1])
		return fmt.Sprintf("%s%d%s", rawSentinel, len(blocks)-1, rawSentinel)
	})
	return out, blocks
}

func restoreRawBlocks(s string, blocks []string) string {
	if len(blocks) == 0 {
		return s
	}
	for i, content := range blocks {
		placeholder := fmt.Sprintf("%s%d%s", rawSentinel, i, rawSentinel)
		s = strings.ReplaceAll(s, placeholder, content)
	}
	return s
}

// expandOnce performs a single left-to-right substitution pass over
// {{ expr }} occurrences, reporting whether any substitution happened
// (so the caller knows whether another pass could still change output).
func expandOnce(s string, bindings map[string]any) (string, bool, error) {
	if !strings.Contains(s, "{{") {
		return s, false, nil
	}
	changed := false
	var outerErr error
	out := exprRe.ReplaceAllStringFunc(s, func(match string) string {
		if outerErr != nil {
			return match
		}
		groups := exprRe.FindStringSubmatch(match)
		expr := groups[1]
		v, err := evalExpr(expr, bindings)
		if err != nil {
			outerErr = err
			return match
		}
		changed = true
		return stringify(v)
	})
	if outerErr != nil {
		return "", false, outerErr
	}
	return out, changed, nil
}

// stringify renders an evaluated value the way the output of {{ }}
// substitution is expected to read: Python-style boolean literals, and
// integral floats without a trailing ".0".
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// HasDirectives reports whether s contains any template directive
// opening/closing markers, used by the boolean expression evaluator to
// reject conditions that look like templates rather than bare
// expressions.
func HasDirectives(s string) bool {
	return directiveScan.MatchString(s)
}
