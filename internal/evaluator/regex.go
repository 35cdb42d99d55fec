package evaluator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/localdoc/internal/jsonv"
	"github.com/roach88/localdoc/internal/queryir"
)

type regexKey struct {
	pattern string
	options string
}

// matchRegex matches a string, or any string element of an array.
func (e *Evaluator) matchRegex(value jsonv.Value, op queryir.Regex) bool {
	re := e.compile(op.Pattern, op.Options)
	if re == nil {
		return false
	}

	switch v := value.(type) {
	case jsonv.String:
		return re.MatchString(string(v))
	case jsonv.Array:
		for _, elem := range v {
			if s, ok := elem.(jsonv.String); ok && re.MatchString(string(s)) {
				return true
			}
		}
	}
	return false
}

// compile returns the cached pattern, or nil when the pattern or its
// options are invalid. Failures are cached too.
func (e *Evaluator) compile(pattern, options string) *regexp.Regexp {
	key := regexKey{pattern: pattern, options: options}
	if re, ok := e.regexes.Get(key); ok {
		return re
	}

	re, err := compileWithOptions(pattern, options)
	if err != nil {
		e.logger.Debug("regex rejected", "pattern", pattern, "options", options, "error", err)
		re = nil
	}
	e.regexes.Add(key, re)
	return re
}

// compileWithOptions maps $options letters onto RE2 flags:
// i case-insensitive, m multi-line anchors, s dot matches newline,
// x extended (unescaped whitespace and #-comments are dropped).
func compileWithOptions(pattern, options string) (*regexp.Regexp, error) {
	var flags strings.Builder
	extended := false
	for _, opt := range options {
		switch opt {
		case 'i', 'm', 's':
			if !strings.ContainsRune(flags.String(), opt) {
				flags.WriteRune(opt)
			}
		case 'x':
			extended = true
		default:
			return nil, fmt.Errorf("invalid regex option %q", opt)
		}
	}

	if extended {
		pattern = stripExtended(pattern)
	}
	if flags.Len() > 0 {
		pattern = "(?" + flags.String() + ")" + pattern
	}
	return regexp.Compile(pattern)
}

// stripExtended removes whitespace and #-to-end-of-line comments outside
// character classes. An escaped space or '#' is kept as the bare character.
func stripExtended(pattern string) string {
	var b strings.Builder
	inClass := false
	inComment := false
	escaped := false

	for _, r := range pattern {
		switch {
		case inComment:
			if r == '\n' {
				inComment = false
			}
		case escaped:
			if !isSpace(r) && r != '#' {
				b.WriteRune('\\')
			}
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case inClass:
			b.WriteRune(r)
			if r == ']' {
				inClass = false
			}
		case r == '[':
			b.WriteRune(r)
			inClass = true
		case r == '#':
			inComment = true
		case isSpace(r):
		default:
			b.WriteRune(r)
		}
	}
	if escaped {
		b.WriteRune('\\')
	}
	return b.String()
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}
