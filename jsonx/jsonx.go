// Package jsonx recovers structured data from free-form model output.
// Language-model responses are expected to contain a JSON object but are
// not guaranteed well-formed; the parser trades strictness for maximal
// recovery. Repairs only close or quote syntax, they never invent values.
package jsonx

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tripweaver/tripweaver/core"
	"github.com/tripweaver/tripweaver/trace"
)

// Provenance indicates whether a parsed value was recovered verbatim or
// required textual repair.
type Provenance string

const (
	ProvenanceVerbatim Provenance = "verbatim"
	ProvenanceRepaired Provenance = "repaired"
)

// Result is a successfully recovered structured value
type Result struct {
	Raw        json.RawMessage // the span that parsed
	Value      interface{}     // decoded generic value
	Provenance Provenance
}

// Decode unmarshals the recovered span into a typed destination
func (r *Result) Decode(v interface{}) error {
	return json.Unmarshal(r.Raw, v)
}

// ParseError reports which recovery stage gave up, with a truncated
// snippet of the original text for diagnosis.
type ParseError struct {
	Stage   string
	Snippet string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no recoverable JSON (abandoned at %s stage): %q", e.Stage, e.Snippet)
}

func (e *ParseError) Unwrap() error {
	return core.ErrUnparsable
}

const snippetLimit = 200

// Parser extracts and repairs JSON from raw text, reporting repair
// decisions to a trace recorder.
type Parser struct {
	recorder trace.Recorder
}

// New creates a parser. A nil recorder disables tracing.
func New(recorder trace.Recorder) *Parser {
	if recorder == nil {
		recorder = trace.NopRecorder{}
	}
	return &Parser{recorder: recorder}
}

// Parse recovers a structured value without tracing
func Parse(text string) (*Result, error) {
	return New(nil).Parse(context.Background(), text)
}

// ParseInto recovers a structured value and decodes it into v
func ParseInto(text string, v interface{}) (Provenance, error) {
	result, err := Parse(text)
	if err != nil {
		return "", err
	}
	if err := result.Decode(v); err != nil {
		return "", &ParseError{Stage: "decode", Snippet: truncate(text)}
	}
	return result.Provenance, nil
}

// Parse attempts recovery in stages, each tried only if the previous
// failed:
//  1. first fenced code block, parsed directly
//  2. direct parse of the trimmed input
//  3. bracket-depth scan for the first balanced object/array span
//  4. bounded textual repairs on the best candidate span, one re-parse
func (p *Parser) Parse(ctx context.Context, text string) (*Result, error) {
	trimmed := strings.TrimSpace(text)
	correlationID := trace.CorrelationID(ctx)

	// Stage 1: fenced code block
	candidate := ""
	if fenced, ok := extractFence(trimmed); ok {
		candidate = fenced
		if result := tryParse(fenced); result != nil {
			return result, nil
		}
	}

	// Stage 2: the whole trimmed input
	if result := tryParse(trimmed); result != nil {
		return result, nil
	}

	// Stage 3: first balanced top-level span
	if span, ok := extractSpan(trimmed); ok {
		if result := tryParse(span); result != nil {
			return result, nil
		}
		// A scanned span beats the raw input as a repair candidate;
		// a fence, when present, stays the best one.
		if candidate == "" {
			candidate = span
		}
	}
	if candidate == "" {
		candidate = trimmed
	}

	// Stage 4: bounded repairs on the best candidate
	repaired := repair(candidate)
	if result := tryParse(repaired); result != nil {
		result.Provenance = ProvenanceRepaired
		p.recorder.Emit(trace.Event{
			CorrelationID: correlationID,
			Stage:         trace.StageParse,
			Outcome:       trace.OutcomeRepaired,
		})
		return result, nil
	}

	p.recorder.Emit(trace.Event{
		CorrelationID: correlationID,
		Stage:         trace.StageParse,
		Outcome:       trace.OutcomeUnrecoverable,
		Detail:        truncate(text),
	})
	return nil, &ParseError{Stage: "repair", Snippet: truncate(text)}
}

// tryParse returns a verbatim result when the span is well-formed JSON
// with an object or array at the top level.
func tryParse(span string) *Result {
	span = strings.TrimSpace(span)
	if span == "" {
		return nil
	}
	if span[0] != '{' && span[0] != '[' {
		return nil
	}
	var value interface{}
	if err := json.Unmarshal([]byte(span), &value); err != nil {
		return nil
	}
	return &Result{
		Raw:        json.RawMessage(span),
		Value:      value,
		Provenance: ProvenanceVerbatim,
	}
}

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// extractFence returns the content of the first fenced code block
func extractFence(text string) (string, bool) {
	match := fenceRe.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return strings.TrimSpace(match[1]), true
}

// extractSpan locates the first top-level `{` or `[` and its matching
// closing delimiter by depth scanning, respecting string literals.
func extractSpan(text string) (string, bool) {
	start := -1
	for i := 0; i < len(text); i++ {
		if text[i] == '{' || text[i] == '[' {
			start = i
			break
		}
	}
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	// Unbalanced: return the open span so the repair stage can close it
	return text[start:], true
}

var (
	singleQuotedKeyRe = regexp.MustCompile(`'([^']*)'\s*:`)
	unquotedKeyRe     = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	trailingCommaRe   = regexp.MustCompile(`,\s*([}\]])`)
)

// repair applies a bounded set of structural fixes: key quoting, trailing
// comma removal, and closing of unterminated strings and brackets.
func repair(span string) string {
	fixed := singleQuotedKeyRe.ReplaceAllString(span, `"$1":`)
	fixed = unquotedKeyRe.ReplaceAllString(fixed, `$1"$2":`)
	fixed = trailingCommaRe.ReplaceAllString(fixed, `$1`)
	fixed = closeOpenStructures(fixed)
	// Closing brackets can expose a trailing comma before them
	fixed = trailingCommaRe.ReplaceAllString(fixed, `$1`)
	return fixed
}

// closeOpenStructures terminates an unclosed string literal and appends
// closing delimiters for every unbalanced bracket, innermost first.
func closeOpenStructures(span string) string {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(span); i++ {
		ch := span[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == ch {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(span, " \t\r\n,"))
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}

func truncate(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= snippetLimit {
		return text
	}
	return text[:snippetLimit] + "..."
}
