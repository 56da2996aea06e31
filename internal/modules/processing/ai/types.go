package ai

import "errors"

// RequestMode selects how a model response is interpreted.
type RequestMode string

const (
	// ModeText keeps the trimmed response verbatim.
	ModeText RequestMode = "text"
	// ModeStructured expects JSON and normalizes it before caching.
	ModeStructured RequestMode = "structured"
)

// RequestType is one entry of the insight catalog: a stable key plus the
// instruction and, for structured entries, the JSON shape the model is asked
// to fill in.
type RequestType struct {
	Key         string
	Title       string
	Mode        RequestMode
	Instruction string
	// Template is the pretty-printed JSON skeleton embedded in the prompt.
	// Empty for text mode.
	Template string
}

// Insight provenance values.
const (
	SourceCache     = "cache"
	SourceGenerated = "generated"
)

// Insight is one cached or freshly generated analysis of a syllabus.
type Insight struct {
	Slug    string      `json:"slug"`
	Key     string      `json:"key"`
	Title   string      `json:"title"`
	Mode    RequestMode `json:"mode"`
	Source  string      `json:"source"`
	Content string      `json:"content"`
}

var (
	ErrUnknownRequestType = errors.New("unknown insight request type")
	ErrNoProvider         = errors.New("no enabled AI provider is configured")
)

// EmptySourceFallback is stored in place of a model response when a PDF
// yields no text at all.
const EmptySourceFallback = "No text could be extracted from this PDF (scanned image?)."
