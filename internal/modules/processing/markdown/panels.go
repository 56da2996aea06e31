package markdown

import (
	"encoding/json"
	"fmt"
	"html/template"
	"strconv"
	"strings"
)

// WorkloadPanel is the display shape of a cached workload insight. Fields
// stay loosely typed because the model may answer with numbers or strings;
// missing keys render as "not specified" rather than failing.
type WorkloadPanel struct {
	HoursPerWeekEstimate interface{}   `json:"hours_per_week_estimate"`
	WorkloadShape        interface{}   `json:"workload_shape"`
	HeavyWeeks           []interface{} `json:"heavy_weeks"`
	WhyHeavy             interface{}   `json:"why_heavy"`
	EvidenceQuotes       []interface{} `json:"evidence_quotes"`
}

type GradingComponent struct {
	Name          interface{} `json:"name"`
	WeightPercent interface{} `json:"weight_percent"`
}

type GradingDeliverable struct {
	Type  interface{} `json:"type"`
	Count interface{} `json:"count"`
	Notes interface{} `json:"notes"`
}

type GradingPanel struct {
	GradingComponents   []GradingComponent   `json:"grading_components"`
	Deliverables        []GradingDeliverable `json:"deliverables"`
	LatePolicy          interface{}          `json:"late_policy"`
	CollaborationPolicy interface{}          `json:"collaboration_policy"`
	EvidenceQuotes      []interface{}        `json:"evidence_quotes"`
}

type PrereqPanel struct {
	OfficialPrereqs   []interface{} `json:"official_prereqs"`
	ImpliedBackground []interface{} `json:"implied_background"`
	ToolsLanguages    []interface{} `json:"tools_languages"`
	MathBackground    []interface{} `json:"math_background"`
	EvidenceQuotes    []interface{} `json:"evidence_quotes"`
}

func ParseWorkloadPanel(content string) (*WorkloadPanel, bool) {
	var p WorkloadPanel
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		return nil, false
	}
	return &p, true
}

func ParseGradingPanel(content string) (*GradingPanel, bool) {
	var p GradingPanel
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		return nil, false
	}
	return &p, true
}

func ParsePrereqPanel(content string) (*PrereqPanel, bool) {
	var p PrereqPanel
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (p *WorkloadPanel) HTML() template.HTML {
	hours := "Not explicitly specified"
	if s := stringify(p.HoursPerWeekEstimate); s != "" {
		hours = s + " hours/week"
	}
	shape := "Unknown / uneven"
	if s := stringify(p.WorkloadShape); s != "" {
		shape = s
	}
	why := "Not specified"
	if s := stringify(p.WhyHeavy); s != "" {
		why = s
	}

	var b strings.Builder
	b.WriteString(`<div class="panel-grid">`)
	writeSection(&b, "Estimated workload", textValue(hours))
	writeSection(&b, "Workload pattern", textValue(shape))
	writeSection(&b, "Heavy weeks", pillList(p.HeavyWeeks, "No specific heavy weeks identified"))
	writeSection(&b, "Why those weeks are heavy", textValue(why))
	writeSection(&b, "Evidence from syllabus", quoteList(p.EvidenceQuotes, "No direct quotes found"))
	b.WriteString(`</div>`)
	return template.HTML(b.String())
}

func (p *GradingPanel) HTML() template.HTML {
	var b strings.Builder
	b.WriteString(`<div class="panel-grid">`)
	writeSection(&b, "Grading breakdown", gradingTable(p.GradingComponents))
	writeSection(&b, "Deliverables", deliverableList(p.Deliverables))
	writeSection(&b, "Late policy", policyValue(p.LatePolicy))
	writeSection(&b, "Collaboration policy", policyValue(p.CollaborationPolicy))
	writeSection(&b, "Evidence from syllabus", quoteList(p.EvidenceQuotes, "No direct quotes found"))
	b.WriteString(`</div>`)
	return template.HTML(b.String())
}

func (p *PrereqPanel) HTML() template.HTML {
	var b strings.Builder
	b.WriteString(`<div class="panel-grid">`)
	writeSection(&b, "Official prerequisites", bulletList(p.OfficialPrereqs, "Not specified"))
	writeSection(&b, "Implied background", bulletList(p.ImpliedBackground, "Not specified"))
	writeSection(&b, "Tools &amp; languages", bulletList(p.ToolsLanguages, "Not specified"))
	writeSection(&b, "Math background", bulletList(p.MathBackground, "Not specified"))
	writeSection(&b, "Evidence from syllabus", quoteList(p.EvidenceQuotes, "No quotes found"))
	b.WriteString(`</div>`)
	return template.HTML(b.String())
}

// writeSection emits one titled block. The title is trusted HTML from the
// callers above, the body is already escaped by its builder.
func writeSection(b *strings.Builder, title, body string) {
	b.WriteString(`<div class="panel-section"><h3>`)
	b.WriteString(title)
	b.WriteString(`</h3>`)
	b.WriteString(body)
	b.WriteString(`</div>`)
}

func textValue(text string) string {
	return `<div class="value">` + template.HTMLEscapeString(text) + `</div>`
}

func mutedValue(text string) string {
	return `<div class="muted">` + template.HTMLEscapeString(text) + `</div>`
}

func policyValue(v interface{}) string {
	if s := stringify(v); s != "" {
		return textValue(s)
	}
	return mutedValue("Not specified")
}

func bulletList(items []interface{}, emptyText string) string {
	if len(items) == 0 {
		return mutedValue(emptyText)
	}
	var b strings.Builder
	b.WriteString(`<ul class="bullets">`)
	for _, item := range items {
		b.WriteString(`<li>`)
		b.WriteString(template.HTMLEscapeString(stringify(item)))
		b.WriteString(`</li>`)
	}
	b.WriteString(`</ul>`)
	return b.String()
}

func quoteList(items []interface{}, emptyText string) string {
	if len(items) == 0 {
		return mutedValue(emptyText)
	}
	var b strings.Builder
	b.WriteString(`<ul class="quotes">`)
	for _, item := range items {
		b.WriteString(`<li>“`)
		b.WriteString(template.HTMLEscapeString(stringify(item)))
		b.WriteString(`”</li>`)
	}
	b.WriteString(`</ul>`)
	return b.String()
}

func pillList(items []interface{}, emptyText string) string {
	if len(items) == 0 {
		return mutedValue(emptyText)
	}
	var b strings.Builder
	b.WriteString(`<div class="pills">`)
	for _, item := range items {
		b.WriteString(`<span class="pill">`)
		b.WriteString(template.HTMLEscapeString(stringify(item)))
		b.WriteString(`</span>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func gradingTable(components []GradingComponent) string {
	if len(components) == 0 {
		return mutedValue("No grading breakdown found")
	}

	var b strings.Builder
	b.WriteString(`<table class="grading"><thead><tr><th>Component</th><th class="num">Weight</th></tr></thead><tbody>`)
	for _, comp := range components {
		name := strings.TrimSpace(stringify(comp.Name))
		if name == "" {
			name = "Unknown"
		}
		b.WriteString(`<tr><td>`)
		b.WriteString(template.HTMLEscapeString(name))
		b.WriteString(`</td><td class="num">`)
		b.WriteString(template.HTMLEscapeString(formatWeight(comp.WeightPercent)))
		b.WriteString(`</td></tr>`)
	}
	b.WriteString(`</tbody></table>`)
	return b.String()
}

func formatWeight(v interface{}) string {
	w := strings.TrimSpace(stringify(v))
	if w == "" {
		return "?"
	}
	if strings.HasSuffix(w, "%") {
		return w
	}
	return w + "%"
}

func deliverableList(items []GradingDeliverable) string {
	if len(items) == 0 {
		return mutedValue("No deliverables found")
	}

	var b strings.Builder
	b.WriteString(`<ul class="bullets">`)
	for _, d := range items {
		typ := strings.TrimSpace(stringify(d.Type))
		if typ == "" {
			typ = "other"
		}
		b.WriteString(`<li><strong>`)
		b.WriteString(template.HTMLEscapeString(typ))
		if count := strings.TrimSpace(stringify(d.Count)); count != "" {
			b.WriteString(" · ")
			b.WriteString(template.HTMLEscapeString(count))
		}
		b.WriteString(`</strong>`)
		if notes := strings.TrimSpace(stringify(d.Notes)); notes != "" {
			b.WriteString(` — <span class="notes">`)
			b.WriteString(template.HTMLEscapeString(notes))
			b.WriteString(`</span>`)
		}
		b.WriteString(`</li>`)
	}
	b.WriteString(`</ul>`)
	return b.String()
}

// stringify renders a loosely typed JSON value for display. Whole numbers
// drop their decimal point.
func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
