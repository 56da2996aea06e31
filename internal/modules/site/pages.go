package site

import (
	"html/template"
	"strconv"
	"strings"

	"github.com/syllabind/core/internal/models"
	"github.com/syllabind/core/internal/modules/processing/ai"
	"github.com/syllabind/core/internal/modules/processing/markdown"
)

const baseCSS = `
    body { margin: 0; font: 16px/1.65 -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; color: #222; background: #fff; }
    header { border-bottom: 1px solid #eee; }
    header .inner { max-width: 920px; margin: 0 auto; padding: 14px 24px; display: flex; align-items: baseline; justify-content: space-between; }
    header .brand { font-size: 20px; font-weight: 700; color: #222; text-decoration: none; }
    header nav a { margin-left: 16px; color: #3451b2; text-decoration: none; }
    main { max-width: 920px; margin: 0 auto; padding: 24px; }
    h1 { margin: 0 0 18px; font-size: 26px; }
    a { color: #3451b2; }
    .meta { color: #777; font-size: 14px; margin: 4px 0 0; }
    .muted { color: #888; }
    .error-banner { border: 1px solid #f3c2c2; background: #fdf2f2; color: #9b2c2c; border-radius: 8px; padding: 10px 14px; margin-bottom: 16px; }
    .search { display: flex; gap: 8px; margin-bottom: 20px; }
    .search input { flex: 1; padding: 8px 12px; border: 1px solid #ddd; border-radius: 8px; font-size: 15px; }
    .card { border: 1px solid #eee; border-radius: 10px; padding: 14px 18px; margin-bottom: 12px; }
    .card h2 { margin: 0; font-size: 18px; }
    .card h2 a { text-decoration: none; }
    .stack label { display: block; margin-bottom: 12px; font-size: 14px; color: #555; }
    .stack input { display: block; width: 100%; max-width: 420px; margin-top: 4px; padding: 8px 10px; border: 1px solid #ddd; border-radius: 8px; font-size: 15px; }
    .btn { display: inline-block; padding: 8px 18px; border: 0; border-radius: 8px; background: #3451b2; color: #fff; font-size: 15px; cursor: pointer; text-decoration: none; }
    .btn-quiet { background: #eee; color: #444; }
    .actions { margin: 16px 0; display: flex; gap: 10px; align-items: center; }
    .tabs { display: flex; gap: 8px; margin: 20px 0 12px; flex-wrap: wrap; }
    .tab { padding: 6px 14px; border: 1px solid #ddd; border-radius: 999px; background: #fff; font-size: 14px; cursor: pointer; }
    .tab-active { background: #3451b2; border-color: #3451b2; color: #fff; }
    .panel-head { display: flex; align-items: baseline; justify-content: space-between; margin-bottom: 10px; }
    .panel-title { margin: 0; font-size: 18px; }
    .panel-sub { color: #888; font-size: 13px; }
    .panel-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(260px, 1fr)); gap: 14px; }
    .panel-section { border: 1px solid #eee; border-radius: 8px; padding: 12px 16px; background: #fafafa; }
    .panel-section h3 { margin: 0 0 8px; font-size: 13px; text-transform: uppercase; letter-spacing: 0.04em; color: #666; }
    .pill { display: inline-block; padding: 2px 10px; margin: 2px 6px 2px 0; border-radius: 999px; background: #eef2ff; font-size: 13px; }
    .quotes { margin: 0; padding-left: 18px; }
    .quotes li { font-style: italic; color: #555; margin-bottom: 4px; }
    .bullets { margin: 0; padding-left: 18px; }
    .grading { width: 100%; border-collapse: collapse; }
    .grading th, .grading td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #eee; font-size: 14px; }
    .notes { color: #666; }
    .mono { white-space: pre-wrap; word-break: break-word; font: 13px/1.5 ui-monospace, SFMono-Regular, Menlo, monospace; border: 1px solid #eee; border-radius: 8px; padding: 12px; background: #fafafa; }
    article.compare h2 { margin-top: 24px; font-size: 20px; }
    article.compare ul { padding-left: 20px; }
`

// layout wraps a page body in the shared chrome.
func layout(siteTitle, pageTitle, body string) string {
	brand := template.HTMLEscapeString(siteTitle)
	title := brand
	if strings.TrimSpace(pageTitle) != "" {
		title = template.HTMLEscapeString(pageTitle) + " · " + brand
	}

	return `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>` + title + `</title>
  <style>` + baseCSS + `  </style>
</head>
<body>
  <header>
    <div class="inner">
      <a class="brand" href="/">` + brand + `</a>
      <nav><a href="/">All syllabi</a><a href="/upload">Upload</a></nav>
    </div>
  </header>
  <main>
` + body + `
  </main>
</body>
</html>`
}

func indexPage(records []models.SyllabusModel, query string) string {
	var b strings.Builder
	b.WriteString("<h1>Syllabi</h1>\n")
	b.WriteString(`<form class="search" method="get" action="/">` +
		`<input type="search" name="q" value="` + template.HTMLEscapeString(query) + `" placeholder="Search course, title or instructor" />` +
		`<button class="btn" type="submit">Search</button></form>` + "\n")

	if len(records) == 0 {
		if strings.TrimSpace(query) != "" {
			b.WriteString(`<p class="muted">Nothing matches that search.</p>`)
		} else {
			b.WriteString(`<p class="muted">No syllabi yet. <a href="/upload">Upload the first one.</a></p>`)
		}
		return b.String()
	}

	for i := range records {
		record := &records[i]
		b.WriteString(`<div class="card"><h2><a href="/syllabus/` + record.Slug + `">` +
			template.HTMLEscapeString(record.CourseCode) + `</a></h2>`)
		if record.Title != "" {
			b.WriteString(`<p>` + template.HTMLEscapeString(record.Title) + `</p>`)
		}
		if meta := recordMeta(record); meta != "" {
			b.WriteString(`<p class="meta">` + meta + `</p>`)
		}
		b.WriteString("</div>\n")
	}
	return b.String()
}

func uploadPage(errMsg string) string {
	var b strings.Builder
	b.WriteString("<h1>Upload a syllabus</h1>\n")
	if errMsg != "" {
		b.WriteString(`<div class="error-banner">` + template.HTMLEscapeString(errMsg) + `</div>` + "\n")
	}
	b.WriteString(`<form class="stack" method="post" action="/upload" enctype="multipart/form-data">
  <label>Course code *<input name="course_code" required /></label>
  <label>Title<input name="title" /></label>
  <label>Instructor<input name="instructor" /></label>
  <label>Quarter<input name="quarter" /></label>
  <label>Year<input name="year" type="number" min="1900" max="2100" /></label>
  <label>Syllabus PDF *<input name="file" type="file" accept="application/pdf,.pdf" required /></label>
  <button class="btn" type="submit">Upload</button>
</form>`)
	return b.String()
}

func detailPage(record *models.SyllabusModel, others []models.SyllabusModel, tabs []ai.RequestType) string {
	var b strings.Builder

	b.WriteString(`<h1>` + template.HTMLEscapeString(record.Label()) + `</h1>` + "\n")
	if meta := recordMeta(record); meta != "" {
		b.WriteString(`<p class="meta">` + meta + `</p>` + "\n")
	}

	b.WriteString(`<div class="actions">
  <a class="btn btn-quiet" href="/pdf/` + record.Slug + `" target="_blank">Open PDF</a>
  <form method="post" action="/cache/clear/` + record.Slug + `"><button class="btn btn-quiet" type="submit">Clear cached insights</button></form>
</div>` + "\n")

	b.WriteString(`<div class="tabs">`)
	for i, tab := range tabs {
		class := "tab"
		if i == 0 {
			class = "tab tab-active"
		}
		b.WriteString(`<button class="` + class + `" data-key="` + tab.Key + `">` +
			template.HTMLEscapeString(tab.Title) + `</button>`)
	}
	b.WriteString("</div>\n")
	b.WriteString(`<div id="insight-panel"><p class="muted">Loading…</p></div>` + "\n")

	if len(others) > 0 {
		b.WriteString("<h2>Compare with</h2>\n<ul>\n")
		for i := range others {
			other := &others[i]
			b.WriteString(`<li><a href="/compare/` + record.Slug + `/` + other.Slug + `">` +
				template.HTMLEscapeString(other.Label()) + `</a></li>` + "\n")
		}
		b.WriteString("</ul>\n")
	}

	slug := template.JSEscapeString(record.Slug)
	firstKey := ""
	if len(tabs) > 0 {
		firstKey = template.JSEscapeString(tabs[0].Key)
	}
	b.WriteString(`<script>
(function () {
  var slug = "` + slug + `";
  var panel = document.getElementById("insight-panel");
  function load(key, btn) {
    document.querySelectorAll(".tab").forEach(function (b) { b.classList.remove("tab-active"); });
    if (btn) btn.classList.add("tab-active");
    panel.innerHTML = '<p class="muted">Generating…</p>';
    fetch("/insight/" + slug + "/" + key)
      .then(function (r) { return r.text(); })
      .then(function (html) { panel.innerHTML = html; })
      .catch(function () { panel.innerHTML = '<p class="muted">Failed to load insight.</p>'; });
  }
  document.querySelectorAll(".tab").forEach(function (b) {
    b.addEventListener("click", function () { load(b.dataset.key, b); });
  });
  load("` + firstKey + `", document.querySelector(".tab"));
})();
</script>`)
	return b.String()
}

func comparePageBody(a, b *models.SyllabusModel, rendered template.HTML) string {
	var s strings.Builder
	s.WriteString(`<h1>` + template.HTMLEscapeString(a.CourseCode+" vs "+b.CourseCode) + `</h1>` + "\n")
	s.WriteString(`<p class="meta">` +
		`Class A: <a href="/syllabus/` + a.Slug + `">` + template.HTMLEscapeString(a.Label()) + `</a>` +
		` · Class B: <a href="/syllabus/` + b.Slug + `">` + template.HTMLEscapeString(b.Label()) + `</a>` +
		`</p>` + "\n")
	s.WriteString(`<article class="compare">` + string(rendered) + `</article>`)
	return s.String()
}

func errorPageBody(heading, message string) string {
	return `<h1>` + template.HTMLEscapeString(heading) + `</h1>
<p class="muted">` + template.HTMLEscapeString(message) + `</p>
<p><a href="/">Back to all syllabi</a></p>`
}

// insightFragment is the HTML swapped into the detail page's panel area.
func insightFragment(ins *ai.Insight) string {
	return `<div class="panel-head"><h2 class="panel-title">` + template.HTMLEscapeString(ins.Title) + `</h2>` +
		`<span class="panel-sub">Source: ` + template.HTMLEscapeString(ins.Source) + `</span></div>` + "\n" +
		string(markdown.RenderInsightBody(ins.Key, ins.Content))
}

func fragmentMessage(message string) string {
	return `<p class="muted">` + template.HTMLEscapeString(message) + `</p>`
}

func recordMeta(record *models.SyllabusModel) string {
	parts := make([]string, 0, 3)
	if record.Instructor != "" {
		parts = append(parts, template.HTMLEscapeString(record.Instructor))
	}
	if term := strings.TrimSpace(record.Quarter + " " + yearString(record.Year)); term != "" {
		parts = append(parts, template.HTMLEscapeString(term))
	}
	if !record.CreatedAt.IsZero() {
		parts = append(parts, "uploaded "+record.CreatedAt.Format("Jan 2, 2006"))
	}
	return strings.Join(parts, " · ")
}

func yearString(year int) string {
	if year <= 0 {
		return ""
	}
	return strconv.Itoa(year)
}
