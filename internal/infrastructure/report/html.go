package report

import (
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/rulecov/rulecov/internal/domain"
)

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Rule Coverage Report</title>
    <style>
        :root {
            --full: #16A34A;
            --none: #DC2626;
            --partial: #CA8A04;
            --bg: #0f172a;
            --card: #1e293b;
            --text: #f8fafc;
            --muted: #94a3b8;
            --border: #334155;
        }
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, sans-serif;
            background: var(--bg);
            color: var(--text);
            line-height: 1.6;
            padding: 2rem;
        }
        .container { max-width: 1200px; margin: 0 auto; }
        h1 { font-size: 2rem; margin-bottom: 0.5rem; font-weight: 600; }
        .timestamp { color: var(--muted); font-size: 0.875rem; margin-bottom: 2rem; }
        .summary { display: flex; gap: 1rem; margin-bottom: 2rem; }
        .summary-card {
            background: var(--card);
            border-radius: 0.5rem;
            padding: 1rem 1.5rem;
            border: 1px solid var(--border);
        }
        .summary-card.full { border-left: 4px solid var(--full); }
        .summary-card.partial { border-left: 4px solid var(--partial); }
        .summary-card.none { border-left: 4px solid var(--none); }
        .summary-label {
            font-size: 0.75rem;
            text-transform: uppercase;
            color: var(--muted);
            letter-spacing: 0.05em;
        }
        .summary-value { font-size: 1.5rem; font-weight: 600; }
        .file-title {
            font-size: 1.1rem;
            font-family: ui-monospace, SFMono-Regular, Menlo, monospace;
            margin-bottom: 0.75rem;
        }
        table {
            width: 100%;
            border-collapse: collapse;
            background: var(--card);
            border-radius: 0.5rem;
            overflow: hidden;
            margin-bottom: 2rem;
        }
        th, td {
            padding: 0.75rem 1rem;
            text-align: left;
            border-bottom: 1px solid var(--border);
        }
        th {
            background: rgba(0,0,0,0.2);
            font-weight: 600;
            font-size: 0.75rem;
            text-transform: uppercase;
            letter-spacing: 0.05em;
            color: var(--muted);
        }
        tr:last-child td { border-bottom: none; }
        tr:hover { background: rgba(255,255,255,0.02); }
        .progress-bar {
            width: 100%;
            height: 6px;
            background: var(--border);
            border-radius: 3px;
            overflow: hidden;
        }
        .progress-fill { height: 100%; border-radius: 3px; }
        .progress-fill.full { background: var(--full); }
        .progress-fill.partial { background: var(--partial); }
        .progress-fill.none { background: var(--none); }
        .coverage-cell { display: flex; align-items: center; gap: 0.75rem; }
        .coverage-percent { min-width: 4rem; font-weight: 500; }
        .rules { font-family: ui-monospace, SFMono-Regular, Menlo, monospace; color: var(--muted); font-size: 0.875rem; }
        .empty { color: var(--muted); }
    </style>
</head>
<body>
    <div class="container">
        <h1>Rule Coverage Report</h1>
        <p class="timestamp">Generated {{.Timestamp}}</p>

        <div class="summary">
            <div class="summary-card {{.Overall.Class}}">
                <div class="summary-label">Overall</div>
                <div class="summary-value">{{.Overall.Percent}}</div>
            </div>
            <div class="summary-card">
                <div class="summary-label">Rules Covered</div>
                <div class="summary-value">{{.Overall.Covered}}/{{.Overall.Total}}</div>
            </div>
            <div class="summary-card">
                <div class="summary-label">Files</div>
                <div class="summary-value">{{len .Files}}</div>
            </div>
        </div>

        {{if not .Files}}
        <p class="empty">No rule tables discovered.</p>
        {{end}}

        {{range .Files}}
        <h2 class="file-title">{{.Path}}</h2>
        <table>
            <thead>
                <tr>
                    <th>Decision</th>
                    <th>Rules</th>
                    <th>Coverage</th>
                    <th>Uncovered</th>
                </tr>
            </thead>
            <tbody>
                {{range .Decisions}}
                <tr>
                    <td>{{.Decision}}</td>
                    <td>{{.Covered}}/{{.Total}}</td>
                    <td>
                        <div class="coverage-cell">
                            <span class="coverage-percent">{{.Percent}}</span>
                            <div class="progress-bar">
                                <div class="progress-fill {{.Class}}" style="width: {{.Width}}%"></div>
                            </div>
                        </div>
                    </td>
                    <td class="rules">{{.Uncovered}}</td>
                </tr>
                {{end}}
                <tr>
                    <td><em>summary</em></td>
                    <td>{{.Summary.Covered}}/{{.Summary.Total}}</td>
                    <td>
                        <div class="coverage-cell">
                            <span class="coverage-percent">{{.Summary.Percent}}</span>
                            <div class="progress-bar">
                                <div class="progress-fill {{.Summary.Class}}" style="width: {{.Summary.Width}}%"></div>
                            </div>
                        </div>
                    </td>
                    <td></td>
                </tr>
            </tbody>
        </table>
        {{end}}
    </div>
</body>
</html>`

var htmlTmpl = template.Must(template.New("report").Parse(htmlTemplate))

type htmlStat struct {
	Covered int
	Total   int
	Percent string
	Width   int
	Class   string
}

type htmlDecision struct {
	Decision string
	htmlStat
	Uncovered string
}

type htmlFile struct {
	Path      string
	Decisions []htmlDecision
	Summary   htmlStat
}

type htmlData struct {
	Timestamp string
	Overall   htmlStat
	Files     []htmlFile
}

func writeReportHTML(w io.Writer, rep domain.Report) error {
	data := htmlData{
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		Overall:   htmlStatFor(rep.Overall()),
		Files:     make([]htmlFile, 0, len(rep.Files)),
	}
	for _, file := range rep.Files {
		hf := htmlFile{
			Path:      file.Path,
			Decisions: make([]htmlDecision, 0, len(file.Decisions)),
			Summary:   htmlStatFor(file.Summary),
		}
		for _, dc := range file.Decisions {
			hf.Decisions = append(hf.Decisions, htmlDecision{
				Decision:  dc.Decision,
				htmlStat:  htmlStatFor(domain.CoverageStat{Covered: dc.CoveredRules, Total: dc.TotalRules}),
				Uncovered: strings.Join(dc.UncoveredRules, ", "),
			})
		}
		data.Files = append(data.Files, hf)
	}
	return htmlTmpl.Execute(w, data)
}

func htmlStatFor(s domain.CoverageStat) htmlStat {
	ratio := s.Ratio()
	class := "partial"
	switch {
	case ratio >= 1:
		class = "full"
	case ratio == 0 && s.Total > 0:
		class = "none"
	}
	width := int(ratio * 100)
	if width > 100 {
		width = 100
	}
	return htmlStat{
		Covered: s.Covered,
		Total:   s.Total,
		Percent: coverageCell(ratio, false),
		Width:   width,
		Class:   class,
	}
}
