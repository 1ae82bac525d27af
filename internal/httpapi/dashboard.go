package httpapi

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/rezdm/Argus/internal/domain"
	"github.com/rezdm/Argus/internal/monitor"
)

type dashboardRow struct {
	Name         string
	Host         string
	Status       string
	StatusClass  string
	ResponseTime string
	Uptime       float64
	LastCheck    string
	Description  string
}

type dashboardGroup struct {
	Name string
	Rows []dashboardRow
}

type dashboardPage struct {
	Title     string
	Generated string
	Groups    []dashboardGroup
}

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"pct": func(f float64) string { return fmt.Sprintf("%.1f", f) },
}).Parse(dashboardHTML))

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	page := buildDashboard(s.opts.Title, s.Monitors.States(), time.Now())

	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, page); err != nil {
		s.Logger.Error("dashboard_render_error", zap.Error(err))
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = buf.WriteTo(w)
}

// buildDashboard groups states in registry order, which is already group
// sort then destination sort.
func buildDashboard(title string, states []*monitor.State, now time.Time) dashboardPage {
	page := dashboardPage{Title: title, Generated: now.Format("2006-01-02 15:04:05")}
	for _, st := range states {
		d := st.Destination()
		snap := st.Snapshot()
		if n := len(page.Groups); n == 0 || page.Groups[n-1].Name != d.Group {
			page.Groups = append(page.Groups, dashboardGroup{Name: d.Group})
		}
		g := &page.Groups[len(page.Groups)-1]

		row := dashboardRow{
			Name:         d.Name,
			Host:         hostOf(d.Test),
			Status:       snap.Status.String(),
			StatusClass:  statusClass(snap.Status),
			ResponseTime: "-",
			Uptime:       snap.Uptime,
			LastCheck:    "Never",
			Description:  snap.Description,
		}
		if snap.LastResult != nil {
			row.ResponseTime = fmt.Sprintf("%d ms", snap.LastResult.DurationMS)
			row.LastCheck = snap.LastResult.Timestamp.Format("15:04:05")
		}
		g.Rows = append(g.Rows, row)
	}
	return page
}

func hostOf(t domain.TestSpec) string {
	if t.Host != "" {
		return t.Host
	}
	if u, err := url.Parse(t.URL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return t.URL
}

func statusClass(s domain.Status) string {
	switch s {
	case domain.StatusWarning:
		return "warning"
	case domain.StatusFailure:
		return "failure"
	}
	return "ok"
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="30">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, Segoe UI, Helvetica, Arial, sans-serif; margin: 20px; background: #f5f5f5; color: #222; }
h1 { margin-bottom: 4px; }
.generated { color: #777; font-size: 0.85em; margin-bottom: 20px; }
h2 { margin: 24px 0 8px; }
table { width: 100%; border-collapse: collapse; background: #fff; }
th, td { padding: 8px 10px; border-bottom: 1px solid #e3e3e3; text-align: left; }
th { background: #333; color: #fff; font-weight: normal; }
.status { font-weight: bold; }
.status.ok { color: #2e7d32; }
.status.warning { color: #ef6c00; }
.status.failure { color: #c62828; }
.bar { width: 120px; height: 10px; background: #e0e0e0; display: inline-block; vertical-align: middle; }
.bar span { display: block; height: 100%; background: #43a047; }
.desc { color: #555; font-family: monospace; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="generated">Generated {{.Generated}}, refreshes every 30 seconds</div>
{{range .Groups}}
<h2>{{.Name}}</h2>
<table>
<tr><th>Name</th><th>Host</th><th>Status</th><th>Response</th><th>Uptime</th><th>Last check</th><th>Test</th></tr>
{{range .Rows}}
<tr>
<td>{{.Name}}</td>
<td>{{.Host}}</td>
<td class="status {{.StatusClass}}">{{.Status}}</td>
<td>{{.ResponseTime}}</td>
<td><span class="bar"><span style="width: {{pct .Uptime}}%"></span></span> {{pct .Uptime}}%</td>
<td>{{.LastCheck}}</td>
<td class="desc">{{.Description}}</td>
</tr>
{{end}}
</table>
{{else}}
<p>No monitors configured.</p>
{{end}}
</body>
</html>
`
