package web

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	appLog "actcal/internal/log"
	"actcal/internal/model"
)

var pageFuncs = template.FuncMap{
	"clock": func(t model.EventTime, loc *time.Location) string {
		if t.IsDate() {
			return t.Date
		}
		return t.DateTime.In(loc).Format("15:04")
	},
}

// data-ready marks the page as fully rendered for the snapshot command.
var timelinePage = template.Must(template.New("timeline").Funcs(pageFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Timeline {{.Timeline.Date}}</title>
<style>
body { font-family: sans-serif; margin: 24px; color: #111; }
h1 { font-size: 22px; margin: 0 0 4px; }
.tz { color: #666; font-size: 12px; margin-bottom: 16px; }
.allday { margin-bottom: 12px; }
.allday span { display: inline-block; background: #eee; border-radius: 4px; padding: 2px 8px; margin-right: 6px; }
.batch { display: flex; border-top: 1px solid #ddd; padding: 6px 0; }
.batch .hours { width: 200px; color: #444; }
.batch.free .hours { color: #aaa; }
.batch .events div { margin-bottom: 2px; }
.desc { color: #555; font-size: 12px; white-space: pre-line; }
</style>
</head>
<body>
<div id="timeline" data-ready="true">
<h1>{{.Timeline.Date}}</h1>
<div class="tz">{{.Timeline.Timezone}}</div>
{{- if .Timeline.AllDay}}
<div class="allday">{{range .Timeline.AllDay}}<span>{{.Summary}}</span>{{end}}</div>
{{- end}}
{{- range .Timeline.Batches}}
<div class="batch {{.Kind}}">
<div class="hours">{{.Label}}</div>
<div class="events">
{{- range .Events}}
<div><strong>{{clock .Start $.Location}}–{{clock .End $.Location}}</strong> {{.Summary}}
{{- if .Description}}<div class="desc">{{.Description}}</div>{{end}}</div>
{{- end}}
</div>
</div>
{{- end}}
</div>
</body>
</html>
`))

type pageData struct {
	Timeline model.Timeline
	Location *time.Location
}

// handleTimelinePage renders the batched day as a static HTML page.
func (s *Server) handleTimelinePage(w http.ResponseWriter, r *http.Request) {
	date, err := s.date(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	tl, err := s.svc.Timeline(r.Context(), date)
	if err != nil {
		status := statusFor(err)
		appLog.Error("timeline page failed", err, "status", status)
		http.Error(w, err.Error(), status)
		return
	}

	var buf bytes.Buffer
	if err := timelinePage.Execute(&buf, pageData{Timeline: tl, Location: s.opts.Location}); err != nil {
		appLog.Error("timeline page render failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
