package webui

const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>News Threads</title>
  <style>
    body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 64rem; color: #1a1a1a; }
    h1 { font-size: 1.4rem; }
    .filters a { margin-right: 0.75rem; text-decoration: none; color: #2563eb; }
    .filters a.active { font-weight: 700; }
    table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
    th, td { text-align: left; padding: 0.4rem 0.6rem; border-bottom: 1px solid #e5e7eb; vertical-align: top; }
    .status { font-size: 0.8rem; padding: 0.1rem 0.4rem; border-radius: 0.25rem; background: #f3f4f6; }
    .blocked { color: #b91c1c; }
    .pager { margin-top: 1rem; }
    .pager a { margin-right: 1rem; }
    .summary { color: #4b5563; font-size: 0.9rem; }
  </style>
</head>
<body>
  <h1>News Threads</h1>
  <div class="filters">
    <a href="/?sort_by={{.SortBy}}&order={{.Order}}" {{if eq .Status ""}}class="active"{{end}}>all ({{.Page.Total}})</a>
    {{range $status, $count := .Counts}}
    <a href="/?status={{$status}}&sort_by={{$.SortBy}}&order={{$.Order}}" {{if eq $.Status $status}}class="active"{{end}}>{{$status}} ({{$count}})</a>
    {{end}}
    <a href="/?status=stale&sort_by={{.SortBy}}&order={{.Order}}" {{if eq .Status "stale"}}class="active"{{end}}>stale</a>
  </div>
  <table>
    <tr>
      <th><a href="/?status={{.Status}}&sort_by=updated_at&order=desc">Updated</a></th>
      <th><a href="/?status={{.Status}}&sort_by=created_at&order=desc">Created</a></th>
      <th>Thread</th>
      <th>Scope</th>
      <th>Status</th>
    </tr>
    {{range .Page.Threads}}
    <tr>
      <td>{{.UpdatedAt.Format "2006-01-02 15:04"}}</td>
      <td>{{.CreatedAt.Format "2006-01-02 15:04"}}</td>
      <td>
        <a href="/api/threads/{{.ID}}">{{.Title}}</a>
        <div class="summary">{{.Summary}}</div>
        {{if .Blocked}}<div class="blocked">blocked: {{.BlockedReason}}</div>{{end}}
      </td>
      <td>{{.Scope.Category}} / {{.Scope.Country}} / {{.Scope.Language}}</td>
      <td><span class="status">{{.Status}}</span></td>
    </tr>
    {{else}}
    <tr><td colspan="5">No threads yet.</td></tr>
    {{end}}
  </table>
  <div class="pager">
    {{if .HasPrev}}<a href="/?status={{.Status}}&sort_by={{.SortBy}}&order={{.Order}}&page={{.Prev}}">&laquo; previous</a>{{end}}
    page {{.Page.Page}} of {{.Page.Pages}}
    {{if .HasNext}}<a href="/?status={{.Status}}&sort_by={{.SortBy}}&order={{.Order}}&page={{.Next}}">next &raquo;</a>{{end}}
  </div>
</body>
</html>
`
