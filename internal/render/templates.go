package render

const layoutTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{if .Title}}{{.Title}} | {{end}}SAMADhi Report</title>
  <style>
    :root {
      --sam-blue: #0e5d8f;
      --bg: #f7f7f7;
      --paper: #fff;
      --text: #333;
      --muted: #777;
      --line: #ddd;
      --head: #f0f0f0;
      --ok-bg: #dff0d8;
      --ok-text: #3c763d;
      --warn-bg: #fcf8e3;
      --warn-text: #8a6d3b;
      --bad-bg: #f2dede;
      --bad-text: #a94442;
    }
    * { box-sizing: border-box; }
    body {
      margin: 0;
      background: var(--bg);
      color: var(--text);
      font-family: "Helvetica Neue", Helvetica, Arial, sans-serif;
      font-size: 14px;
      line-height: 1.42857143;
    }
    a { color: #428bca; text-decoration: none; }
    a:hover { text-decoration: underline; }
    header { background: var(--sam-blue); color: #fff; padding: 10px 20px; display: flex; align-items: center; gap: 24px; }
    header h1 { font-size: 18px; margin: 0; font-weight: 600; }
    header nav a { color: #dfefff; margin-right: 14px; }
    header nav a.active { color: #fff; font-weight: 700; }
    main { padding: 20px; display: flex; flex-wrap: wrap; gap: 16px; }
    .panel { background: var(--paper); border: 1px solid var(--line); border-radius: 4px; flex: 1 1 45%; min-width: 320px; }
    .panel.full { flex-basis: 100%; }
    .panel.half { flex-basis: 45%; }
    .panel h2 { margin: 0; padding: 8px 12px; font-size: 15px; background: var(--head); border-bottom: 1px solid var(--line); }
    .panel .body { padding: 10px 12px; }
    .panel.warning h2 { background: var(--warn-bg); color: var(--warn-text); }
    .panel.danger h2 { background: var(--bad-bg); color: var(--bad-text); }
    .badge { display: inline-block; min-width: 20px; padding: 2px 7px; border-radius: 10px; background: var(--muted); color: #fff; font-size: 12px; text-align: center; margin-left: 6px; }
    .chart { min-height: 320px; }
    .caption { color: var(--muted); }
    .empty { color: var(--muted); font-style: italic; }
    table.shares { width: 100%; border-collapse: collapse; margin-top: 6px; font-size: 12px; }
    table.shares td { border-top: 1px solid var(--line); padding: 2px 4px; }
    table.shares td.n { text-align: right; }
    details { border-top: 1px solid var(--line); padding: 4px 0; }
    details summary { cursor: pointer; }
    details dl { margin: 4px 0 4px 16px; }
    details dt { font-weight: 600; }
    .alert { flex-basis: 100%; padding: 10px 14px; border-radius: 4px; background: var(--bad-bg); color: var(--bad-text); border: 1px solid #ebccd1; }
    .counts { display: flex; gap: 16px; flex-basis: 100%; }
    .count { background: var(--paper); border: 1px solid var(--line); border-radius: 4px; padding: 14px 20px; flex: 1; }
    .count strong { display: block; font-size: 28px; color: var(--sam-blue); }
  </style>
  {{if .Doc}}{{if .Doc.ChartCount}}
  <script src="{{.CDNBase}}/highcharts.js"></script>
  <script src="{{.CDNBase}}/highcharts-3d.js"></script>
  {{end}}{{end}}
</head>
<body>
  <header>
    <h1><a href="/" style="color:#fff">SAMADhi Report</a></h1>
    <nav>{{range .Nav}}<a href="{{.Href}}"{{if .Active}} class="active"{{end}}>{{.Title}}</a>{{end}}</nav>
  </header>
  <main>
    {{if .Error}}<div class="alert" role="alert">{{.Error}}</div>{{end}}
    {{if eq .Body "report"}}{{template "report" .}}{{else}}{{template "index" .}}{{end}}
  </main>
</body>
</html>`

const reportTemplate = `{{range .Doc.Panels}}
<section class="panel {{.Width}} {{.Style}}" id="panel-{{.ID}}">
  <h2>{{.Heading}}{{if .BadgeID}}<span class="badge" id="{{.BadgeID}}">{{.BadgeText}}</span>{{end}}</h2>
  <div class="body">
  {{if eq .Kind "chart"}}
    <div class="chart" id="{{.ID}}">{{if not .Chart}}<p class="empty">No data available.</p>{{end}}</div>
    {{if isPie .}}
    <table class="shares">
      {{range shares .}}<tr><td>{{.Label}}</td><td class="n">{{num .Count}}</td><td class="n">{{pct .Share}}</td></tr>{{end}}
    </table>
    {{end}}
  {{else}}
    {{with .Caption}}<div class="caption">{{caption .}}</div>{{end}}
    <div id="{{.ID}}">
    {{range .Entries}}
      <details>
        <summary>{{.Name}}{{if .Reason}} <em>({{.Reason}})</em>{{end}}</summary>
        <dl>
          <dt>id</dt><dd>{{.ID}}</dd>
          {{range .Details}}<dt>{{.Key}}</dt><dd>{{.Value}}</dd>{{end}}
        </dl>
      </details>
    {{end}}
    </div>
  {{end}}
  </div>
</section>
{{end}}
{{if .Doc.ChartCount}}
<script>
{{range .Doc.Panels}}{{if .Chart}}new Highcharts.Chart({{.Chart}});
{{end}}{{end}}
</script>
{{end}}`

const indexTemplate = `{{with .General}}
<div class="counts">
  <div class="count"><strong id="nDatasets">{{.Datasets}}</strong>datasets</div>
  <div class="count"><strong id="nSamples">{{.Samples}}</strong>samples</div>
  <div class="count"><strong id="nResults">{{.Results}}</strong>results</div>
  <div class="count"><strong id="nAnalysis">{{.Analyses}}</strong>analyses</div>
</div>
{{end}}
<section class="panel full">
  <h2>Reports</h2>
  <div class="body">
    <ul>
    {{range .Nav}}<li><a href="{{.Href}}">{{.Title}}</a> (<a href="{{.Href}}/echarts">static charts</a>, <a href="/api/v1/reports/{{.Type}}/export.xlsx">xlsx</a>)</li>{{end}}
    </ul>
  </div>
</section>`
