package templates

import (
	"html/template"
	"io"

	"github.com/valyala/bytebufferpool"
)

type ProcedureInfo struct {
	Path             string
	Kind             string
	CallsLastMinute  int
	ErrorsLastMinute int
	AvgLatency       string
	Healthy          bool
}

type OverviewData struct {
	Uptime             string
	CallsLastMinute    int
	PeakCallsPerMinute int
	Procedures         []ProcedureInfo
}

type LatencyInfo struct {
	Count   int
	Average string
	Min     string
	Max     string
	P50     string
	P95     string
	P99     string
}

type DetailData struct {
	Procedure ProcedureInfo
	Latency   LatencyInfo
}

const layoutHTML = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>{{.Title}}</title>
	<script src="https://unpkg.com/htmx.org@1.9.10"></script>
	<script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="bg-gray-900 text-gray-100">
	<div class="min-h-screen">
		{{.Content}}
	</div>
</body>
</html>`

const overviewHTML = `
<div class="container mx-auto px-4 py-8">
	<header class="mb-8">
		<h1 class="text-4xl font-bold text-white mb-2">Tinyland Gateway</h1>
		<p class="text-gray-400">Procedure traffic and latency</p>
	</header>

	<div class="grid grid-cols-1 md:grid-cols-3 gap-4 mb-8">
		<div class="bg-gray-800 rounded-lg p-4 border-2 border-gray-600">
			<p class="text-sm text-gray-400 mb-1">Uptime</p>
			<p class="text-2xl font-semibold text-white font-mono">{{.Uptime}}</p>
		</div>
		<div class="bg-gray-800 rounded-lg p-4 border-2 border-gray-600">
			<p class="text-sm text-gray-400 mb-1">Calls / min</p>
			<p class="text-2xl font-semibold text-white font-mono">{{.CallsLastMinute}}</p>
		</div>
		<div class="bg-gray-800 rounded-lg p-4 border-2 border-gray-600">
			<p class="text-sm text-gray-400 mb-1">Peak calls / min</p>
			<p class="text-2xl font-semibold text-white font-mono">{{.PeakCallsPerMinute}}</p>
		</div>
	</div>

	<div id="procedures-container" class="grid grid-cols-1 md:grid-cols-2 lg:grid-cols-3 gap-6">
		{{range .Procedures}}
		{{template "procedureCardFrame" .}}
		{{end}}
	</div>

	<div class="mt-8 text-center text-gray-500 text-sm">
		<p>Auto-refreshing every 5 seconds</p>
	</div>
</div>`

const procedureCardFrameHTML = `
{{define "procedureCardFrame"}}
<div
	data-procedure-card
	data-procedure="{{.Path}}"
	hx-get="/debug/api/procedure/{{.Path}}"
	hx-trigger="every 5s"
	hx-swap="outerHTML"
	class="bg-gray-800 rounded-lg shadow-lg p-6 border-2 border-gray-600 hover:border-gray-500 transition-all hover:shadow-xl"
>
	{{template "procedureCard" .}}
</div>
{{end}}`

const procedureCardHTML = `
{{define "procedureCard"}}
<a href="/debug/procedures/{{.Path}}" class="block h-full">
	<div class="h-full flex flex-col">
		<div class="flex justify-between items-start mb-4">
			<div class="min-w-0 flex-1 mr-2">
				<h2 class="text-xl font-semibold text-white truncate font-mono">{{.Path}}</h2>
				<p class="text-sm text-gray-400">{{.Kind}}</p>
			</div>
			<div class="flex-shrink-0">
				{{if .Healthy}}
					<div class="w-3 h-3 rounded-full bg-green-500" title="Healthy"></div>
				{{else}}
					<div class="w-3 h-3 rounded-full bg-red-500" title="Erroring"></div>
				{{end}}
			</div>
		</div>

	<div class="flex-1 space-y-3">
		<div class="bg-gray-700/30 rounded p-3">
			<div class="flex justify-between items-center">
				<span class="text-sm text-gray-400">Calls / min</span>
				<span class="font-mono text-lg text-white">{{.CallsLastMinute}}</span>
			</div>
		</div>

		<div class="bg-gray-700/30 rounded p-3">
			<div class="flex justify-between items-center">
				<span class="text-sm text-gray-400">Errors / min</span>
				<span class="font-mono text-lg {{if .Healthy}}text-white{{else}}text-red-400{{end}}">{{.ErrorsLastMinute}}</span>
			</div>
		</div>

		<div class="bg-gray-700/30 rounded p-3">
			<div class="flex justify-between items-center">
				<span class="text-sm text-gray-400">Avg latency</span>
				<span class="text-sm font-mono text-gray-300">{{.AvgLatency}}</span>
			</div>
		</div>
	</div>

	<div class="mt-4 pt-3 border-t border-gray-700">
		<div class="flex justify-between items-center text-xs text-gray-500">
			<span>Auto-refresh</span>
			<span class="flex items-center">
				<div class="w-2 h-2 bg-green-400 rounded-full mr-1 animate-pulse"></div>
				Active
			</span>
		</div>
	</div>
	</div>
</a>
{{end}}`

const detailHTML = `
<div class="container mx-auto px-4 py-8">
	<header class="mb-6">
		<div class="flex items-center mb-2">
			<a href="/debug/procedures" class="text-gray-400 hover:text-white mr-4">
				&larr; Back to Dashboard
			</a>
		</div>
		<h1 class="text-4xl font-bold text-white font-mono">{{.Procedure.Path}}</h1>
	</header>

	<div class="space-y-6">
		<div class="bg-gray-800 rounded-lg p-6 border-2 border-gray-600">
			<div class="grid grid-cols-1 md:grid-cols-4 gap-4">
				<div class="bg-gray-700/50 rounded-lg p-4">
					<p class="text-sm text-gray-400 mb-1">Kind</p>
					<p class="text-2xl font-semibold text-white">{{.Procedure.Kind}}</p>
				</div>
				<div class="bg-gray-700/50 rounded-lg p-4">
					<p class="text-sm text-gray-400 mb-1">Calls / min</p>
					<p class="text-2xl font-semibold text-white font-mono">{{.Procedure.CallsLastMinute}}</p>
				</div>
				<div class="bg-gray-700/50 rounded-lg p-4">
					<p class="text-sm text-gray-400 mb-1">Errors / min</p>
					<p class="text-2xl font-semibold {{if .Procedure.Healthy}}text-green-400{{else}}text-red-400{{end}} font-mono">{{.Procedure.ErrorsLastMinute}}</p>
				</div>
				<div class="bg-gray-700/50 rounded-lg p-4">
					<p class="text-sm text-gray-400 mb-1">Avg latency</p>
					<p class="text-2xl font-semibold text-white font-mono">{{.Procedure.AvgLatency}}</p>
				</div>
			</div>
		</div>

		<div class="bg-gray-800 rounded-lg p-6 border-2 border-gray-600">
			<h2 class="text-2xl font-semibold text-white mb-4">Latency (last {{.Latency.Count}} calls)</h2>
			<div class="grid grid-cols-2 md:grid-cols-3 xl:grid-cols-6 gap-3">
				<div class="bg-gray-700/50 rounded-lg p-4 border border-gray-600">
					<p class="text-sm text-gray-400 mb-1">Min</p>
					<p class="text-lg font-semibold text-white font-mono">{{.Latency.Min}}</p>
				</div>
				<div class="bg-gray-700/50 rounded-lg p-4 border border-gray-600">
					<p class="text-sm text-gray-400 mb-1">Average</p>
					<p class="text-lg font-semibold text-white font-mono">{{.Latency.Average}}</p>
				</div>
				<div class="bg-gray-700/50 rounded-lg p-4 border border-gray-600">
					<p class="text-sm text-gray-400 mb-1">P50</p>
					<p class="text-lg font-semibold text-white font-mono">{{.Latency.P50}}</p>
				</div>
				<div class="bg-gray-700/50 rounded-lg p-4 border border-gray-600">
					<p class="text-sm text-gray-400 mb-1">P95</p>
					<p class="text-lg font-semibold text-white font-mono">{{.Latency.P95}}</p>
				</div>
				<div class="bg-gray-700/50 rounded-lg p-4 border border-gray-600">
					<p class="text-sm text-gray-400 mb-1">P99</p>
					<p class="text-lg font-semibold text-white font-mono">{{.Latency.P99}}</p>
				</div>
				<div class="bg-gray-700/50 rounded-lg p-4 border border-gray-600">
					<p class="text-sm text-gray-400 mb-1">Max</p>
					<p class="text-lg font-semibold text-white font-mono">{{.Latency.Max}}</p>
				</div>
			</div>
		</div>
	</div>
</div>`

var (
	layoutTmpl   = template.Must(template.New("layout").Parse(layoutHTML))
	overviewTmpl = template.Must(template.New("overview").Parse(overviewHTML + procedureCardFrameHTML + procedureCardHTML))
	cardTmpl     = template.Must(template.New("card").Parse(procedureCardFrameHTML + procedureCardHTML))
	detailTmpl   = template.Must(template.New("detail").Parse(detailHTML))
)

type layoutData struct {
	Title   string
	Content template.HTML
}

func renderInLayout(w io.Writer, title string, tmpl *template.Template, data any) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := tmpl.Execute(buf, data); err != nil {
		return err
	}
	return layoutTmpl.Execute(w, layoutData{
		Title:   title,
		Content: template.HTML(buf.String()),
	})
}

func RenderOverview(w io.Writer, data OverviewData) error {
	return renderInLayout(w, "Tinyland Gateway", overviewTmpl, data)
}

func RenderProcedureDetail(w io.Writer, data DetailData) error {
	return renderInLayout(w, data.Procedure.Path+" - Tinyland Gateway", detailTmpl, data)
}

// RenderProcedureCard renders the card frame on its own, for the htmx
// refresh endpoint to swap in place.
func RenderProcedureCard(w io.Writer, p ProcedureInfo) error {
	return cardTmpl.ExecuteTemplate(w, "procedureCardFrame", p)
}
