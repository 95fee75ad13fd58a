package plugins

import (
	"bytes"
	"context"
	"html/template"
	"sort"

	"github.com/wolfeidau/assetgraph/internal/models"
	"github.com/wolfeidau/assetgraph/internal/opts"
	"github.com/wolfeidau/assetgraph/internal/plugin"
)

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Bundle report ({{.Mode}})</title></head>
<body>
<h1>Bundle report</h1>
<table>
<tr><th>Chunk</th><th>Kind</th><th>File</th><th>Bytes</th><th>Modules</th></tr>
{{range .Chunks}}<tr><td>{{.Name}}</td><td>{{.Kind}}</td><td>{{.File}}</td><td>{{.Size}}</td><td>{{len .Modules}}</td></tr>
{{end}}</table>
<p>Total: {{.Total}} bytes</p>
</body>
</html>
`))

// Report adds a synthetic HTML chunk summarising chunk sizes, largest first.
type Report struct {
	ChunkName string
}

func newReport(o opts.Options, _ Env) (plugin.Plugin, error) {
	name, err := o.String("name", "bundle-report")
	if err != nil {
		return nil, err
	}
	return &Report{ChunkName: name}, nil
}

func (r *Report) Name() string { return "report" }

func (r *Report) PreEmit(_ context.Context, ec *plugin.EmitContext) error {
	chunks := append([]models.Chunk(nil), ec.Chunks...)
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Size() > chunks[j].Size()
	})

	total := 0
	for i := range chunks {
		total += chunks[i].Size()
	}

	var buf bytes.Buffer
	err := reportTemplate.Execute(&buf, map[string]any{
		"Mode":   ec.Mode,
		"Chunks": chunks,
		"Total":  total,
	})
	if err != nil {
		return err
	}

	return ec.AddChunk(r.ChunkName, "html", buf.Bytes())
}
