package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/iwkbu-monitor/iwkbu-monitor/internal/platform/numfmt"
	"github.com/iwkbu-monitor/iwkbu-monitor/internal/rekap"
	"github.com/iwkbu-monitor/iwkbu-monitor/report"
)

// Renderer turns HTML into PDF bytes.
type Renderer interface {
	RenderHTML(ctx context.Context, html string, opts report.Options) ([]byte, error)
}

// PDFExporter renders the rekap table through Gotenberg.
type PDFExporter struct {
	Renderer Renderer
}

var pdfTemplate = template.Must(template.New("rekap-pdf").Funcs(template.FuncMap{
	"int":     numfmt.Int,
	"rupiah":  numfmt.Rupiah,
	"percent": numfmt.Percent,
	"date":    func(t time.Time) string { return t.Format("02/01/2006 15:04") },
}).Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Rekap IWKBU {{.Table}}</title>
<style>
body{font-family:sans-serif;font-size:9px;margin:16px;}
h1{font-size:14px;margin:0 0 4px;}
table{width:100%;border-collapse:collapse;}
th,td{border:1px solid #999;padding:3px;text-align:right;}
th{background:#d9e1f2;text-align:center;}
td.label{text-align:left;}
tr.group_header td{font-weight:bold;font-style:italic;text-align:left;}
tr.subtotal td{font-weight:bold;background:#fff2cc;}
tr.grand_total td{font-weight:bold;background:#f8cbad;}
tr.failed td{color:#a00;}
</style></head><body>
<h1>REKAP IWKBU {{.Table}}</h1>
<p>Periode {{.Start}} s.d. {{.End}} &middot; dibuat {{date .GeneratedAt}}</p>
<table><thead><tr>
<th>No</th><th>Loket/Samsat</th><th>Petugas</th>
<th>TL Nopol</th><th>TL Rp</th><th>TI Nopol</th><th>TI Rp</th>
<th>Memastikan</th><th>Memastikan Rp</th><th>%</th>
<th>Menambahkan</th><th>Menambahkan Rp</th><th>Mengupayakan</th>
<th>Gap</th><th>Sisa</th><th>Sisa Rp</th>
</tr></thead><tbody>
{{range .Rows}}{{if eq .Kind "group_header"}}<tr class="group_header"><td></td><td colspan="15">{{.Label}}</td></tr>
{{else}}<tr class="{{.Kind}}{{if .Failed}} failed{{end}}"><td>{{if .Sequence}}{{.Sequence}}{{end}}</td><td class="label">{{.Label}}</td><td class="label">{{.Officer}}</td>
<td>{{int .CheckinCount}}</td><td>{{rupiah .CheckinAmount}}</td><td>{{int .CheckoutCount}}</td><td>{{rupiah .CheckoutAmount}}</td>
<td>{{int .ConfirmedCount}}</td><td>{{rupiah .ConfirmedAmount}}</td><td>{{percent .ConfirmedPct}}</td>
<td>{{int .AddedCount}}</td><td>{{rupiah .AddedAmount}}</td><td>{{.Pursued}}</td>
<td>{{int .GapCount}}</td><td>{{int .RemainderCount}}</td><td>{{rupiah .RemainderAmount}}</td></tr>
{{end}}{{end}}</tbody></table>
{{if .Failures}}<p>Sumber gagal dibaca: {{range $i, $f := .Failures}}{{if $i}}, {{end}}{{$f.Office}}{{end}}</p>{{end}}
</body></html>`))

// RenderHTML produces the document sent to Gotenberg.
func RenderHTML(report rekap.Report) (string, error) {
	var buf bytes.Buffer
	if err := pdfTemplate.Execute(&buf, report); err != nil {
		return "", fmt.Errorf("render rekap html: %w", err)
	}
	return buf.String(), nil
}

// RenderRekap converts the rekap table into a landscape PDF.
func (p *PDFExporter) RenderRekap(ctx context.Context, payload rekap.Report) ([]byte, error) {
	if p == nil || p.Renderer == nil {
		return nil, fmt.Errorf("pdf exporter not initialised")
	}
	html, err := RenderHTML(payload)
	if err != nil {
		return nil, err
	}
	return p.Renderer.RenderHTML(ctx, html, report.Options{Landscape: true, Scale: 0.8})
}
