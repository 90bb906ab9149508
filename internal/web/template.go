package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/KingBrewer/DHT22-sensor-driver/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"onOff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>DHT22 Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.big { font-size: 1.6em; font-weight: bold; }
.stale { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>DHT22 Sensor</h1>

<table>
<tr><th>Temperature</th><td class="big">{{if .HaveReading}}{{.Reading.TemperatureString}} °C{{else}}<span class="stale">no reading yet</span>{{end}}</td></tr>
<tr><th>Humidity</th><td class="big">{{if .HaveReading}}{{.Reading.HumidityString}} %{{else}}<span class="stale">no reading yet</span>{{end}}</td></tr>
{{if .HaveReading}}<tr><th>Reading taken</th><td>{{.ReadingAt.UTC.Format "2006-01-02 15:04:05"}} UTC</td></tr>{{end}}
</table>

<table>
<tr><th>Auto-update</th><td>{{onOff .Schedule.AutoUpdate}} ({{.Schedule.IntervalMs}} ms)</td></tr>
<tr><th>Chip / pin</th><td>{{.Config.Chip}} / {{.Config.Pin}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>MQTT</th><td>{{if .MQTTConnected}}<span class="connected">connected</span>{{else}}<span class="disconnected">disconnected</span>{{end}} ({{.Config.Broker}})</td></tr>
</table>

<table>
<tr><th>Readings</th><td>{{.Counters.Readings}}</td></tr>
<tr><th>Checksum errors</th><td>{{.Counters.ChecksumErrors}}</td></tr>
<tr><th>Unexpected edges</th><td>{{.Counters.UnexpectedEdges}}</td></tr>
<tr><th>Stuck resets</th><td>{{.Counters.StuckResets}}</td></tr>
<tr><th>Retries</th><td>{{.Counters.Retries}}</td></tr>
<tr><th>Dropped tasks</th><td>{{.Counters.DroppedTasks}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	if err := indexTmpl.Execute(w, snap); err != nil {
		log.Printf("web: render template: %v", err)
	}
}
