package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	"vanet-sim/internal/telemetry"
)

//go:embed templates/*.json.tmpl
var templates embed.FS

// Tables names the tables a dashboard queries.
type Tables struct {
	SampleTable  string
	SummaryTable string
}

type dashboard struct {
	file   string
	tables Tables
}

func dashboards() []dashboard {
	return []dashboard{
		{"grafana-dashboard.json.tmpl", Tables{telemetry.SampleTableName, telemetry.SummaryTableName}},
		{"grafana-dashboard-clickhouse.json.tmpl", Tables{"vanet_samples", "vanet_summary"}},
	}
}

// Render parses dashboard templates and writes rendered dashboards to outDir.
// Data source uids are read from GREPTIMEDB_DATASOURCE_UID and
// CLICKHOUSE_DATASOURCE_UID.
func Render(outDir string) error {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, d := range dashboards() {
		t, err := template.New(d.file).Funcs(funcMap).ParseFS(templates, path.Join("templates", d.file))
		if err != nil {
			return err
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(d.file, ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := t.Execute(f, d.tables); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
