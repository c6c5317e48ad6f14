package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func TestErrorAlert(t *testing.T) {
	tests := []struct {
		name    string
		message string
		action  string
		code    string
		want    string
	}{
		{
			name:    "full",
			message: "Map missing",
			action:  "Load a MAP",
			code:    "MAP001",
			want:    `<div class="alert" role="alert"><strong>Map missing</strong> <p>Load a MAP</p><p class="muted">Code: MAP001</p></div>`,
		},
		{
			name:    "message only",
			message: "Failed",
			want:    `<div class="alert" role="alert"><strong>Failed</strong> </div>`,
		},
		{
			name:    "escaped",
			message: "<b>bad</b>",
			code:    "X&Y",
			want:    `<div class="alert" role="alert"><strong>&lt;b&gt;bad&lt;/b&gt;</strong> <p class="muted">Code: X&amp;Y</p></div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render(t, ErrorAlert(tt.message, tt.action, tt.code))
			if got != tt.want {
				t.Errorf("ErrorAlert() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDashboard(t *testing.T) {
	tests := []struct {
		name    string
		data    DashboardData
		want    []string
		notWant []string
	}{
		{
			name:    "no project",
			data:    DashboardData{},
			want:    []string{"<!doctype html>", "No project is open.", "No exports yet."},
			notWant: []string{"Untitled project", "<table><tr><th>Started"},
		},
		{
			name: "open project without map",
			data: DashboardData{ProjectOpen: true, Objects: 3, Files: 5},
			want: []string{
				"<h2>Untitled project</h2>",
				`<p class="muted">not saved</p>`,
				`<p>3 objects, 5 files. <span class="muted">No MAP loaded.</span></p>`,
			},
		},
		{
			name: "invalid objects",
			data: DashboardData{ProjectOpen: true, MapLoaded: true, Invalid: 2, Busy: true},
			want: []string{
				`<span class="bad">2 invalid objects.</span>`,
				"An export or mint operation is running.",
			},
		},
		{
			name: "exporters and history",
			data: DashboardData{
				ProjectOpen:     true,
				CollectionTitle: "Letters & Maps",
				MapLoaded:       true,
				Exporters: []ExporterRow{
					{Key: "avalon", Label: "Avalon", Description: "Batch ingest", Available: true},
					{Key: "hyrax", Label: "Hyrax", Available: false},
				},
				History: []HistoryRow{
					{Label: "Avalon", Status: "failed", Error: `disk "full"`, Objects: 4, Files: 9, Destination: "/out"},
					{Label: "Hyrax", Status: "complete", Objects: 1, Files: 2},
				},
			},
			want: []string{
				"<h2>Letters &amp; Maps</h2>",
				`<span class="ok">All objects valid.</span>`,
				`<td>Avalon <span class="muted">(avalon)</span></td><td>Batch ingest</td><td><span class="ok">ready</span></td>`,
				`<span class="muted">needs MAP</span>`,
				`<td class="bad" title="disk &#34;full&#34;">failed</td><td>4</td><td>9</td><td>/out</td>`,
				`<td class="ok">complete</td><td>1</td><td>2</td>`,
			},
			notWant: []string{"No exports yet."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render(t, Dashboard(tt.data))
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("Dashboard() missing %q in %s", want, got)
				}
			}
			for _, bad := range tt.notWant {
				if strings.Contains(got, bad) {
					t.Errorf("Dashboard() contains %q", bad)
				}
			}
		})
	}
}

func TestOrDefault(t *testing.T) {
	if got := orDefault("", "x"); got != "x" {
		t.Errorf("orDefault(\"\", x) = %q, want x", got)
	}
	if got := orDefault("a", "x"); got != "a" {
		t.Errorf("orDefault(a, x) = %q, want a", got)
	}
}
