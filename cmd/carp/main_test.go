package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/carpenters/internal/core"
	"github.com/JonMunkholm/carpenters/internal/model"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeProject(t *testing.T) string {
	t.Helper()
	obj := model.NewObject(model.Container{Type1: "Box", Indicator1: "1"})
	obj.Title = "Letters"
	obj.Metadata[model.KeyTitle] = "Letters"

	docPath := filepath.Join(t.TempDir(), "Test.carp")
	store := core.NewStore()
	store.Replace(model.Project{Type: model.ProjectNonArchival, Objects: []model.Object{obj}}, docPath)
	if err := store.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return docPath
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(out, Version) {
		t.Errorf("output = %q, want version %s", out, Version)
	}
}

func TestExporters(t *testing.T) {
	out, err := runCLI(t, "exporters")
	if err != nil {
		t.Fatalf("exporters error = %v", err)
	}
	for _, key := range []string{"armand", "avalon", "metadata", "modified-masters", "preservation", "shotlist"} {
		if !strings.Contains(out, key) {
			t.Errorf("output missing exporter %q:\n%s", key, out)
		}
	}
}

func TestValidate_NoMap(t *testing.T) {
	out, err := runCLI(t, "validate", "--project", writeProject(t))
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}
	if !strings.Contains(out, "1 objects, 0 invalid") {
		t.Errorf("output = %q, want the summary line", out)
	}
}

func TestValidate_NoProject(t *testing.T) {
	t.Setenv("CARP_PROJECT", "")
	_, err := runCLI(t, "validate")
	if err == nil {
		t.Fatal("validate without a project should fail")
	}
	if got := core.MapError(err).Code; got != "PRJ001" {
		t.Errorf("code = %q, want PRJ001", got)
	}
}

func TestExport_Shotlist(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "shotlist.csv")

	out, err := runCLI(t, "export", "shotlist", "--project", writeProject(t), "--dest", dest, "--line-ending", "lf")
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	if !strings.Contains(out, "Exported 1 objects and 0 files") {
		t.Errorf("output = %q, want the export summary", out)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read shotlist: %v", err)
	}
	if !strings.Contains(string(data), "Letters") {
		t.Errorf("shotlist = %q, want the object title", data)
	}
}

func TestExport_NeedsMap(t *testing.T) {
	t.Setenv("CARP_MAP_URL", "")
	t.Setenv("CARP_MAP_FILE", "")
	_, err := runCLI(t, "export", "armand", "--project", writeProject(t), "--dest", t.TempDir())
	if err == nil {
		t.Fatal("armand export without a MAP should fail")
	}
	if got := core.MapError(err).Code; got != "MAP001" {
		t.Errorf("code = %q, want MAP001", got)
	}
}

func TestHistory_NoDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")
	_, err := runCLI(t, "history", "list")
	if err == nil {
		t.Fatal("history list without a database should fail")
	}
	if got := core.MapError(err).Code; got != "DB003" {
		t.Errorf("code = %q, want DB003", got)
	}
}

func TestHistory_ResetNeedsConfirmation(t *testing.T) {
	if _, err := runCLI(t, "history", "reset"); err == nil {
		t.Error("history reset without --yes should fail")
	}
}

func TestErrorText(t *testing.T) {
	if got := errorText(core.ErrNoMap); !strings.Contains(got, "MAP001") {
		t.Errorf("errorText(ErrNoMap) = %q, want the code", got)
	}
	if got := errorText(os.ErrClosed); got != os.ErrClosed.Error() {
		t.Errorf("errorText(other) = %q, want the raw error", got)
	}
}
