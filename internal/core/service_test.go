package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/carpenters/internal/model"
	"github.com/JonMunkholm/carpenters/internal/schema"
)

// Test exporters. The real exporters live in the exports subpackage, which
// imports core.
func init() {
	RegisterExporter(ExporterDefinition{
		Key: "test-count",
		Exporter: func(ctx context.Context, req ExportRequest) (ExportSummary, error) {
			tracker := NewProgressTracker(req, len(req.Objects), 0)
			for _, o := range req.Objects {
				tracker.Object("Counting", o.UUID)
			}
			summary := ExportSummary{Objects: len(req.Objects), Destination: req.Destination}
			tracker.Finish(summary)
			return summary, nil
		},
	})
	RegisterExporter(ExporterDefinition{
		Key:      "test-needs-map",
		NeedsMap: true,
		Exporter: func(ctx context.Context, req ExportRequest) (ExportSummary, error) {
			return ExportSummary{}, nil
		},
	})
	RegisterExporter(ExporterDefinition{
		Key:   "test-block",
		Label: "Blocking",
		Exporter: func(ctx context.Context, req ExportRequest) (ExportSummary, error) {
			<-ctx.Done()
			return ExportSummary{}, ctx.Err()
		},
	})
}

func newTestService(t *testing.T, objects ...model.Object) (*Service, *MemoryHistory) {
	t.Helper()
	store := NewStore()
	store.Replace(model.Project{Objects: objects}, filepath.Join(t.TempDir(), "Test.carp"))
	history := NewMemoryHistory(0)
	return NewService(store, history, ServiceConfig{Username: "jdoe", LineEnding: LineEndingLF}), history
}

func TestService_Export(t *testing.T) {
	svc, history := newTestService(t, model.NewObject(), model.NewObject())

	summary, err := svc.Export(context.Background(), "test-count", "/tmp/out", ExportOptions{})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if summary.Objects != 2 {
		t.Errorf("Objects = %d, want 2", summary.Objects)
	}
	if svc.Guard().Busy() {
		t.Error("guard should be released after Export")
	}

	entries, _ := history.List(context.Background(), 0)
	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(entries))
	}
	if entries[0].Exporter != "test-count" || entries[0].Status != StatusSucceeded {
		t.Errorf("history entry = %+v", entries[0])
	}
}

func TestService_ExportPreconditions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		kind    string
		dest    string
		wantErr error
	}{
		{"unknown exporter", "nope", "/tmp/out", ErrUnknownExporter},
		{"missing map", "test-needs-map", "/tmp/out", ErrNoMap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Export(ctx, tt.kind, tt.dest, ExportOptions{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Export() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("missing destination", func(t *testing.T) {
		_, err := svc.Export(ctx, "test-count", "", ExportOptions{})
		if MapError(err).Code != "EXP003" {
			t.Errorf("Export() error = %v, want EXP003", err)
		}
	})

	t.Run("no project", func(t *testing.T) {
		empty := NewService(nil, nil, ServiceConfig{})
		if _, err := empty.Export(ctx, "test-count", "/tmp/out", ExportOptions{}); !errors.Is(err, ErrNoProject) {
			t.Errorf("Export() error = %v, want ErrNoProject", err)
		}
	})

	if svc.Guard().Busy() {
		t.Error("failed preconditions must not hold the guard")
	}
}

func TestService_StartExportProgress(t *testing.T) {
	svc, _ := newTestService(t, model.NewObject())
	ctx := context.Background()

	id, err := svc.StartExport(ctx, "test-count", "/tmp/out", ExportOptions{})
	if err != nil {
		t.Fatalf("StartExport() error = %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	outcome, err := svc.ExportResult(waitCtx, id)
	if err != nil {
		t.Fatalf("ExportResult() error = %v", err)
	}
	if outcome.Error != "" || outcome.Summary.Objects != 1 {
		t.Errorf("outcome = %+v", outcome)
	}

	progress, err := svc.CurrentProgress(id)
	if err != nil {
		t.Fatal(err)
	}
	if progress.Description != "Exported 1 objects and 0 files" || !progress.Done {
		t.Errorf("final progress = %+v", progress)
	}

	ch, err := svc.SubscribeProgress(id)
	if err != nil {
		t.Fatal(err)
	}
	last, ok := <-ch
	if !ok || !last.Done {
		t.Errorf("late subscriber got %+v, %v; want the terminal progress", last, ok)
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after the terminal progress")
	}
}

func TestService_GuardRejectsConcurrentExport(t *testing.T) {
	svc, history := newTestService(t, model.NewObject())
	ctx := context.Background()

	id, err := svc.StartExport(ctx, "test-block", "/tmp/out", ExportOptions{})
	if err != nil {
		t.Fatalf("StartExport() error = %v", err)
	}

	if _, err := svc.Export(ctx, "test-count", "/tmp/out", ExportOptions{}); !errors.Is(err, ErrOperationInProgress) {
		t.Errorf("second Export() error = %v, want ErrOperationInProgress", err)
	}
	if _, err := svc.MintArks(ctx, fakeMinter{}); !errors.Is(err, ErrOperationInProgress) {
		t.Errorf("MintArks() error = %v, want ErrOperationInProgress", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := svc.Shutdown(waitCtx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	outcome, err := svc.ExportResult(waitCtx, id)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Message.Code != "OPS002" {
		t.Errorf("outcome message = %+v, want OPS002", outcome.Message)
	}
	if err := svc.Guard().WaitForDrain(waitCtx); err != nil {
		t.Fatalf("guard did not drain: %v", err)
	}

	entries, _ := history.List(ctx, 0)
	if len(entries) != 1 || entries[0].Status != StatusFailed {
		t.Errorf("history = %+v, want one failed entry", entries)
	}
}

func TestService_UnknownExportID(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.SubscribeProgress("missing"); !errors.Is(err, ErrExportNotFound) {
		t.Errorf("SubscribeProgress() error = %v, want ErrExportNotFound", err)
	}
	if _, err := svc.ExportResult(context.Background(), "missing"); !errors.Is(err, ErrExportNotFound) {
		t.Errorf("ExportResult() error = %v, want ErrExportNotFound", err)
	}
}

type fakeMinter struct {
	fail bool
}

func (m fakeMinter) MintArk(_ context.Context, obj model.Object, purpose model.Purpose) (string, error) {
	if m.fail {
		return "", errors.New("minter unavailable")
	}
	return fmt.Sprintf("ark:/99999/%s-%s", purpose, obj.UUID[:8]), nil
}

func TestService_MintArks(t *testing.T) {
	minted := model.NewObject()
	minted.PMArk = "ark:/99999/existing"
	minted.DOArk = "ark:/99999/existing-do"
	partial := model.NewObject()
	partial.PMArk = "ark:/99999/pm-only"
	fresh := model.NewObject()

	svc, _ := newTestService(t, minted, partial, fresh)
	result, err := svc.MintArks(context.Background(), fakeMinter{})
	if err != nil {
		t.Fatalf("MintArks() error = %v", err)
	}
	if result.Objects != 2 || result.Preservation != 1 || result.Access != 2 {
		t.Errorf("MintArks() = %+v, want 2 objects, 1 preservation, 2 access", result)
	}

	snap, _ := svc.Store().Snapshot()
	if snap.Project.Objects[0].PMArk != "ark:/99999/existing" {
		t.Error("existing ARK was replaced")
	}
	for _, o := range snap.Project.Objects {
		if o.PMArk == "" || o.DOArk == "" {
			t.Errorf("object %s still missing an ARK: %+v", o.UUID, o)
		}
	}

	if _, err := svc.MintArks(context.Background(), fakeMinter{fail: true}); err != nil {
		t.Errorf("MintArks() with nothing to mint error = %v", err)
	}
}

type fakeArchivalSource struct {
	children []model.ArchivalChild
}

func (s fakeArchivalSource) Children(context.Context, string) ([]model.ArchivalChild, error) {
	return s.children, nil
}

func TestService_ImportArchivalObjects(t *testing.T) {
	store := NewStore()
	store.Replace(model.Project{Type: model.ProjectArchival, ResourceURI: "/repositories/2/resources/7"}, "")
	svc := NewService(store, nil, ServiceConfig{})

	source := fakeArchivalSource{children: []model.ArchivalChild{
		{Title: "Correspondence", Dates: []string{"1950"}},
		{Title: "Photographs"},
	}}
	n, err := svc.ImportArchivalObjects(context.Background(), source)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("imported = %d, want 2", n)
	}
	snap, _ := store.Snapshot()
	if got := snap.Project.Objects[0].Value(model.KeyDate); got != "1950" {
		t.Errorf("dc.date = %q, want 1950", got)
	}
}

func TestService_ValidateProject(t *testing.T) {
	valid := model.NewObject()
	valid.Metadata[model.KeyTitle] = "Titled"
	invalid := model.NewObject()

	svc, _ := newTestService(t, valid, invalid)
	svc.SetSchema(schema.Map{{Namespace: "dcterms", Name: "title", Label: "Title", Obligation: schema.Required}})

	results, err := svc.ValidateProject()
	if err != nil {
		t.Fatal(err)
	}
	if !results[0].Valid || results[1].Valid {
		t.Errorf("results = %+v, want valid then invalid", results)
	}
}
