package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/carpenters/internal/model"
)

// newSavedStore writes an empty project document under a temp root.
func newSavedStore(t *testing.T, objects ...model.Object) (*Store, string) {
	t.Helper()
	base := t.TempDir()
	docPath := filepath.Join(base, "Test Collection.carp")
	p := model.Project{Type: model.ProjectNonArchival, Objects: objects}
	if err := model.Save(docPath, &p); err != nil {
		t.Fatal(err)
	}
	store := NewStore()
	if _, err := store.Open(docPath); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return store, base
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestStore_NoProject(t *testing.T) {
	store := NewStore()
	if _, ok := store.Snapshot(); ok {
		t.Error("Snapshot() ok = true on an empty store")
	}
	if _, err := store.AddObject(model.NewObject()); !errors.Is(err, ErrNoProject) {
		t.Errorf("AddObject() error = %v, want ErrNoProject", err)
	}
}

func TestStore_SnapshotsAreIsolated(t *testing.T) {
	store := NewStore()
	first := store.Replace(model.Project{}, "")

	obj := model.NewObject()
	second, err := store.AddObject(obj)
	if err != nil {
		t.Fatal(err)
	}

	if len(first.Project.Objects) != 0 {
		t.Errorf("earlier snapshot changed: %d objects", len(first.Project.Objects))
	}
	if second.Version != first.Version+1 {
		t.Errorf("Version = %d, want %d", second.Version, first.Version+1)
	}

	third, err := store.UpdateMetadata(obj.UUID, map[string]string{model.KeyTitle: "New title"})
	if err != nil {
		t.Fatal(err)
	}
	if second.Project.Objects[0].Value(model.KeyTitle) != "" {
		t.Error("UpdateMetadata modified an earlier snapshot")
	}
	if got := third.Project.Objects[0].Title; got != "New title" {
		t.Errorf("Title = %q, want New title", got)
	}
}

func TestStore_UpdateMetadata(t *testing.T) {
	store := NewStore()
	obj := model.NewObject()
	obj.Metadata["dc.date"] = "1950"
	store.Replace(model.Project{Objects: []model.Object{obj}}, "")

	snap, err := store.UpdateMetadata(obj.UUID, map[string]string{
		"dc.date":         "",
		"dcterms.subject": "Ships",
	})
	if err != nil {
		t.Fatal(err)
	}
	got := snap.Project.Objects[0]
	if _, ok := got.Metadata["dc.date"]; ok {
		t.Error("empty value should remove the key")
	}
	if got.Value("dcterms.subject") != "Ships" {
		t.Errorf("subject = %q", got.Value("dcterms.subject"))
	}

	if _, err := store.UpdateMetadata("missing", nil); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("UpdateMetadata(missing) error = %v, want ErrObjectNotFound", err)
	}
}

func TestStore_SetArks(t *testing.T) {
	store := NewStore()
	obj := model.NewObject()
	obj.PMArk = "ark:/99999/old"
	store.Replace(model.Project{Objects: []model.Object{obj}}, "")

	snap, err := store.SetArks(obj.UUID, "", "ark:/99999/do1")
	if err != nil {
		t.Fatal(err)
	}
	got := snap.Project.Objects[0]
	if got.PMArk != "ark:/99999/old" || got.DOArk != "ark:/99999/do1" {
		t.Errorf("arks = %q, %q", got.PMArk, got.DOArk)
	}
}

func TestStore_Subscribe(t *testing.T) {
	store := NewStore()
	ch, unsubscribe := store.Subscribe()

	store.Replace(model.Project{}, "")
	store.AddObject(model.NewObject())

	first := <-ch
	second := <-ch
	if first.Version != 1 || second.Version != 2 {
		t.Errorf("versions = %d, %d, want 1, 2", first.Version, second.Version)
	}

	unsubscribe()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
	unsubscribe()
}

func TestStore_SaveRoundTrip(t *testing.T) {
	obj := model.NewObject(model.Container{Type1: "Box", Indicator1: "1"})
	store, base := newSavedStore(t)
	if _, err := store.AddObject(obj); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reopened := NewStore()
	snap, err := reopened.Open(filepath.Join(base, "Test Collection.carp"))
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Project.Objects) != 1 || snap.Project.Objects[0].UUID != obj.UUID {
		t.Errorf("reopened objects = %+v", snap.Project.Objects)
	}
	if snap.ProjectFile() != "Test Collection.carp" || snap.BasePath() != base {
		t.Errorf("ProjectFile() = %q, BasePath() = %q", snap.ProjectFile(), snap.BasePath())
	}
}

func TestStore_RemoveObjectOrphansFiles(t *testing.T) {
	obj := model.NewObject(model.Container{Type1: "Box", Indicator1: "2"})
	store, base := newSavedStore(t, obj)
	touch(t, filepath.Join(base, "Files", "Box_002", "a_pm.tif"))

	snap, err := store.RemoveObject(obj.UUID)
	if err != nil {
		t.Fatalf("RemoveObject() error = %v", err)
	}
	if len(snap.Project.Objects) != 0 {
		t.Errorf("objects = %d, want 0", len(snap.Project.Objects))
	}
	if _, err := os.Stat(filepath.Join(base, "Orphaned", "Box_002", "a_pm.tif")); err != nil {
		t.Errorf("orphaned file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "Files", "Box_002")); !os.IsNotExist(err) {
		t.Error("object directory should have moved")
	}
}

func TestStore_RemoveObjectKeepsNestedContainers(t *testing.T) {
	box := model.NewObject(model.Container{Type1: "Box", Indicator1: "1"})
	folder := model.NewObject(model.Container{Type1: "Box", Indicator1: "1", Type2: "Folder", Indicator2: "1"})
	store, base := newSavedStore(t, box, folder)
	touch(t, filepath.Join(base, "Files", "Box_001", "a_pm.tif"))
	touch(t, filepath.Join(base, "Files", "Box_001", "Folder_001", "b_pm.tif"))

	if _, err := store.RemoveObject(box.UUID); err != nil {
		t.Fatalf("RemoveObject() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(base, "Orphaned", "Box_001", "a_pm.tif")); err != nil {
		t.Errorf("orphaned file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "Files", "Box_001", "Folder_001", "b_pm.tif")); err != nil {
		t.Errorf("nested object's file moved: %v", err)
	}

	if _, err := store.Rescan("test"); err != nil {
		t.Fatalf("Rescan() error = %v", err)
	}
	snap, _ := store.Snapshot()
	if len(snap.Project.Objects) != 1 {
		t.Fatalf("objects = %d, want 1", len(snap.Project.Objects))
	}
	files := snap.Project.Objects[0].Files
	if len(files) != 1 || files[0].Path != "Box_001/Folder_001/b_pm.tif" {
		t.Errorf("folder files = %+v, want Box_001/Folder_001/b_pm.tif", files)
	}
}

func TestStore_Rescan(t *testing.T) {
	obj := model.NewObject(model.Container{Type1: "Box", Indicator1: "1"})
	obj.Files = []model.File{
		{Path: "Box_001/gone_pm.tif", Purpose: model.PurposePreservation},
		{Path: "Box_001/renamed_ac.jpg", Purpose: model.PurposePreservation},
	}
	store, base := newSavedStore(t, obj)

	dir := filepath.Join(base, "Files", "Box_001")
	touch(t, filepath.Join(dir, "renamed_ac.jpg"))
	touch(t, filepath.Join(dir, "new_mm.tif"))
	touch(t, filepath.Join(dir, ".DS_Store"))
	touch(t, filepath.Join(dir, "Folder_001", "nested_pm.tif"))

	result, err := store.Rescan("test")
	if err != nil {
		t.Fatalf("Rescan() error = %v", err)
	}
	if result.Added != 1 || result.Removed != 1 || result.Changed != 1 {
		t.Errorf("Rescan() = %+v, want 1 added, 1 removed, 1 changed", result)
	}

	snap, _ := store.Snapshot()
	files := snap.Project.Objects[0].Files
	want := []model.File{
		{Path: "Box_001/new_mm.tif", Purpose: model.PurposeModifiedMaster},
		{Path: "Box_001/renamed_ac.jpg", Purpose: model.PurposeAccess},
	}
	if len(files) != len(want) {
		t.Fatalf("files = %+v, want %+v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("file %d = %+v, want %+v", i, files[i], want[i])
		}
	}
}

func TestStore_RescanUnsaved(t *testing.T) {
	store := NewStore()
	store.Replace(model.Project{}, "")
	if _, err := store.Rescan("test"); err == nil {
		t.Error("Rescan() of an unsaved project should fail")
	}
}
