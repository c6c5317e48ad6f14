package core

// store.go holds the open project as a sequence of immutable snapshots.
//
// Every command copies the current project, applies its change and
// publishes a new snapshot with an incremented version. Readers get the
// snapshot by value and must treat its slices and maps as read-only.
// Subscribers receive each new snapshot on a buffered channel; a slow
// subscriber misses intermediate versions rather than blocking commands.

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/JonMunkholm/carpenters/internal/metrics"
	"github.com/JonMunkholm/carpenters/internal/model"
)

// ErrObjectNotFound is returned when no object has the requested UUID.
var ErrObjectNotFound = errors.New("object not found")

// Snapshot is an immutable view of the open project.
type Snapshot struct {
	Project model.Project
	Path    string // project document path, "" until saved
	Version int64
}

// BasePath returns the project root, the directory holding the document.
func (s Snapshot) BasePath() string {
	if s.Path == "" {
		return ""
	}
	return filepath.Dir(s.Path)
}

// ProjectFile returns the document file name.
func (s Snapshot) ProjectFile() string {
	if s.Path == "" {
		return ""
	}
	return filepath.Base(s.Path)
}

// RescanResult summarizes a Files directory rescan.
type RescanResult struct {
	Objects int `json:"objects"`
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Changed int `json:"changed"`
}

// Store is the state container for the open project.
type Store struct {
	mu      sync.RWMutex
	current *Snapshot

	subMu       sync.Mutex
	subscribers map[int]chan Snapshot
	nextSub     int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{subscribers: make(map[int]chan Snapshot)}
}

// Snapshot returns the current snapshot. ok is false when no project is
// open.
func (s *Store) Snapshot() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Snapshot{}, false
	}
	return *s.current, true
}

// Subscribe returns a channel receiving every new snapshot and a function
// that unsubscribes and closes it.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 4)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) publish(snap Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Subscriber is slow, skip this version
		}
	}
}

// commit installs a new project under the write lock and notifies
// subscribers.
func (s *Store) commit(p model.Project, docPath string) Snapshot {
	var version int64 = 1
	if s.current != nil {
		version = s.current.Version + 1
	}
	snap := Snapshot{Project: p, Path: docPath, Version: version}
	s.current = &snap
	s.publish(snap)
	return snap
}

// update applies fn to a deep copy of the current project.
func (s *Store) update(fn func(p *model.Project) error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Snapshot{}, ErrNoProject
	}
	next := s.current.Project.Clone()
	if err := fn(&next); err != nil {
		return Snapshot{}, err
	}
	return s.commit(next, s.current.Path), nil
}

// Replace installs p as the open project.
func (s *Store) Replace(p model.Project, docPath string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(p.Clone(), docPath)
}

// Open loads a project document.
func (s *Store) Open(docPath string) (Snapshot, error) {
	p, err := model.Load(docPath)
	if err != nil {
		return Snapshot{}, err
	}
	abs, err := filepath.Abs(docPath)
	if err != nil {
		abs = docPath
	}
	return s.Replace(*p, abs), nil
}

// Save writes the current project to its document path.
func (s *Store) Save() error {
	snap, ok := s.Snapshot()
	if !ok {
		return ErrNoProject
	}
	if snap.Path == "" {
		return fmt.Errorf("save project: project has not been saved to a document path")
	}
	return model.Save(snap.Path, &snap.Project)
}

// SaveAs writes the current project to docPath and makes it the document
// path.
func (s *Store) SaveAs(docPath string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Snapshot{}, ErrNoProject
	}
	if err := model.Save(docPath, &s.current.Project); err != nil {
		return Snapshot{}, err
	}
	return s.commit(s.current.Project, docPath), nil
}

// AddObject appends obj to the project.
func (s *Store) AddObject(obj model.Object) (Snapshot, error) {
	return s.update(func(p *model.Project) error {
		if p.IndexOf(obj.UUID) >= 0 {
			return fmt.Errorf("add object: duplicate uuid %s", obj.UUID)
		}
		p.Objects = append(p.Objects, obj.Clone())
		return nil
	})
}

// UpdateMetadata merges values into an object's metadata. An empty value
// removes the key.
func (s *Store) UpdateMetadata(uuid string, values map[string]string) (Snapshot, error) {
	return s.update(func(p *model.Project) error {
		i := p.IndexOf(uuid)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, uuid)
		}
		obj := &p.Objects[i]
		if obj.Metadata == nil {
			obj.Metadata = make(map[string]string)
		}
		for k, v := range values {
			if v == "" {
				delete(obj.Metadata, k)
				continue
			}
			obj.Metadata[k] = v
		}
		if title, ok := values[model.KeyTitle]; ok {
			obj.Title = title
		}
		return nil
	})
}

// SetArks stores minted identifiers on an object. Empty arguments leave the
// existing value in place.
func (s *Store) SetArks(uuid, pmArk, doArk string) (Snapshot, error) {
	return s.update(func(p *model.Project) error {
		i := p.IndexOf(uuid)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, uuid)
		}
		if pmArk != "" {
			p.Objects[i].PMArk = pmArk
		}
		if doArk != "" {
			p.Objects[i].DOArk = doArk
		}
		return nil
	})
}

// RemoveObject drops an object from the project and moves its files into
// Orphaned/, keeping the container path. Objects are never deleted
// from disk.
func (s *Store) RemoveObject(uuid string) (Snapshot, error) {
	return s.update(func(p *model.Project) error {
		i := p.IndexOf(uuid)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, uuid)
		}
		if s.current.Path != "" {
			if err := orphan(s.current.BasePath(), p.Objects[i]); err != nil {
				return fmt.Errorf("orphan object: %w", err)
			}
		}
		p.Objects = append(p.Objects[:i], p.Objects[i+1:]...)
		return nil
	})
}

// orphan moves the files that belong to obj into Orphaned/. Only files
// directly inside the object's directory move: subdirectories hold the
// files of nested containers, which are other objects.
func orphan(base string, obj model.Object) error {
	// An object without a container has no directory of its own.
	if obj.Container().IsEmpty() {
		return nil
	}
	src := model.ObjectDir(base, obj)
	names, err := objectFileNames(src)
	if err != nil || len(names) == 0 {
		return err
	}

	rel := filepath.FromSlash(strings.TrimSuffix(model.ContainerToPath(obj.Container()), "/"))
	dest := filepath.Join(model.OrphanedDir(base), rel)
	for _, name := range names {
		if _, err := os.Stat(filepath.Join(dest, name)); err == nil {
			dest = dest + "-" + obj.UUID
			break
		}
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for _, name := range names {
		if err := os.Rename(filepath.Join(src, name), filepath.Join(dest, name)); err != nil {
			return err
		}
	}
	// Fails while nested containers or hidden files remain.
	_ = os.Remove(src)
	return nil
}

// Rescan rebuilds every object's file list from its directory under Files/.
// The filesystem wins: files on disk are added with the purpose implied by
// their name, and listed files that no longer exist are dropped.
func (s *Store) Rescan(trigger string) (RescanResult, error) {
	var result RescanResult
	_, err := s.update(func(p *model.Project) error {
		base := s.current.BasePath()
		if base == "" {
			return fmt.Errorf("rescan: project has not been saved")
		}
		for i := range p.Objects {
			files, err := scanObjectDir(base, p.Objects[i])
			if err != nil {
				return err
			}
			added, removed, changed := diffFiles(p.Objects[i].Files, files)
			result.Added += added
			result.Removed += removed
			result.Changed += changed
			p.Objects[i].Files = files
		}
		result.Objects = len(p.Objects)
		return nil
	})
	if err != nil {
		return RescanResult{}, err
	}
	metrics.Rescans.WithLabelValues(trigger).Inc()
	return result, nil
}

// scanObjectDir lists the regular files directly inside an object's
// directory. Hidden files are ignored.
func scanObjectDir(base string, obj model.Object) ([]model.File, error) {
	names, err := objectFileNames(model.ObjectDir(base, obj))
	if err != nil {
		return nil, err
	}

	prefix := model.ContainerToPath(obj.Container())
	files := make([]model.File, 0, len(names))
	for _, name := range names {
		files = append(files, model.NewFile(prefix+name))
	}
	return model.SortFiles(files), nil
}

// objectFileNames lists the visible regular files directly inside dir. A
// missing directory has no files.
func objectFileNames(dir string) ([]string, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	names, err := doublestar.Glob(os.DirFS(dir), "*", doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	out := names[:0]
	for _, name := range names {
		if !strings.HasPrefix(path.Base(name), ".") {
			out = append(out, name)
		}
	}
	return out, nil
}

func diffFiles(before, after []model.File) (added, removed, changed int) {
	old := make(map[string]model.Purpose, len(before))
	for _, f := range before {
		old[f.Path] = f.Purpose
	}
	for _, f := range after {
		purpose, ok := old[f.Path]
		switch {
		case !ok:
			added++
		case purpose != f.Purpose:
			changed++
		}
		delete(old, f.Path)
	}
	return added, len(old), changed
}
