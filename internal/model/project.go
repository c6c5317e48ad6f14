// Package model defines the project aggregate (objects, containers, files)
// and the pure functions derived from it.
package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ProjectType distinguishes projects sourced from a finding aid from
// free-standing ones.
type ProjectType string

const (
	ProjectArchival    ProjectType = "archival"
	ProjectNonArchival ProjectType = "non-archival"
)

// Extension is the project document extension.
const Extension = ".carp"

// Directory names inside a project root.
const (
	FilesDirName    = "Files"
	OrphanedDirName = "Orphaned"
)

// Project is the aggregate root. Object order is export order.
type Project struct {
	Type            ProjectType `json:"type"`
	ResourceURI     string      `json:"resource"`
	CollectionTitle string      `json:"collectionTitle"`
	CollectionARK   string      `json:"collectionArkUrl"`
	AICCode         string      `json:"aic"`
	Objects         []Object    `json:"objects"`
}

// Clone returns a structural deep copy.
func (p Project) Clone() Project {
	c := p
	c.Objects = make([]Object, len(p.Objects))
	for i, o := range p.Objects {
		c.Objects[i] = o.Clone()
	}
	return c
}

// IndexOf returns the position of the object with the given UUID, or -1.
func (p Project) IndexOf(uuid string) int {
	for i, o := range p.Objects {
		if o.UUID == uuid {
			return i
		}
	}
	return -1
}

// FilesDir returns the Files directory under a project root.
func FilesDir(base string) string {
	return filepath.Join(base, FilesDirName)
}

// OrphanedDir returns the Orphaned directory under a project root.
func OrphanedDir(base string) string {
	return filepath.Join(base, OrphanedDirName)
}

// ObjectDir returns the object's directory, Files/<container path>.
func ObjectDir(base string, o Object) string {
	return filepath.Join(FilesDir(base), filepath.FromSlash(ContainerToPath(o.Container())))
}

// AbsPath resolves a file's path against the project root.
func AbsPath(base string, f File) string {
	return filepath.Join(FilesDir(base), filepath.FromSlash(f.Path))
}

// RenameFilesForContainer returns a copy of o moved to container c. Each
// file path is rebased from the old container path onto the new one.
func RenameFilesForContainer(o Object, c Container) Object {
	out := o.Clone()
	oldPrefix := ContainerToPath(o.Container())
	newPrefix := ContainerToPath(c)
	if len(out.Containers) == 0 {
		out.Containers = []Container{c}
	} else {
		out.Containers[0] = c
	}
	for i, f := range out.Files {
		rel := strings.TrimPrefix(f.Path, oldPrefix)
		if rel == f.Path {
			rel = path.Base(f.Path)
		}
		out.Files[i].Path = newPrefix + rel
	}
	return out
}

// Load reads a project document.
func Load(file string) (*Project, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse project %s: %w", filepath.Base(file), err)
	}
	for i := range p.Objects {
		if p.Objects[i].Metadata == nil {
			p.Objects[i].Metadata = map[string]string{}
		}
	}
	return &p, nil
}

// Save replaces the project document. The write goes to a temporary file
// that is renamed over the target.
func Save(file string, p *Project) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(file), ".carp-*")
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save project: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save project: %w", err)
	}
	if err := os.Rename(tmp.Name(), file); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

// BaseName returns the collection-derived basename of a project document:
// the file name without extension, spaces replaced with underscores.
func BaseName(projectFile string) string {
	base := filepath.Base(projectFile)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(base, " ", "_")
}
