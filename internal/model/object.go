package model

import (
	"strings"

	"github.com/google/uuid"
)

// Well-known metadata keys.
const (
	KeyTitle    = "dcterms.title"
	KeyDate     = "dc.date"
	KeyRights   = "dcterms.rights"
	KeyRelation = "dcterms.relation"
)

// Object is a single archival digital object.
type Object struct {
	UUID            string            `json:"uuid"`
	Artificial      bool              `json:"artificial"`
	Title           string            `json:"title"`
	Dates           []string          `json:"dates"`
	Containers      []Container       `json:"containers"`
	Level           string            `json:"level,omitempty"`
	URI             string            `json:"uri,omitempty"`
	ParentURI       string            `json:"parent_uri,omitempty"`
	ProductionNotes string            `json:"productionNotes"`
	PMArk           string            `json:"pm_ark"`
	DOArk           string            `json:"do_ark"`
	Metadata        map[string]string `json:"metadata"`
	Files           []File            `json:"files"`
}

// ArchivalChild is the subset of an ArchivesSpace archival object record
// needed to create an Object.
type ArchivalChild struct {
	Title      string
	Dates      []string
	Level      string
	URI        string
	ParentURI  string
	Containers []Container
}

// NewObject creates an object with a fresh UUID.
func NewObject(containers ...Container) Object {
	if len(containers) == 0 {
		containers = []Container{{}}
	}
	return Object{
		UUID:       uuid.NewString(),
		Dates:      []string{},
		Containers: containers,
		Metadata:   map[string]string{},
		Files:      []File{},
	}
}

// NewArchivalObject creates an object from an archival child record.
// Artificial objects stand in for child items that are not described on
// their own.
func NewArchivalObject(child ArchivalChild, artificial bool) Object {
	obj := NewObject(child.Containers...)
	obj.Artificial = artificial
	obj.Title = child.Title
	obj.Dates = append([]string{}, child.Dates...)
	obj.Level = child.Level
	obj.URI = child.URI
	obj.ParentURI = child.ParentURI
	if child.Title != "" {
		obj.Metadata[KeyTitle] = child.Title
	}
	if len(child.Dates) > 0 {
		obj.Metadata[KeyDate] = strings.Join(child.Dates, "; ")
	}
	return obj
}

// Container returns the primary container.
func (o Object) Container() Container {
	if len(o.Containers) == 0 {
		return Container{}
	}
	return o.Containers[0]
}

// Value returns the metadata value for key, or "" when absent.
func (o Object) Value(key string) string {
	if o.Metadata == nil {
		return ""
	}
	return o.Metadata[key]
}

// HasFileWithPurpose reports whether any file carries the given purpose.
func (o Object) HasFileWithPurpose(p Purpose) bool {
	for _, f := range o.Files {
		if f.Purpose == p {
			return true
		}
	}
	return false
}

// Clone returns a structural deep copy.
func (o Object) Clone() Object {
	c := o
	c.Dates = append([]string(nil), o.Dates...)
	c.Containers = append([]Container(nil), o.Containers...)
	c.Files = append([]File(nil), o.Files...)
	if o.Metadata != nil {
		c.Metadata = make(map[string]string, len(o.Metadata))
		for k, v := range o.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}
