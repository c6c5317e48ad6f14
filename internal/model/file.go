package model

import (
	"path"
	"sort"
	"strings"
)

// Purpose tags what a file is used for in the export packages.
type Purpose string

const (
	PurposePreservation            Purpose = "preservation"
	PurposeAccess                  Purpose = "access"
	PurposeModifiedMaster          Purpose = "modified-master"
	PurposeSubmissionDocumentation Purpose = "sub-documents"
)

// File is a path relative to the project's Files directory plus its purpose.
type File struct {
	Path    string  `json:"path"`
	Purpose Purpose `json:"purpose"`
}

// purposeSuffixes maps the two-letter filename suffix convention to a purpose.
var purposeSuffixes = map[string]Purpose{
	"_pm": PurposePreservation,
	"_ac": PurposeAccess,
	"_mm": PurposeModifiedMaster,
}

// PurposeFromPath infers the purpose from the "_pm", "_ac" or "_mm" suffix
// before the extension. Anything else is submission documentation.
func PurposeFromPath(p string) Purpose {
	base := path.Base(filepathToSlash(p))
	stem := strings.TrimSuffix(base, path.Ext(base))
	if len(stem) >= 3 {
		if purpose, ok := purposeSuffixes[strings.ToLower(stem[len(stem)-3:])]; ok {
			return purpose
		}
	}
	return PurposeSubmissionDocumentation
}

// NewFile builds a File whose purpose is derived from its name.
func NewFile(p string) File {
	p = filepathToSlash(p)
	return File{Path: p, Purpose: PurposeFromPath(p)}
}

// Name returns the final path element.
func (f File) Name() string {
	return path.Base(f.Path)
}

// Ext returns the lowercased extension including the dot.
func (f File) Ext() string {
	return strings.ToLower(path.Ext(f.Path))
}

// SortFiles returns a copy of files ordered by path.
func SortFiles(files []File) []File {
	out := make([]File, len(files))
	copy(out, files)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// FilesWithPurpose returns the files of the given purpose, ordered by path.
func FilesWithPurpose(files []File, purpose Purpose) []File {
	var out []File
	for _, f := range SortFiles(files) {
		if f.Purpose == purpose {
			out = append(out, f)
		}
	}
	return out
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
