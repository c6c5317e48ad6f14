// Package vocabulary parses the controlled vocabulary document and builds the
// allowed-value ranges used by metadata validation.
//
// The document is a turtle-like RDF serialization. Only three things are
// read from each statement: the subject id, its preferred label and its
// narrower terms:
//
//	:c0042 a skos:Concept ;
//	    skos:prefLabel "Photographs"@en ;
//	    skos:narrower :c0043, :c0044 .
//
// Each statement begins with its subject at the start of a line. Parsing
// never fails: a statement that cannot be read, including one missing its
// " ." terminator, is skipped without touching the statements around it.
package vocabulary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/JonMunkholm/carpenters/internal/textio"
)

// Node is a vocabulary concept.
type Node struct {
	ID        string   `json:"id"`
	PrefLabel string   `json:"prefLabel"`
	Narrower  []string `json:"narrower,omitempty"`
}

var (
	subjectRe   = regexp.MustCompile(`(?m)^:`)
	statementRe = regexp.MustCompile(`(?s)\A:([^\s;,]+)\s(.*?)\s\.[ \t]*(?:\r?\n|\z)`)
	prefLabelRe = regexp.MustCompile(`prefLabel\s+"((?:[^"\\]|\\.)*)"`)
	narrowerRe  = regexp.MustCompile(`narrower\s+([^;]*)`)
	idRe        = regexp.MustCompile(`(?:^|[\s,]):([^\s,;]+)`)
)

// Parse extracts nodes from a vocabulary document. Statements without a
// preferred label are skipped.
func Parse(text string) []Node {
	text = strings.TrimPrefix(text, "\ufeff")

	var nodes []Node
	for _, chunk := range statements(text) {
		m := statementRe.FindStringSubmatch(chunk)
		if m == nil {
			continue
		}
		id, body := m[1], m[2]

		label := prefLabelRe.FindStringSubmatch(body)
		if label == nil {
			continue
		}

		node := Node{
			ID:        id,
			PrefLabel: unescape(label[1]),
		}
		if narrow := narrowerRe.FindStringSubmatch(body); narrow != nil {
			for _, ref := range idRe.FindAllStringSubmatch(narrow[1], -1) {
				node.Narrower = append(node.Narrower, ref[1])
			}
		}
		nodes = append(nodes, node)
	}
	return nodes
}

// statements splits text at each line that starts a new subject. Text
// before the first subject (prefixes, comments) is dropped.
func statements(text string) []string {
	starts := subjectRe.FindAllStringIndex(text, -1)
	out := make([]string, 0, len(starts))
	for i, loc := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		out = append(out, text[loc[0]:end])
	}
	return out
}

// ParseReader reads a whole document and parses it. Invalid UTF-8 is
// replaced rather than rejected.
func ParseReader(r io.Reader) ([]Node, error) {
	data, err := io.ReadAll(textio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	return Parse(string(data)), nil
}

// LoadFile reads and parses a vocabulary document from disk.
func LoadFile(path string) ([]Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	defer f.Close()
	return ParseReader(f)
}

// Fetch downloads and parses a vocabulary document. A nil client uses
// http.DefaultClient.
func Fetch(ctx context.Context, client *http.Client, url string) ([]Node, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch vocabulary: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch vocabulary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch vocabulary: unexpected status %s", resp.Status)
	}
	return ParseReader(resp.Body)
}

func unescape(s string) string {
	return strings.NewReplacer(`\"`, `"`, `\\`, `\`).Replace(s)
}
