package loader

import (
	"bytes"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"xds/internal/common"
	"xds/internal/diagnostic"
	"xds/internal/log"
	"xds/internal/normalize"
)

// Extensions lists the file extensions read from directories.
var Extensions = []string{".yaml", ".yml", ".json"}

// Loader turns a source into mappings or ordered YAML documents.
type Loader interface {
	// Load returns the mapping a source denotes.
	Load(src string) (map[string]any, error)
	// Documents returns every YAML document of a source in order.
	Documents(src string) ([]Document, error)
}

// Document is one YAML document and the file it came from. Path is empty
// for buffers.
type Document struct {
	Path string
	Node *yaml.Node
}

// FileLoader reads files, directories, URL queries and in-memory YAML or
// JSON.
type FileLoader struct {
	Log log.Logger
}

// New returns a FileLoader logging to l.
func New(l log.Logger) *FileLoader {
	return &FileLoader{Log: l}
}

type sourceKind int

const (
	sourceBuffer sourceKind = iota
	sourceFile
	sourceDir
	sourceQuery
)

func classify(src string) (sourceKind, string) {
	path := strings.TrimPrefix(src, "file://")

	if fi, err := os.Stat(path); err == nil {
		if fi.IsDir() {
			return sourceDir, path
		}

		return sourceFile, path
	}

	trimmed := strings.TrimSpace(src)

	switch {
	case strings.ContainsAny(trimmed, "\n{[") || strings.Contains(trimmed, ": "):
		return sourceBuffer, src
	case strings.Contains(trimmed, "="):
		q := trimmed
		if u, err := url.Parse(trimmed); err == nil && u.RawQuery != "" {
			q = u.RawQuery
		}

		return sourceQuery, strings.TrimPrefix(q, "?")
	case slices.Contains(Extensions, filepath.Ext(path)):
		return sourceFile, path
	}

	return sourceBuffer, src
}

// Load dispatches on the kind of source:
//
//   - an existing file yields its first document
//   - a directory yields {by: dir, dir: <path>, contents: [...]}, one entry
//     per file tagged with its path, not recursing
//   - a query (a.b=x&a.c=y,z) yields the nested mapping of its dotted keys
//   - anything else is parsed as YAML or JSON text
func (l *FileLoader) Load(src string) (map[string]any, error) {
	kind, s := classify(src)

	switch kind {
	case sourceDir:
		return l.loadDir(s)
	case sourceQuery:
		return ParseQuery(s)
	case sourceFile:
		data, err := os.ReadFile(s)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", s)
		}

		return decodeMap(s, data)
	}

	return decodeMap("", []byte(s))
}

func (l *FileLoader) loadDir(dir string) (map[string]any, error) {
	files, err := listDir(dir)
	if err != nil {
		return nil, err
	}

	contents := make([]any, 0, len(files))

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}

		m, err := decodeMap(path, data)
		if err != nil {
			return nil, err
		}

		m["path"] = path
		contents = append(contents, m)
	}

	log.Or(l.Log).Debug("loaded directory", "dir", dir, "files", len(contents))

	return map[string]any{"by": "dir", "dir": dir, "contents": contents}, nil
}

// Documents returns every document of a file, of each file of a directory
// in name order, or of a YAML buffer. Empty documents are skipped.
func (l *FileLoader) Documents(src string) ([]Document, error) {
	kind, s := classify(src)

	switch kind {
	case sourceQuery:
		return nil, diagnostic.Errorf(diagnostic.CodeParse, "", "", "query %q has no documents", s)
	case sourceBuffer:
		return decodeDocs("", []byte(s))
	}

	files := []string{s}

	if kind == sourceDir {
		var err error
		if files, err = listDir(s); err != nil {
			return nil, err
		}
	}

	var docs []Document

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}

		d, err := decodeDocs(path, data)
		if err != nil {
			return nil, err
		}

		docs = append(docs, d...)
	}

	log.Or(l.Log).Debug("read documents", "src", s, "documents", len(docs))

	return docs, nil
}

func listDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read directory %s", dir)
	}

	var files []string

	for _, e := range entries {
		if e.IsDir() || !slices.Contains(Extensions, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}

		files = append(files, filepath.Join(dir, e.Name()))
	}

	slices.Sort(files)

	return files, nil
}

func decodeDocs(path string, data []byte) ([]Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var docs []Document

	for {
		var n yaml.Node

		err := dec.Decode(&n)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}

		if err != nil {
			return nil, parseError(path, err)
		}

		if len(n.Content) == 0 || n.Content[0].Tag == "!!null" {
			continue
		}

		docs = append(docs, Document{Path: path, Node: n.Content[0]})
	}
}

func decodeMap(path string, data []byte) (map[string]any, error) {
	docs, err := decodeDocs(path, data)
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return map[string]any{}, nil
	}

	var m map[string]any
	if err := docs[0].Node.Decode(&m); err != nil {
		return nil, parseError(path, err)
	}

	if m == nil {
		m = map[string]any{}
	}

	return m, nil
}

func parseError(path string, err error) error {
	return &diagnostic.Error{Code: diagnostic.CodeParse, Field: path, Msg: "malformed document", Err: err}
}

// ParseQuery decodes a URL query into a nested mapping. Dotted keys nest,
// comma separated and repeated values become lists.
func ParseQuery(q string) (map[string]any, error) {
	values, err := url.ParseQuery(q)
	if err != nil {
		return nil, &diagnostic.Error{Code: diagnostic.CodeParse, Msg: "malformed query", Err: err}
	}

	flat := make(map[string]any, len(values))

	for k, vs := range values {
		var items []string
		for _, v := range vs {
			items = append(items, common.SplitList(v)...)
		}

		switch len(items) {
		case 0:
			flat[k] = ""
		case 1:
			flat[k] = items[0]
		default:
			list := make([]any, len(items))
			for i, it := range items {
				list[i] = it
			}

			flat[k] = list
		}
	}

	nested, conflicts := normalize.Unflatten(flat)
	if len(conflicts) > 0 {
		return nil, diagnostic.Errorf(diagnostic.CodeParse, "", common.SortedKeys(conflicts)[0],
			"query key is both a value and a parent")
	}

	return nested, nil
}
