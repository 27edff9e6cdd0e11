// Package loader reads specification and configuration sources.
//
// A source is a file, a directory of .yaml/.yml/.json files, a URL query
// string or literal YAML/JSON text. Load yields a single mapping; Documents
// yields the ordered YAML documents the schema builder decodes.
package loader
