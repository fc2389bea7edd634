// Package source reads legacy source files as text, tolerating the code
// pages VB6 projects were saved in.
package source

import (
	"bytes"
	"os"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode converts raw bytes to text. It tries UTF-8 first, then Windows-1252,
// then ISO-8859-1, and returns the name of the encoding that succeeded.
func Decode(data []byte) (string, string, bool) {
	if utf8.Valid(data) {
		return string(bytes.TrimPrefix(data, utf8BOM)), "utf-8", true
	}
	if !hasUndefinedCP1252(data) {
		if out, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil {
			return string(out), "windows-1252", true
		}
	}
	if out, err := charmap.ISO8859_1.NewDecoder().Bytes(data); err == nil {
		return string(out), "iso-8859-1", true
	}
	return "", "", false
}

// hasUndefinedCP1252 reports bytes with no assigned character in Windows-1252.
func hasUndefinedCP1252(data []byte) bool {
	for _, b := range data {
		switch b {
		case 0x81, 0x8D, 0x8F, 0x90, 0x9D:
			return true
		}
	}
	return false
}

// Reader returns the decoded text of a file. A false result means the file
// could not be read or decoded and should be skipped.
type Reader interface {
	Read(path string) (string, bool)
}

// FileReader reads straight from disk.
type FileReader struct{}

// Read implements Reader.
func (FileReader) Read(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	text, _, ok := Decode(data)
	return text, ok
}

// CachingReader memoizes decoded contents so analyzers that make several
// passes over a tree read each file once per invocation.
type CachingReader struct {
	next  Reader
	cache *lru.Cache[string, entry]
}

type entry struct {
	text string
	ok   bool
}

// NewCachingReader wraps next with an LRU cache of size entries.
func NewCachingReader(next Reader, size int) *CachingReader {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New[string, entry](size)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return &CachingReader{next: next, cache: c}
}

// Read implements Reader.
func (r *CachingReader) Read(path string) (string, bool) {
	if e, ok := r.cache.Get(path); ok {
		return e.text, e.ok
	}
	text, ok := r.next.Read(path)
	r.cache.Add(path, entry{text: text, ok: ok})
	return text, ok
}
