// Package model defines the records shared by every vbscan analyzer.
package model

import (
	"strings"
	"time"
)

// SourceFile is a classified file found during directory traversal.
type SourceFile struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	RelPath  string    `json:"relative_path"`
	Ext      string    `json:"extension"`
	Size     int64     `json:"size_bytes"`
	Category Category  `json:"category"`
	ModTime  time.Time `json:"-"`
}

// Stem returns the file name without its extension.
func (f SourceFile) Stem() string {
	return strings.TrimSuffix(f.Name, f.Name[len(f.Name)-len(f.Ext):])
}

// IsCode reports whether the file carries VB6 source text.
func (f SourceFile) IsCode() bool {
	switch f.Ext {
	case ".frm", ".bas", ".cls", ".ctl":
		return true
	}
	return false
}

// DeclKind is the syntactic kind of a declaration.
type DeclKind string

const (
	Sub      DeclKind = "Sub"
	Function DeclKind = "Function"
	Property DeclKind = "Property"
)

// Visibility is the access level of a declaration. VB6 routines without
// an explicit keyword are Private.
type Visibility string

const (
	Private Visibility = "Private"
	Public  Visibility = "Public"
)

// ParseVisibility maps a captured keyword to a Visibility, defaulting to Private.
func ParseVisibility(s string) Visibility {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public", "global", "friend":
		return Public
	}
	return Private
}

// Declaration is a routine, property or method definition.
type Declaration struct {
	Name       string     `json:"name"`
	Kind       DeclKind   `json:"type"`
	Accessor   string     `json:"accessor,omitempty"` // Get, Let or Set for properties
	Visibility Visibility `json:"visibility"`
	File       string     `json:"file"`
	Line       int        `json:"line"`
	Params     string     `json:"params"`
	Body       string     `json:"logic,omitempty"`
	Event      bool       `json:"-"`
}

// Key returns the case-folded name used for cross-file matching.
func (d Declaration) Key() string {
	return strings.ToLower(d.Name)
}

// RefKind types a reference between artifacts.
type RefKind string

const (
	Calls      RefKind = "calls"
	Shows      RefKind = "shows"
	Loads      RefKind = "loads"
	References RefKind = "references"
)

// Reference is one occurrence of a target name inside a source file.
type Reference struct {
	File   string  `json:"file"`
	Target string  `json:"target"`
	Kind   RefKind `json:"type"`
	Line   int     `json:"line"`
}

// Finding is one rule violation or observation.
type Finding struct {
	RuleID      string   `json:"rule_id"`
	RuleName    string   `json:"rule_name"`
	Severity    Severity `json:"severity"`
	File        string   `json:"file"`
	Line        int      `json:"line"`
	Content     string   `json:"content"`
	Description string   `json:"description"`
	Fix         string   `json:"fix"`
}
