package model

import (
	"fmt"
	"strings"
)

// Category is the closed set of buckets a file can be classified into.
type Category int

const (
	Unknown Category = iota
	Project
	Forms
	Modules
	Classes
	Controls
	Designers
	Resources
	Dependencies
	Assets
	Help
	Documentation
	Executables
	Temporary
)

// Categories lists every category in report order, Unknown last.
var Categories = []Category{
	Project, Forms, Modules, Classes, Controls, Designers, Resources,
	Dependencies, Assets, Help, Documentation, Executables, Temporary, Unknown,
}

type categoryInfo struct {
	name        string
	description string
	icon        string
	extensions  []string
}

var categoryTable = map[Category]categoryInfo{
	Project:       {"project", "Project and workspace files", "📦", []string{".vbp", ".vbg", ".vbw"}},
	Forms:         {"forms", "User interface forms and binary resources", "🖼️", []string{".frm", ".frx"}},
	Modules:       {"modules", "Standard code modules with functions and subroutines", "📄", []string{".bas"}},
	Classes:       {"classes", "Object-oriented class modules", "🔷", []string{".cls"}},
	Controls:      {"controls", "User controls and their binary resources", "🎛️", []string{".ctl", ".ctx"}},
	Designers:     {"designers", "Data reports, designers and property pages", "📊", []string{".dsr", ".dsx", ".pag", ".pgx"}},
	Resources:     {"resources", "Resource files and Crystal Reports", "📁", []string{".res", ".rpt"}},
	Dependencies:  {"dependencies", "ActiveX controls, DLLs and type libraries", "🔌", []string{".ocx", ".dll", ".tlb", ".oca", ".dca"}},
	Assets:        {"assets", "Image and icon assets", "🎨", []string{".ico", ".gif", ".jpg", ".jpeg", ".png", ".bmp", ".cur"}},
	Help:          {"help", "Help and documentation files", "❓", []string{".chm", ".hlp"}},
	Documentation: {"documentation", "Text documentation and logs", "📝", []string{".txt", ".log", ".doc", ".rtf", ".readme"}},
	Executables:   {"executables", "Compiled executables", "⚙️", []string{".exe"}},
	Temporary:     {"temporary", "Temporary and source control files", "🗑️", []string{".tmp", ".scc"}},
	Unknown:       {"unknown", "Unknown files", "❓", nil},
}

var extensionCategories = func() map[string]Category {
	m := make(map[string]Category)
	for c, info := range categoryTable {
		for _, ext := range info.extensions {
			m[ext] = c
		}
	}
	return m
}()

// CategoryForExtension classifies an extension such as ".FRM" or "bas".
// Matching is case-insensitive; anything unlisted is Unknown.
func CategoryForExtension(ext string) Category {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if c, ok := extensionCategories[ext]; ok {
		return c
	}
	return Unknown
}

func (c Category) String() string {
	if info, ok := categoryTable[c]; ok {
		return info.name
	}
	return "unknown"
}

// Description returns the human-readable description of the category.
func (c Category) Description() string { return categoryTable[c].description }

// Icon returns the emoji used for the category in reports.
func (c Category) Icon() string { return categoryTable[c].icon }

// MarshalText encodes the category as its lower-case name.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a category name.
func (c *Category) UnmarshalText(b []byte) error {
	name := string(b)
	for cat, info := range categoryTable {
		if info.name == name {
			*c = cat
			return nil
		}
	}
	return fmt.Errorf("unknown category %q", name)
}
