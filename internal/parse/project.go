package parse

import (
	"regexp"
	"strings"
)

// Project is the structure declared by a .vbp project file.
type Project struct {
	Name       string      `json:"name"`
	Path       string      `json:"path"`
	Forms      []string    `json:"forms"`
	Modules    []Member    `json:"modules"`
	Classes    []Member    `json:"classes"`
	References []COMRef    `json:"references"`
	Objects    []COMObject `json:"objects"`
	Startup    string      `json:"startup,omitempty"`
	Extra      []Attribute `json:"-"`
}

// Member is a named module or class entry.
type Member struct {
	Name string `json:"name"`
	File string `json:"file"`
}

// COMRef is a type-library reference.
type COMRef struct {
	GUID     string `json:"guid"`
	Version  string `json:"version"`
	Location string `json:"location"`
}

// COMObject is an ActiveX control reference.
type COMObject struct {
	GUID    string `json:"guid"`
	Version string `json:"version"`
	Name    string `json:"name"`
}

// Attribute is any other key=value line.
type Attribute struct {
	Key   string
	Value string
}

var (
	vbpFormRe      = regexp.MustCompile(`(?i)^Form=(.+\.frm)`)
	vbpModuleRe    = regexp.MustCompile(`(?i)^Module=(\w+);\s*(.+\.bas)`)
	vbpClassRe     = regexp.MustCompile(`(?i)^Class=(\w+);\s*(.+\.cls)`)
	vbpReferenceRe = regexp.MustCompile(`^Reference=\*\\G\{([^}]+)\}#([^#]+)#([^#]+)#(.+)`)
	vbpObjectRe    = regexp.MustCompile(`^Object=\{([^}]+)\}#([^;]+);(.+)`)
)

// ParseProject reads a .vbp file.
func ParseProject(name, path, text string) Project {
	p := Project{
		Name:       name,
		Path:       path,
		Forms:      []string{},
		Modules:    []Member{},
		Classes:    []Member{},
		References: []COMRef{},
		Objects:    []COMObject{},
	}
	for _, l := range Lines(text) {
		line := strings.TrimSpace(l.Text)
		switch {
		case vbpFormRe.MatchString(line):
			p.Forms = append(p.Forms, vbpFormRe.FindStringSubmatch(line)[1])
		case vbpModuleRe.MatchString(line):
			m := vbpModuleRe.FindStringSubmatch(line)
			p.Modules = append(p.Modules, Member{Name: m[1], File: m[2]})
		case vbpClassRe.MatchString(line):
			m := vbpClassRe.FindStringSubmatch(line)
			p.Classes = append(p.Classes, Member{Name: m[1], File: m[2]})
		case vbpReferenceRe.MatchString(line):
			m := vbpReferenceRe.FindStringSubmatch(line)
			p.References = append(p.References, COMRef{GUID: m[1], Version: m[2], Location: m[4]})
		case vbpObjectRe.MatchString(line):
			m := vbpObjectRe.FindStringSubmatch(line)
			p.Objects = append(p.Objects, COMObject{GUID: m[1], Version: m[2], Name: strings.TrimSpace(m[3])})
		default:
			key, value, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			value = strings.Trim(value, `"`)
			if strings.EqualFold(key, "Startup") {
				p.Startup = value
			}
			p.Extra = append(p.Extra, Attribute{Key: key, Value: value})
		}
	}
	return p
}
