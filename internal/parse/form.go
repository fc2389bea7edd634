package parse

import (
	"regexp"
	"strings"
)

// Control is a `Begin Library.Type Name` block in a form or user control.
type Control struct {
	Library string `json:"library"`
	Type    string `json:"type"`
	Name    string `json:"name"`
}

// Property is a key designer property assignment.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Event is an event-handler routine split into control and event name.
type Event struct {
	Visibility string `json:"visibility"`
	Control    string `json:"control"`
	Event      string `json:"event"`
	Params     string `json:"params"`
	Logic      string `json:"logic"`
}

var controlRe = regexp.MustCompile(`(?i)^\s*Begin\s+(\w+)\.(\w+)\s+(\w+)`)

// Controls lists every control block, including the form itself.
func Controls(text string) []Control {
	var out []Control
	for _, l := range Lines(text) {
		if l.Comment {
			continue
		}
		if m := controlRe.FindStringSubmatch(l.Text); m != nil {
			out = append(out, Control{Library: m[1], Type: m[2], Name: m[3]})
		}
	}
	return out
}

// keyProperties are the designer properties carried into reports.
var keyProperties = map[string]struct{}{
	"Caption": {}, "Visible": {}, "Enabled": {}, "Top": {},
	"Left": {}, "Width": {}, "Height": {}, "Text": {},
}

// Properties returns key designer property assignments in file order.
func Properties(text string) []Property {
	var out []Property
	for _, l := range Lines(text) {
		if l.Comment {
			continue
		}
		line := strings.TrimSpace(l.Text)
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if _, key := keyProperties[name]; key {
			out = append(out, Property{Name: name, Value: strings.TrimSpace(value)})
		}
	}
	return out
}

// SplitEvent splits a handler name such as cmdSave_Click at its last
// underscore. ok is false when the name has no underscore.
func SplitEvent(name string) (control, event string, ok bool) {
	i := strings.LastIndex(name, "_")
	if i <= 0 || i == len(name)-1 {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}
