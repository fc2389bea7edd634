// Package parse applies the VB6 pattern battery to decoded source text.
//
// Parsing is line oriented and best effort: a line whose trimmed content
// starts with a single quote is a comment and never produces a match, and a
// pattern that does not capture what it expects simply yields nothing.
package parse

import (
	"regexp"
	"strings"

	"github.com/phobologic/vbscan/internal/model"
)

// Line is one physical source line, numbered from 1.
type Line struct {
	Num     int
	Text    string
	Comment bool
}

// IsComment reports whether a line is a full-line VB comment.
func IsComment(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "'")
}

// Lines splits text into numbered lines, flagging comment lines.
func Lines(text string) []Line {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]Line, len(raw))
	for i, l := range raw {
		l = strings.TrimSuffix(l, "\r")
		out[i] = Line{Num: i + 1, Text: l, Comment: IsComment(l)}
	}
	return out
}

// StripComments blanks every comment line while keeping line numbering intact,
// so multi-line patterns can run over the result.
func StripComments(text string) string {
	lines := Lines(text)
	parts := make([]string, len(lines))
	for i, l := range lines {
		if !l.Comment {
			parts[i] = l.Text
		}
	}
	return strings.Join(parts, "\n")
}

// LineAt returns the 1-based line number of byte offset off in text.
func LineAt(text string, off int) int {
	return strings.Count(text[:off], "\n") + 1
}

// EventSuffixes are the UI events the VB runtime dispatches on its own.
var EventSuffixes = []string{
	"Click", "Load", "Change", "KeyPress", "MouseMove", "DblClick",
	"GotFocus", "LostFocus", "Activate", "Deactivate", "Resize",
	"Unload", "Initialize", "Terminate",
}

// IsEventHandler reports whether name has the <control>_<Event> shape with
// a known event suffix.
func IsEventHandler(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range EventSuffixes {
		suffix := "_" + strings.ToLower(s)
		if strings.HasSuffix(lower, suffix) && len(lower) > len(suffix) {
			return true
		}
	}
	return false
}

var (
	routineRe  = regexp.MustCompile(`(?i)^\s*(?:(Public|Private|Friend|Global)\s+)?(?:Static\s+)?(Sub|Function)\s+(\w+)\s*\((.*)\)`)
	propertyRe = regexp.MustCompile(`(?i)^\s*(?:(Public|Private|Friend)\s+)?(?:Static\s+)?Property\s+(Get|Let|Set)\s+(\w+)\s*\((.*)\)`)
	endBlockRe = regexp.MustCompile(`(?i)^\s*End\s+(Sub|Function|Property)\b`)
)

// Declarations extracts routine and property definitions from a file, with
// the body text between the header and its End statement.
func Declarations(file, text string) []model.Declaration {
	lines := Lines(text)
	var decls []model.Declaration

	for i, l := range lines {
		if l.Comment {
			continue
		}
		d, ok := parseHeader(l.Text)
		if !ok {
			continue
		}
		d.File = file
		d.Line = l.Num
		d.Body = captureBody(lines[i+1:], d.Kind)
		d.Event = IsEventHandler(d.Name)
		decls = append(decls, d)
	}
	return decls
}

func parseHeader(line string) (model.Declaration, bool) {
	if m := routineRe.FindStringSubmatch(line); m != nil {
		kind := model.Sub
		if strings.EqualFold(m[2], "Function") {
			kind = model.Function
		}
		return model.Declaration{
			Name:       m[3],
			Kind:       kind,
			Visibility: model.ParseVisibility(m[1]),
			Params:     strings.TrimSpace(m[4]),
		}, true
	}
	if m := propertyRe.FindStringSubmatch(line); m != nil {
		return model.Declaration{
			Name:       m[3],
			Kind:       model.Property,
			Accessor:   titleCase(m[2]),
			Visibility: model.ParseVisibility(m[1]),
			Params:     strings.TrimSpace(m[4]),
		}, true
	}
	return model.Declaration{}, false
}

// captureBody collects lines up to the End statement that closes kind.
func captureBody(lines []Line, kind model.DeclKind) string {
	var body []string
	for _, l := range lines {
		if m := endBlockRe.FindStringSubmatch(l.Text); m != nil && strings.EqualFold(m[1], string(kind)) {
			break
		}
		body = append(body, l.Text)
	}
	return strings.TrimSpace(strings.Join(body, "\n"))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// Call is one occurrence of a routine name being invoked.
type Call struct {
	Name string
	Line int
}

var (
	callStmtRe  = regexp.MustCompile(`(?i)\bCall\s+(\w+)`)
	funcCallRe  = regexp.MustCompile(`\b(\w+)\s*\(`)
	bareStmtRe  = regexp.MustCompile(`^\s*(?:\w+\.)?(\w+)(?:\s+([^=\s].*))?$`)
	declareLine = regexp.MustCompile(`(?i)^\s*(?:(?:Public|Private)\s+)?Declare\s+`)
)

// statementKeywords start lines that are not routine invocations.
var statementKeywords = map[string]struct{}{
	"attribute": {}, "begin": {}, "beginproperty": {}, "call": {}, "case": {},
	"close": {}, "const": {}, "debug": {}, "dim": {}, "do": {}, "doevents": {},
	"else": {}, "elseif": {}, "end": {}, "endproperty": {}, "enum": {},
	"erase": {}, "error": {}, "event": {}, "exit": {}, "for": {}, "friend": {},
	"function": {}, "get": {}, "global": {}, "gosub": {}, "goto": {}, "if": {},
	"implements": {}, "input": {}, "kill": {}, "let": {}, "line": {}, "load": {},
	"lock": {}, "loop": {}, "lset": {}, "mid": {}, "mkdir": {}, "name": {},
	"next": {}, "object": {}, "on": {}, "open": {}, "option": {}, "print": {},
	"private": {}, "property": {}, "public": {}, "put": {}, "raiseevent": {},
	"randomize": {}, "redim": {}, "rem": {}, "reset": {}, "resume": {},
	"return": {}, "rmdir": {}, "rset": {}, "seek": {}, "select": {}, "set": {},
	"static": {}, "stop": {}, "sub": {}, "type": {}, "unload": {}, "unlock": {},
	"version": {}, "wend": {}, "while": {}, "width": {}, "with": {}, "write": {},
	"beep": {}, "declare": {}, "defint": {}, "deflng": {}, "defstr": {},
}

// Calls finds routine invocations: `Call X`, `X(...)` and statement calls
// such as `X arg1, arg2`. Declaration headers are not calls. A token that
// several patterns agree on is reported once.
func Calls(text string) []Call {
	var calls []Call
	for _, l := range Lines(text) {
		if l.Comment {
			continue
		}
		if _, ok := parseHeader(l.Text); ok || declareLine.MatchString(l.Text) {
			continue
		}
		code := stripStrings(l.Text)
		seen := make(map[int]struct{})
		add := func(start, end int) {
			if _, dup := seen[start]; dup {
				return
			}
			seen[start] = struct{}{}
			calls = append(calls, Call{Name: code[start:end], Line: l.Num})
		}
		for _, m := range callStmtRe.FindAllStringSubmatchIndex(code, -1) {
			add(m[2], m[3])
		}
		for _, m := range funcCallRe.FindAllStringSubmatchIndex(code, -1) {
			add(m[2], m[3])
		}
		if m := bareStmtRe.FindStringSubmatchIndex(code); m != nil {
			name := strings.ToLower(code[m[2]:m[3]])
			if _, kw := statementKeywords[name]; !kw && !strings.HasSuffix(strings.TrimSpace(code), ":") {
				add(m[2], m[3])
			}
		}
	}
	return calls
}

// stripStrings replaces the contents of string literals and trailing
// comments with spaces so names inside them are not matched. Offsets are
// preserved.
func stripStrings(line string) string {
	b := []byte(line)
	in := false
	for i := 0; i < len(b); i++ {
		switch {
		case b[i] == '"':
			in = !in
		case in:
			b[i] = ' '
		case b[i] == '\'':
			for j := i; j < len(b); j++ {
				b[j] = ' '
			}
			return string(b)
		}
	}
	return string(b)
}

var (
	qualifiedRe = regexp.MustCompile(`\b(\w+)\.(\w+)`)
	showRe      = regexp.MustCompile(`(?i)\b(\w+)\.Show\b`)
	loadRe      = regexp.MustCompile(`(?i)\bLoad\s+(\w+)`)
	newRe       = regexp.MustCompile(`(?i)\bNew\s+(\w+)`)
)

// References finds artifact-level references: qualified member access
// (`modUtil.Helper`, `frmMain.Caption`), `X.Show`, `Load X` and `New X`.
// Targets are lower-cased. The file field is left for the caller.
func References(text string) []model.Reference {
	var refs []model.Reference
	for _, l := range Lines(text) {
		if l.Comment {
			continue
		}
		code := stripStrings(l.Text)
		for _, m := range qualifiedRe.FindAllStringSubmatch(code, -1) {
			refs = append(refs, model.Reference{Target: strings.ToLower(m[1]), Kind: model.References, Line: l.Num})
		}
		for _, m := range showRe.FindAllStringSubmatch(code, -1) {
			refs = append(refs, model.Reference{Target: strings.ToLower(m[1]), Kind: model.Shows, Line: l.Num})
		}
		for _, m := range loadRe.FindAllStringSubmatch(code, -1) {
			refs = append(refs, model.Reference{Target: strings.ToLower(m[1]), Kind: model.Loads, Line: l.Num})
		}
		for _, m := range newRe.FindAllStringSubmatch(code, -1) {
			refs = append(refs, model.Reference{Target: strings.ToLower(m[1]), Kind: model.References, Line: l.Num})
		}
	}
	return refs
}

// Global is a module-level variable or constant declaration.
type Global struct {
	Visibility string `json:"visibility"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Source     string `json:"source"`
	Line       int    `json:"-"`
	Constant   bool   `json:"-"`
}

var (
	globalVarRe = regexp.MustCompile(`(?i)^(Public|Global)\s+(\w+)(?:\([^)]*\))?\s+As\s+(?:New\s+)?([\w.]+)`)
	constantRe  = regexp.MustCompile(`(?i)^(Public\s+|Global\s+)?Const\s+(\w+)(?:\s+As\s+(\w+))?\s*=`)
)

// Globals finds Public/Global variables and public or bare constants.
func Globals(source, text string) []Global {
	var out []Global
	for _, l := range Lines(text) {
		if l.Comment {
			continue
		}
		if m := globalVarRe.FindStringSubmatch(l.Text); m != nil {
			if strings.EqualFold(m[2], "Const") {
				continue
			}
			out = append(out, Global{Visibility: titleCase(m[1]), Name: m[2], Type: m[3], Source: source, Line: l.Num})
			continue
		}
		if m := constantRe.FindStringSubmatch(l.Text); m != nil {
			vis := strings.TrimSpace(m[1])
			if vis == "" {
				vis = "Private"
			}
			typ := m[3]
			if typ == "" {
				typ = "Variant"
			}
			out = append(out, Global{Visibility: titleCase(vis), Name: m[2], Type: typ, Source: source, Line: l.Num, Constant: true})
		}
	}
	return out
}

// API is a `Declare ... Lib "dll"` external declaration.
type API struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Library string `json:"library"`
	Source  string `json:"source"`
	Line    int    `json:"-"`
}

var apiRe = regexp.MustCompile(`(?i)\bDeclare\s+(?:PtrSafe\s+)?(Sub|Function)\s+(\w+)\s+Lib\s+"([^"]+)"`)

// APIs finds external library declarations.
func APIs(source, text string) []API {
	var out []API
	for _, l := range Lines(text) {
		if l.Comment {
			continue
		}
		if m := apiRe.FindStringSubmatch(l.Text); m != nil {
			out = append(out, API{Type: titleCase(m[1]), Name: m[2], Library: m[3], Source: source, Line: l.Num})
		}
	}
	return out
}
