package parse

import (
	"regexp"
)

// SQL statement types.
const (
	Select = "SELECT"
	Insert = "INSERT"
	Update = "UPDATE"
	Delete = "DELETE"
	Join   = "JOIN"
)

// Statement is an embedded SQL statement and the table it targets.
type Statement struct {
	Type  string `json:"type"`
	Table string `json:"table"`
	Line  int    `json:"-"`
}

var sqlPatterns = []struct {
	kind string
	re   *regexp.Regexp
}{
	{Select, regexp.MustCompile(`(?i)\bSELECT\s+.+\s+FROM\s+(\w+)`)},
	{Insert, regexp.MustCompile(`(?i)\bINSERT\s+INTO\s+(\w+)`)},
	{Update, regexp.MustCompile(`(?i)\bUPDATE\s+(\w+)\s+SET\b`)},
	{Delete, regexp.MustCompile(`(?i)\bDELETE\s+FROM\s+(\w+)`)},
	{Join, regexp.MustCompile(`(?i)\bJOIN\s+(\w+)`)},
}

// SQL extracts statements grouped by type in SELECT, INSERT, UPDATE, DELETE,
// JOIN order, each group in line order. The table is the token right after
// FROM, INTO, UPDATE or JOIN.
func SQL(text string) []Statement {
	lines := Lines(text)
	var out []Statement
	for _, p := range sqlPatterns {
		for _, l := range lines {
			if l.Comment {
				continue
			}
			for _, m := range p.re.FindAllStringSubmatch(l.Text, -1) {
				out = append(out, Statement{Type: p.kind, Table: m[1], Line: l.Num})
			}
		}
	}
	return out
}

// CRUD operation names.
const (
	Create = "CREATE"
	Read   = "READ"
	Modify = "UPDATE"
	Remove = "DELETE"
)

var (
	addNewRe = regexp.MustCompile(`(?i)\.AddNew\b`)
	editRe   = regexp.MustCompile(`(?i)\.Edit\b`)
	updateRe = regexp.MustCompile(`(?i)\.Update\b`)
	deleteRe = regexp.MustCompile(`(?i)\.Delete\b`)
)

// CRUD reports which data operations a file performs, in CREATE, READ,
// UPDATE, DELETE order. Recordset methods and SELECT statements count.
func CRUD(text string) []string {
	code := StripComments(text)
	var ops []string
	if addNewRe.MatchString(code) {
		ops = append(ops, Create)
	}
	if sqlPatterns[0].re.MatchString(code) {
		ops = append(ops, Read)
	}
	if editRe.MatchString(code) || updateRe.MatchString(code) {
		ops = append(ops, Modify)
	}
	if deleteRe.MatchString(code) {
		ops = append(ops, Remove)
	}
	return ops
}

// ErrorHandler is an `On Error` statement.
type ErrorHandler struct {
	Pattern string
	Line    int
}

var onErrorRe = regexp.MustCompile(`(?i)On\s+Error\s+(Resume\s+Next|GoTo\s+\w+)`)

// ResumeNextRe matches the error-swallowing form of On Error.
var ResumeNextRe = regexp.MustCompile(`(?i)On\s+Error\s+Resume\s+Next`)

// ErrorHandlers lists On Error statements.
func ErrorHandlers(text string) []ErrorHandler {
	var out []ErrorHandler
	for _, l := range Lines(text) {
		if l.Comment {
			continue
		}
		for _, m := range onErrorRe.FindAllString(l.Text, -1) {
			out = append(out, ErrorHandler{Pattern: m, Line: l.Num})
		}
	}
	return out
}

// Connection is a connection-string fragment such as Provider=... .
type Connection struct {
	Type  string
	Value string
	Line  int
}

var connectionRe = regexp.MustCompile(`(?i)(Provider|Data Source|Database|DSN)\s*=\s*["']?([^"';\n]+)`)

// Connections lists connection-string keys and their values.
func Connections(text string) []Connection {
	var out []Connection
	for _, l := range Lines(text) {
		if l.Comment {
			continue
		}
		for _, m := range connectionRe.FindAllStringSubmatch(l.Text, -1) {
			out = append(out, Connection{Type: m[1], Value: m[2], Line: l.Num})
		}
	}
	return out
}
