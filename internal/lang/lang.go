// Package lang maps file extensions of migrated front-end code to
// tree-sitter grammars and finds the lines that are comments, so line
// scanners never report commented-out code.
package lang

import (
	"context"
	"fmt"
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// commentQuery captures every comment node. Grammars that name comments
// differently simply yield no captures.
const commentQuery = `(comment) @comment`

// Language is a front-end grammar and the extensions it parses.
type Language struct {
	Name       string
	Extensions []string
	grammar    *sitter.Language

	once     sync.Once
	comments *sitter.Query
	err      error
}

// Grammar returns the tree-sitter grammar.
func (l *Language) Grammar() *sitter.Language { return l.grammar }

// NewParser returns a parser bound to the grammar. Parsers are not safe for
// concurrent use.
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.grammar)
	return p
}

// CommentQuery compiles the comment query on first use.
func (l *Language) CommentQuery() (*sitter.Query, error) {
	l.once.Do(func() {
		l.comments, l.err = sitter.NewQuery([]byte(commentQuery), l.grammar)
		if l.err != nil {
			l.err = fmt.Errorf("compiling %s comment query: %w", l.Name, l.err)
		}
	})
	return l.comments, l.err
}

// Languages holds every registered grammar by name.
var Languages = map[string]*Language{}

var byExtension = map[string]*Language{}

// register is called from the init function of each grammar file.
func register(l *Language) {
	Languages[l.Name] = l
	for _, ext := range l.Extensions {
		byExtension[ext] = l
	}
}

// ForExtension names the grammar for ext, or returns "" when none parses it.
func ForExtension(ext string) string {
	if l, ok := byExtension[ext]; ok {
		return l.Name
	}
	return ""
}

type span struct{ start, end uint32 }

// CommentLines returns the 1-based numbers of lines whose first
// non-blank character lies inside a comment. ok is false when ext has no
// grammar and the caller should fall back to a prefix check.
func CommentLines(ext string, source []byte) (lines map[int]bool, ok bool, err error) {
	l, found := byExtension[ext]
	if !found {
		return nil, false, nil
	}
	query, err := l.CommentQuery()
	if err != nil {
		return nil, true, err
	}

	parser := l.NewParser()
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, true, fmt.Errorf("parsing %s: %w", l.Name, err)
	}
	defer tree.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, tree.RootNode())

	var spans []span
	for {
		match, more := qc.NextMatch()
		if !more {
			break
		}
		for _, c := range match.Captures {
			spans = append(spans, span{c.Node.StartByte(), c.Node.EndByte()})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	lines = make(map[int]bool)
	lineNum, first := 1, -1
	for i := 0; i <= len(source); i++ {
		if i == len(source) || source[i] == '\n' {
			if first >= 0 && inSpans(spans, uint32(first)) {
				lines[lineNum] = true
			}
			lineNum++
			first = -1
			continue
		}
		if first < 0 && source[i] != ' ' && source[i] != '\t' && source[i] != '\r' {
			first = i
		}
	}
	return lines, true, nil
}

func inSpans(spans []span, off uint32) bool {
	i := sort.Search(len(spans), func(i int) bool { return spans[i].end > off })
	return i < len(spans) && spans[i].start <= off
}
