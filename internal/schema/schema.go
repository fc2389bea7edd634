// Package schema infers a relational schema from the SQL embedded in VB6
// source: tables, columns, keys, joins and the CRUD operations applied to
// each table.
package schema

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/phobologic/vbscan/internal/model"
	"github.com/phobologic/vbscan/internal/parse"
	"github.com/phobologic/vbscan/internal/source"
)

// Database types recognized from connection providers.
const (
	Access    = "Access"
	SQLServer = "SQL Server"
	Oracle    = "Oracle"
	MySQL     = "MySQL"
)

// Recommendation types.
const (
	FullCRUD     = "FULL_CRUD"
	ReadOnly     = "READ_ONLY"
	NoPrimaryKey = "NO_PRIMARY_KEY"
)

var crudOrder = []string{parse.Create, parse.Read, parse.Modify, parse.Remove}

// Table is everything learned about one table. Columns only ever grow.
type Table struct {
	Columns     []string     `json:"columns"`
	PrimaryKey  string       `json:"primary_key"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
	Operations  []string     `json:"operations"`
	Sources     []string     `json:"sources"`
}

// ForeignKey is a column inferred to reference another table.
type ForeignKey struct {
	Column           string `json:"column"`
	ReferencesTable  string `json:"references_table"`
	ReferencesColumn string `json:"references_column"`
}

// Relationship is a JOIN condition between two tables.
type Relationship struct {
	FromTable  string `json:"from_table"`
	FromColumn string `json:"from_column"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
	Type       string `json:"type"`
}

// Recommendation groups tables that share a migration concern.
type Recommendation struct {
	Type           string   `json:"type"`
	Tables         []string `json:"tables"`
	Recommendation string   `json:"recommendation"`
}

// Summary holds the headline values. DatabaseType is empty when no known
// provider was seen.
type Summary struct {
	TotalTables        int      `json:"total_tables"`
	TotalRelationships int      `json:"total_relationships"`
	DatabaseType       string   `json:"database_type"`
	DataSources        []string `json:"data_sources"`
}

// Schema is the extraction result.
type Schema struct {
	Summary                  Summary          `json:"summary"`
	Tables                   map[string]Table `json:"tables"`
	Relationships            []Relationship   `json:"relationships"`
	MigrationRecommendations []Recommendation `json:"migration_recommendations"`
}

var (
	selectRe     = regexp.MustCompile(`(?is)\bSELECT\s+(.+?)\s+FROM\s+(\w+)`)
	insertRe     = regexp.MustCompile(`(?i)\bINSERT\s+INTO\s+(\w+)\s*\(([^)]+)\)`)
	updateSetRe  = regexp.MustCompile(`(?i)\bUPDATE\s+(\w+)\s+SET\s+(.+?)(?:\bWHERE\b|"|$)`)
	deleteFromRe = regexp.MustCompile(`(?i)\bDELETE\s+FROM\s+(\w+)`)
	joinOnRe     = regexp.MustCompile(`(?i)\bJOIN\s+(\w+)(?:\s+(?:AS\s+)?(\w+))?\s+ON\s+(\w+)\.(\w+)\s*=\s*(\w+)\.(\w+)`)
	aliasRe      = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+(\w+)\s+(?:AS\s+)?(\w+)`)
	rsFieldRe    = regexp.MustCompile(`(?i)\brs!(\w+)|\brs\("(\w+)"\)|\brs\.Fields\("(\w+)"\)`)
	providerRe   = regexp.MustCompile(`(?i)(?:Provider|Driver)\s*=\s*([^;"\s]+)`)
	dataSourceRe = regexp.MustCompile(`(?i)Data\s*Source\s*=\s*([^;"\s]+)`)
	identRe      = regexp.MustCompile(`^\w+$`)
)

// sqlKeywords are never aliases or column names.
var sqlKeywords = map[string]struct{}{
	"on": {}, "where": {}, "inner": {}, "left": {}, "right": {}, "outer": {},
	"join": {}, "order": {}, "group": {}, "set": {}, "as": {}, "distinct": {},
	"values": {}, "having": {}, "union": {}, "full": {}, "cross": {},
}

type table struct {
	columns map[string]struct{}
	pk      string
	fks     []ForeignKey
	ops     map[string]struct{}
	sources map[string]struct{}
}

// Extractor accumulates schema facts across the files of one run.
type Extractor struct {
	reader        source.Reader
	tables        map[string]*table
	relationships []Relationship
	databaseType  string
	dataSources   map[string]struct{}
}

// New returns an Extractor reading through r.
func New(r source.Reader) *Extractor {
	return &Extractor{
		reader:      r,
		tables:      make(map[string]*table),
		dataSources: make(map[string]struct{}),
	}
}

func (e *Extractor) table(name string) *table {
	name = strings.ToLower(name)
	t, ok := e.tables[name]
	if !ok {
		t = &table{
			columns: make(map[string]struct{}),
			ops:     make(map[string]struct{}),
			sources: make(map[string]struct{}),
		}
		e.tables[name] = t
	}
	return t
}

// addColumn records col on the table and fixes the primary key the first
// time a qualifying column appears.
func (e *Extractor) addColumn(name, col string) {
	col = strings.ToLower(strings.TrimSpace(col))
	if !identRe.MatchString(col) {
		return
	}
	if _, kw := sqlKeywords[col]; kw {
		return
	}
	name = strings.ToLower(name)
	t := e.table(name)
	t.columns[col] = struct{}{}
	if t.pk == "" && (col == "id" || col == name+"id" || col == name+"_id") {
		t.pk = col
	}
}

func (e *Extractor) touch(name, op, file string) {
	t := e.table(name)
	t.ops[op] = struct{}{}
	t.sources[file] = struct{}{}
}

// Analyze processes files, which should be sorted by path, and returns the
// schema.
func (e *Extractor) Analyze(files []model.SourceFile) Schema {
	for _, f := range files {
		if !f.IsCode() {
			continue
		}
		text, ok := e.reader.Read(f.Path)
		if !ok {
			continue
		}
		e.file(f.Name, parse.StripComments(text))
	}
	return e.result()
}

func (e *Extractor) file(name, code string) {
	for _, m := range providerRe.FindAllStringSubmatch(code, -1) {
		if db := databaseType(m[1]); db != "" {
			e.databaseType = db
		}
	}
	for _, m := range dataSourceRe.FindAllStringSubmatch(code, -1) {
		e.dataSources[m[1]] = struct{}{}
	}

	for _, m := range selectRe.FindAllStringSubmatch(code, -1) {
		tbl := m[2]
		e.touch(tbl, parse.Read, name)
		if strings.TrimSpace(m[1]) == "*" {
			continue
		}
		for _, c := range strings.Split(m[1], ",") {
			c = strings.TrimSpace(c)
			if i := strings.LastIndex(c, "."); i >= 0 {
				c = c[i+1:]
			}
			if fields := strings.Fields(c); len(fields) > 0 {
				e.addColumn(tbl, fields[0])
			}
		}
	}

	for _, m := range insertRe.FindAllStringSubmatch(code, -1) {
		e.touch(m[1], parse.Create, name)
		for _, c := range strings.Split(m[2], ",") {
			e.addColumn(m[1], c)
		}
	}

	for _, l := range strings.Split(code, "\n") {
		for _, m := range updateSetRe.FindAllStringSubmatch(l, -1) {
			e.touch(m[1], parse.Modify, name)
			for _, part := range strings.Split(m[2], ",") {
				if col, _, ok := strings.Cut(part, "="); ok {
					e.addColumn(m[1], col)
				}
			}
		}
	}

	for _, m := range deleteFromRe.FindAllStringSubmatch(code, -1) {
		e.touch(m[1], parse.Remove, name)
	}

	for _, l := range strings.Split(code, "\n") {
		e.joins(l, name)
	}

	for _, m := range rsFieldRe.FindAllStringSubmatch(code, -1) {
		field := m[1] + m[2] + m[3]
		for tname, t := range e.tables {
			if _, ok := t.sources[name]; ok {
				e.addColumn(tname, field)
			}
		}
	}
}

// joins records JOIN ... ON relationships on one line, resolving table
// aliases declared on the same line.
func (e *Extractor) joins(line, file string) {
	aliases := make(map[string]string)
	for _, m := range aliasRe.FindAllStringSubmatch(line, -1) {
		alias := strings.ToLower(m[2])
		if _, kw := sqlKeywords[alias]; !kw {
			aliases[alias] = strings.ToLower(m[1])
		}
	}
	resolve := func(name string) string {
		name = strings.ToLower(name)
		if t, ok := aliases[name]; ok {
			return t
		}
		return name
	}

	for _, m := range joinOnRe.FindAllStringSubmatch(line, -1) {
		joined := strings.ToLower(m[1])
		t1, c1 := resolve(m[3]), strings.ToLower(m[4])
		t2, c2 := resolve(m[5]), strings.ToLower(m[6])

		e.touch(joined, parse.Read, file)
		e.relationships = append(e.relationships, Relationship{
			FromTable:  t1,
			FromColumn: c1,
			ToTable:    t2,
			ToColumn:   c2,
			Type:       parse.Join,
		})
		if strings.HasSuffix(c1, "id") && t1 != joined {
			t := e.table(t1)
			t.fks = append(t.fks, ForeignKey{Column: c1, ReferencesTable: joined, ReferencesColumn: c2})
		}
	}
}

func databaseType(provider string) string {
	p := strings.ToLower(provider)
	switch {
	case strings.Contains(p, "jet") || strings.Contains(p, "ace"):
		return Access
	case strings.Contains(p, "sqlserver") || strings.Contains(p, "sqlncli") || strings.Contains(p, "sqloledb"):
		return SQLServer
	case strings.Contains(p, "oracle"):
		return Oracle
	case strings.Contains(p, "mysql"):
		return MySQL
	}
	return ""
}

func (e *Extractor) result() Schema {
	s := Schema{
		Tables:                   make(map[string]Table, len(e.tables)),
		Relationships:            e.relationships,
		MigrationRecommendations: []Recommendation{},
	}
	if s.Relationships == nil {
		s.Relationships = []Relationship{}
	}

	var full, readOnly, noPK []string
	for _, name := range sortedKeys(e.tables) {
		t := e.tables[name]
		out := Table{
			Columns:     sortedSet(t.columns),
			PrimaryKey:  t.pk,
			ForeignKeys: t.fks,
			Operations:  []string{},
			Sources:     sortedSet(t.sources),
		}
		if out.ForeignKeys == nil {
			out.ForeignKeys = []ForeignKey{}
		}
		for _, op := range crudOrder {
			if _, ok := t.ops[op]; ok {
				out.Operations = append(out.Operations, op)
			}
		}
		s.Tables[name] = out

		switch {
		case len(out.Operations) == len(crudOrder):
			full = append(full, name)
		case len(out.Operations) == 1 && out.Operations[0] == parse.Read:
			readOnly = append(readOnly, name)
		}
		if t.pk == "" {
			noPK = append(noPK, name)
		}
	}

	if len(full) > 0 {
		s.MigrationRecommendations = append(s.MigrationRecommendations, Recommendation{
			Type:           FullCRUD,
			Tables:         full,
			Recommendation: "These tables need complete REST API endpoints (GET, POST, PUT, DELETE)",
		})
	}
	if len(readOnly) > 0 {
		s.MigrationRecommendations = append(s.MigrationRecommendations, Recommendation{
			Type:           ReadOnly,
			Tables:         readOnly,
			Recommendation: "Consider as lookup/reference tables - may only need GET endpoint",
		})
	}
	if len(noPK) > 0 {
		s.MigrationRecommendations = append(s.MigrationRecommendations, Recommendation{
			Type:           NoPrimaryKey,
			Tables:         noPK,
			Recommendation: "Add primary key during migration for proper REST resource identification",
		})
	}

	s.Summary = Summary{
		TotalTables:        len(s.Tables),
		TotalRelationships: len(s.Relationships),
		DatabaseType:       e.databaseType,
		DataSources:        sortedSet(e.dataSources),
	}
	return s
}

// WritePrisma renders a draft Prisma schema for s. Every column other than
// the key is an optional String until someone checks the real type.
func WritePrisma(w io.Writer, s Schema) error {
	lines := []string{
		"// Draft Prisma schema inferred from VB6 code analysis",
		"// Review and adjust types as needed",
		"",
		"datasource db {",
		`  provider = "sqlite"`,
		`  url = env("DATABASE_URL")`,
		"}",
		"",
		"generator client {",
		`  provider = "prisma-client-js"`,
		"}",
		"",
	}

	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		t := s.Tables[name]
		lines = append(lines, fmt.Sprintf("model %s {", capitalize(name)))
		pk := t.PrimaryKey
		if pk == "" {
			pk = "id"
		}
		lines = append(lines, fmt.Sprintf("  %s Int @id @default(autoincrement())", pk))
		for _, col := range t.Columns {
			if col != pk && col != "id" {
				lines = append(lines, fmt.Sprintf("  %s String? // verify type", col))
			}
		}
		lines = append(lines, "}", "")
	}

	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return err
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func sortedKeys(m map[string]*table) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSet(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
