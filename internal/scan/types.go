package scan

import (
	"time"

	"github.com/phobologic/vbscan/internal/model"
	"github.com/phobologic/vbscan/internal/parse"
)

// Analysis is the comprehensive scan document. Its JSON field names are
// consumed by the report renderers and the logic extractor.
type Analysis struct {
	Metadata            Metadata                  `json:"metadata"`
	Summary             Summary                   `json:"summary"`
	Inventory           map[string]InventoryEntry `json:"inventory"`
	Projects            []parse.Project           `json:"projects"`
	Forms               []Form                    `json:"forms"`
	Modules             []Module                  `json:"modules"`
	Classes             []Class                   `json:"classes"`
	Dependencies        []Dependency              `json:"dependencies"`
	CRUDOperations      []CRUDEntry               `json:"crud_operations"`
	CallGraph           CallGraph                 `json:"call_graph"`
	GlobalVariables     []parse.Global            `json:"global_variables"`
	APICalls            []parse.API               `json:"api_calls"`
	ErrorHandling       []ErrorEntry              `json:"error_handling"`
	DatabaseConnections []Connection              `json:"database_connections"`
	Risks               []Risk                    `json:"risks"`
}

func newAnalysis(root string, at time.Time) *Analysis {
	return &Analysis{
		Metadata: Metadata{
			ScanDate:        at.Format("2006-01-02T15:04:05.000000"),
			SourceDirectory: root,
			ScannerVersion:  Version,
		},
		Inventory:           make(map[string]InventoryEntry),
		Projects:            []parse.Project{},
		Forms:               []Form{},
		Modules:             []Module{},
		Classes:             []Class{},
		Dependencies:        []Dependency{},
		CRUDOperations:      []CRUDEntry{},
		CallGraph:           CallGraph{Nodes: []string{}, Edges: []CallEdge{}},
		GlobalVariables:     []parse.Global{},
		APICalls:            []parse.API{},
		ErrorHandling:       []ErrorEntry{},
		DatabaseConnections: []Connection{},
		Risks:               []Risk{},
	}
}

// Metadata identifies a scan.
type Metadata struct {
	ScanDate        string `json:"scan_date"`
	SourceDirectory string `json:"source_directory"`
	ScannerVersion  string `json:"scanner_version"`
}

// Summary holds the headline counts.
type Summary struct {
	TotalFiles           int            `json:"total_files"`
	TotalSizeBytes       int64          `json:"total_size_bytes"`
	TotalSizeHuman       string         `json:"total_size_human"`
	ProjectsCount        int            `json:"projects_count"`
	FormsCount           int            `json:"forms_count"`
	ModulesCount         int            `json:"modules_count"`
	ClassesCount         int            `json:"classes_count"`
	TotalControls        int            `json:"total_controls"`
	TotalFunctions       int            `json:"total_functions"`
	CRUDFormsCount       int            `json:"crud_forms_count"`
	GlobalVariablesCount int            `json:"global_variables_count"`
	APICallsCount        int            `json:"api_calls_count"`
	ErrorHandlingIssues  int            `json:"error_handling_issues"`
	Categories           map[string]int `json:"categories"`
}

// InventoryEntry lists the files of one category.
type InventoryEntry struct {
	Description string             `json:"description"`
	Icon        string             `json:"icon"`
	Count       int                `json:"count"`
	Files       []model.SourceFile `json:"files"`
}

// Routine is a Sub, Function or Property with its body.
type Routine struct {
	Visibility string `json:"visibility"`
	Type       string `json:"type"`
	Name       string `json:"name"`
	Params     string `json:"params"`
	Logic      string `json:"logic"`
}

// Form is a parsed .frm file.
type Form struct {
	Name           string            `json:"name"`
	Path           string            `json:"path"`
	Controls       []parse.Control   `json:"controls"`
	Events         []parse.Event     `json:"events"`
	CRUDOperations []string          `json:"crud_operations"`
	SQLQueries     []parse.Statement `json:"sql_queries"`
	Functions      []Routine         `json:"functions"`
	ErrorHandling  []string          `json:"error_handling"`
	Properties     []parse.Property  `json:"properties"`
}

// Module is a parsed .bas file.
type Module struct {
	Name            string         `json:"name"`
	Path            string         `json:"path"`
	Functions       []Routine      `json:"functions"`
	GlobalVariables []parse.Global `json:"global_variables"`
	APIDeclarations []parse.API    `json:"api_declarations"`
}

// Class is a parsed .cls file.
type Class struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Methods    []Routine `json:"methods"`
	Properties []Routine `json:"properties"`
}

// Dependency kinds.
const (
	DependencyFile      = "file"
	DependencyReference = "reference"
	DependencyObject    = "object"
)

// Dependency is a binary component the application needs at run time.
type Dependency struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Path    string `json:"path,omitempty"`
	GUID    string `json:"guid,omitempty"`
	Version string `json:"version,omitempty"`
	Project string `json:"project,omitempty"`
}

// CRUDEntry records the data operations of one form.
type CRUDEntry struct {
	Source     string   `json:"source"`
	Operations []string `json:"operations"`
}

// CallGraph links artifacts through calls to Public routines.
type CallGraph struct {
	Nodes []string   `json:"nodes"`
	Edges []CallEdge `json:"edges"`
}

// CallEdge is one caller artifact invoking a routine declared elsewhere.
type CallEdge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Function string `json:"function"`
}

// ErrorEntry is an On Error statement in a form.
type ErrorEntry struct {
	Source  string `json:"source"`
	Pattern string `json:"pattern"`
}

// Connection is a connection-string fragment in a form.
type Connection struct {
	Source string `json:"source"`
	Type   string `json:"type"`
	Value  string `json:"value"`
}

// Risk is a migration risk with its mitigation.
type Risk struct {
	Level       model.Severity `json:"level"`
	Category    string         `json:"category"`
	Description string         `json:"description"`
	Mitigation  string         `json:"mitigation"`
}
