package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/vbscan/internal/discover"
	"github.com/phobologic/vbscan/internal/source"
)

func extract(t *testing.T, dir string) Schema {
	t.Helper()
	files, err := discover.Files(dir, discover.Options{})
	require.NoError(t, err)
	return New(source.FileReader{}).Analyze(files)
}

func ordersProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "frmA.frm", `Private Sub Load()
    sql = "SELECT id, Total FROM Orders"
    db.Execute "INSERT INTO Orders (id, Total) VALUES (1, 2)"
End Sub
`)
	writeFile(t, dir, "frmB.frm", `Private Sub Save()
    sql = "SELECT OrderID, Amount FROM Orders WHERE Amount > 5"
    db.Execute "UPDATE Orders SET Amount = 0, Total = 1 WHERE id = 3"
    db.Execute "DELETE FROM Orders WHERE id = 3"
    sql = "SELECT * FROM Orders o INNER JOIN Customers c ON o.CustomerID = c.ID"
    x = rs!Email
    ' db.Execute "DELETE FROM Archive"
    conn.Open "Provider=Microsoft.Jet.OLEDB.4.0;Data Source=C:\data\orders.mdb"
End Sub
`)
	return dir
}

func TestExtractTables(t *testing.T) {
	t.Parallel()

	s := extract(t, ordersProject(t))

	require.Len(t, s.Tables, 2)
	orders := s.Tables["orders"]
	assert.Equal(t, []string{"amount", "email", "id", "orderid", "total"}, orders.Columns)
	assert.Equal(t, "id", orders.PrimaryKey)
	assert.Equal(t, []string{"CREATE", "READ", "UPDATE", "DELETE"}, orders.Operations)
	assert.Equal(t, []string{"frmA.frm", "frmB.frm"}, orders.Sources)
	assert.Equal(t, []ForeignKey{{Column: "customerid", ReferencesTable: "customers", ReferencesColumn: "id"}}, orders.ForeignKeys)

	customers := s.Tables["customers"]
	assert.Equal(t, []string{"READ"}, customers.Operations)
	assert.Equal(t, []string{"email"}, customers.Columns)
	assert.Empty(t, customers.PrimaryKey)

	_, archived := s.Tables["archive"]
	assert.False(t, archived, "commented SQL is ignored")
}

func TestExtractRelationshipsAndSummary(t *testing.T) {
	t.Parallel()

	s := extract(t, ordersProject(t))

	assert.Equal(t, []Relationship{{
		FromTable: "orders", FromColumn: "customerid",
		ToTable: "customers", ToColumn: "id", Type: "JOIN",
	}}, s.Relationships)
	assert.Equal(t, Summary{
		TotalTables:        2,
		TotalRelationships: 1,
		DatabaseType:       Access,
		DataSources:        []string{`C:\data\orders.mdb`},
	}, s.Summary)
}

func TestExtractRecommendations(t *testing.T) {
	t.Parallel()

	s := extract(t, ordersProject(t))

	require.Len(t, s.MigrationRecommendations, 3)
	assert.Equal(t, FullCRUD, s.MigrationRecommendations[0].Type)
	assert.Equal(t, []string{"orders"}, s.MigrationRecommendations[0].Tables)
	assert.Equal(t, ReadOnly, s.MigrationRecommendations[1].Type)
	assert.Equal(t, []string{"customers"}, s.MigrationRecommendations[1].Tables)
	assert.Equal(t, NoPrimaryKey, s.MigrationRecommendations[2].Type)
}

func TestPrimaryKeyFirstMatchWins(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.bas", `x = "SELECT id FROM Orders"`+"\n")
	writeFile(t, dir, "b.bas", `x = "SELECT orderid FROM Orders"`+"\n")

	s := extract(t, dir)
	assert.Equal(t, "id", s.Tables["orders"].PrimaryKey)

	dir = t.TempDir()
	writeFile(t, dir, "a.bas", `x = "SELECT customer_id FROM Customer"`+"\n")
	writeFile(t, dir, "b.bas", `x = "SELECT id FROM Customer"`+"\n")

	s = extract(t, dir)
	assert.Equal(t, "customer_id", s.Tables["customer"].PrimaryKey)
}

func TestDatabaseType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		provider string
		want     string
	}{
		{"Microsoft.ACE.OLEDB.12.0", Access},
		{"SQLNCLI11", SQLServer},
		{"SQLOLEDB", SQLServer},
		{"OraOLEDB.Oracle", Oracle},
		{"MySQLProv", MySQL},
		{"Unknown.Provider", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, databaseType(tt.provider), tt.provider)
	}
}

func TestExtractEmptyDir(t *testing.T) {
	t.Parallel()

	s := extract(t, t.TempDir())
	assert.Equal(t, 0, s.Summary.TotalTables)
	assert.Empty(t, s.Summary.DatabaseType)
	assert.NotNil(t, s.Relationships)
	assert.NotNil(t, s.MigrationRecommendations)
	assert.NotNil(t, s.Summary.DataSources)
}

func TestWritePrisma(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	require.NoError(t, WritePrisma(&b, extract(t, ordersProject(t))))
	out := b.String()

	assert.Contains(t, out, "model Customers {\n  id Int @id @default(autoincrement())\n  email String? // verify type\n}")
	assert.Contains(t, out, "model Orders {\n  id Int @id @default(autoincrement())\n  amount String? // verify type")
	assert.Less(t, strings.Index(out, "model Customers"), strings.Index(out, "model Orders"))
	assert.NotContains(t, out, "  id String?")
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
