// Package lookup holds the collaborators around the retrieval core: the
// hours table keyed by project code, and file discovery for resumes and
// project sheets. The core only hands over identifiers; everything here is
// local filesystem work.
package lookup

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Row is one employee/project/hours record from the hours export.
type Row struct {
	Employee  string
	ProjectID string
	Hours     float64
}

// Table is an in-memory hours table loaded from the accounting CSV export.
type Table struct {
	rows []Row
}

// Column headers as they appear in the accounting export.
const (
	colEmployee = "Employee"
	colProject  = "Proj Cd"
	colHours    = "Hrs"
)

// LoadCSV reads the hours export. The header row must contain the
// Employee, Proj Cd and Hrs columns; extra columns are ignored. Rows with
// unparseable hours keep the record with zero hours rather than failing
// the whole load.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hours table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colEmployee, colProject, colHours} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("hours table missing column %q", required)
		}
	}

	table := &Table{}
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read hours table: %w", err)
	}
	for _, record := range records {
		row := Row{
			Employee:  strings.TrimSpace(record[cols[colEmployee]]),
			ProjectID: strings.TrimSpace(record[cols[colProject]]),
		}
		if hours, err := strconv.ParseFloat(strings.TrimSpace(record[cols[colHours]]), 64); err == nil {
			row.Hours = hours
		}
		table.rows = append(table.rows, row)
	}
	return table, nil
}

// Len returns the number of loaded rows.
func (t *Table) Len() int { return len(t.rows) }

// FilterByProjects returns the rows whose project id is in the given set,
// in file order.
func (t *Table) FilterByProjects(projectIDs []string) []Row {
	want := make(map[string]struct{}, len(projectIDs))
	for _, id := range projectIDs {
		want[id] = struct{}{}
	}

	var out []Row
	for _, row := range t.rows {
		if _, ok := want[row.ProjectID]; ok {
			out = append(out, row)
		}
	}
	return out
}

// Employees returns the unique employee names in rows, first-seen order.
func Employees(rows []Row) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, row := range rows {
		if _, ok := seen[row.Employee]; ok {
			continue
		}
		seen[row.Employee] = struct{}{}
		out = append(out, row.Employee)
	}
	return out
}
