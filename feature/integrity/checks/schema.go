package checks

import (
	"fmt"
	"sort"

	"asset-tracker/core/database"
	"asset-tracker/core/store/sqlstore"

	"gorm.io/gorm"
)

// SchemaReport is the result of comparing the database against the tables
// the SQL store expects.
type SchemaReport struct {
	Driver  string                 `json:"driver"`
	Matched bool                   `json:"matched"`
	Tables  map[string]TableReport `json:"tables"`
	Errors  []string               `json:"errors"`
}

// TableReport is the verdict for a single table.
type TableReport struct {
	MissingColumns []string `json:"missing_columns"`
	Status         string   `json:"status"` // "ok", "missing", "error"
}

// CheckSchema verifies that every table and column used by the SQL store
// exists.
func CheckSchema(db *gorm.DB) (*SchemaReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	report := &SchemaReport{
		Driver:  db.Dialector.Name(),
		Matched: true,
		Tables:  make(map[string]TableReport),
		Errors:  []string{},
	}

	schema := sqlstore.Schema()
	tables := make([]string, 0, len(schema))
	for name := range schema {
		tables = append(tables, name)
	}
	sort.Strings(tables)

	for _, table := range tables {
		columns, err := database.GetTableColumns(db, table)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("Failed to inspect table %s: %v", table, err))
			report.Tables[table] = TableReport{MissingColumns: []string{}, Status: "error"}
			report.Matched = false
			continue
		}
		if len(columns) == 0 {
			report.Tables[table] = TableReport{MissingColumns: schema[table], Status: "missing"}
			report.Matched = false
			continue
		}

		have := make(map[string]struct{}, len(columns))
		for _, col := range columns {
			have[col.Field] = struct{}{}
		}
		tbl := TableReport{MissingColumns: []string{}, Status: "ok"}
		for _, col := range schema[table] {
			if _, ok := have[col]; !ok {
				tbl.MissingColumns = append(tbl.MissingColumns, col)
				tbl.Status = "error"
				report.Matched = false
			}
		}
		report.Tables[table] = tbl
	}

	return report, nil
}
