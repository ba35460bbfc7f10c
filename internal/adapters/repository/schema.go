package repository

import (
	"fmt"
	"strings"

	"github.com/okian/champsim/internal/domain/types"
)

// maxVariables is SQLite's default SQLITE_MAX_VARIABLE_NUMBER.
const maxVariables = 32766

// perDriver expands prefix into one column per driver, e.g. final_points_norris.
func perDriver(prefix string) []string {
	out := make([]string, 0, types.DriverCount)
	for _, d := range types.Drivers() {
		out = append(out, prefix+"_"+d.String())
	}
	return out
}

var outcomeColumns = concat(
	perDriver("delta_points"),
	perDriver("delta_wins"),
	perDriver("delta_seconds"),
	perDriver("delta_thirds"),
	perDriver("final_points"),
	perDriver("final_wins"),
	[]string{"champion", "criterion", "multiplicity"},
)

var tieColumns = concat(
	perDriver("first_pos"),
	perDriver("second_pos"),
	perDriver("points"),
	perDriver("gains"),
	[]string{"tie_points", "kind", "tied_drivers", "leader", "criterion"},
)

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func createTable(name string, columns []string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		typ := "INTEGER NOT NULL"
		switch c {
		case "champion", "criterion", "kind", "tied_drivers", "leader":
			typ = "TEXT NOT NULL"
		}
		defs[i] = c + " " + typ
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", name, strings.Join(defs, ",\n\t"))
}

// insertStatement builds a multi-row INSERT for rows rows.
func insertStatement(name string, columns []string, rows int) string {
	one := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"
	values := strings.TrimSuffix(strings.Repeat(one+",", rows), ",")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", name, strings.Join(columns, ", "), values)
}

// championPoints selects the champion's final points from the per-driver columns.
func championPoints() string {
	var b strings.Builder
	b.WriteString("CASE champion")
	for _, d := range types.Drivers() {
		fmt.Fprintf(&b, " WHEN '%s' THEN final_points_%s", d, d)
	}
	b.WriteString(" END")
	return b.String()
}

const createRuns = `CREATE TABLE IF NOT EXISTS ` + TableRuns + ` (
	id TEXT PRIMARY KEY,
	table_name TEXT NOT NULL,
	started_at TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	states INTEGER NOT NULL,
	combinations INTEGER NOT NULL
)`

var outcomeViews = []string{
	`CREATE VIEW v_champion_summary AS
	SELECT champion,
		COUNT(*) AS states,
		SUM(multiplicity) AS combinations,
		ROUND(100.0 * SUM(multiplicity) / (SELECT SUM(multiplicity) FROM ` + TableOutcomes + `), 2) AS chance_pct
	FROM ` + TableOutcomes + `
	GROUP BY champion
	ORDER BY combinations DESC`,
	`CREATE VIEW v_criterion_summary AS
	SELECT criterion,
		SUM(multiplicity) AS combinations,
		ROUND(100.0 * SUM(multiplicity) / (SELECT SUM(multiplicity) FROM ` + TableOutcomes + `), 2) AS pct
	FROM ` + TableOutcomes + `
	GROUP BY criterion
	ORDER BY combinations DESC`,
	`CREATE VIEW v_tie_break_outcomes AS
	SELECT *
	FROM ` + TableOutcomes + `
	WHERE criterion <> 'points'
	ORDER BY multiplicity DESC`,
}

var outcomeViewNames = []string{"v_champion_summary", "v_criterion_summary", "v_tie_break_outcomes"}

var knownTables = map[string][]string{
	TableOutcomes: outcomeColumns,
	TableTies:     tieColumns,
}
