package schema

import (
	"strings"

	"github.com/dmitrijs2005/meditrack/internal/models"
)

// Table is the medications table name.
const Table = "medications"

// Columns lists the logical medication columns in select order.
var Columns = []string{
	models.ColID,
	models.ColName,
	models.ColDose,
	models.ColFrequency,
	models.ColNotes,
	models.ColStartTime,
	models.ColCreatedAt,
	models.ColOwnerEmail,
}

// Layout maps each logical column to the physical column present in the
// database, e.g. start_time to a legacy startTime column.
type Layout struct {
	Table   string
	columns map[string]string
}

// CanonicalLayout assumes every column exists under its logical name.
func CanonicalLayout() Layout {
	l := Layout{Table: Table, columns: make(map[string]string, len(Columns))}
	for _, c := range Columns {
		l.columns[c] = c
	}
	return l
}

// Column returns the physical name for a logical column.
func (l Layout) Column(logical string) string {
	if p, ok := l.columns[logical]; ok {
		return p
	}
	return logical
}

// Quoted returns the physical name as a quoted identifier, which both SQLite
// and PostgreSQL accept and which keeps mixed-case legacy names intact.
func (l Layout) Quoted(logical string) string {
	return QuoteIdent(l.Column(logical))
}

// QuoteIdent double-quotes an SQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// resolve builds a layout from the physical columns found by a probe and
// reports the logical columns that have no match. An exact name wins over
// an alternate spelling when a table carries both.
func resolve(existing []string) (Layout, []string) {
	exact := make(map[string]bool, len(existing))
	byNorm := make(map[string]string, len(existing))
	for _, name := range existing {
		exact[name] = true
		if _, seen := byNorm[models.NormalizeName(name)]; !seen {
			byNorm[models.NormalizeName(name)] = name
		}
	}

	l := CanonicalLayout()
	var missing []string
	for _, c := range Columns {
		if exact[c] {
			continue
		}
		if p, ok := byNorm[models.NormalizeName(c)]; ok {
			l.columns[c] = p
			continue
		}
		missing = append(missing, c)
	}
	return l, missing
}
