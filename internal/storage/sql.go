package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/meditrack/internal/common"
	"github.com/dmitrijs2005/meditrack/internal/dbx"
	"github.com/dmitrijs2005/meditrack/internal/models"
	"github.com/dmitrijs2005/meditrack/internal/schema"
)

// SQLBackend stores medications in the relational medications table.
// Statements are built against the layout discovered by the schema manager
// so legacy column spellings keep working.
type SQLBackend struct {
	db      *sql.DB
	dialect dbx.Dialect
	schema  *schema.Manager
	sb      squirrel.StatementBuilderType

	mu     sync.RWMutex
	layout schema.Layout
}

func NewSQLBackend(db *sql.DB, d dbx.Dialect, m *schema.Manager) *SQLBackend {
	return &SQLBackend{
		db:      db,
		dialect: d,
		schema:  m,
		sb:      d.Builder(),
		layout:  schema.CanonicalLayout(),
	}
}

func (b *SQLBackend) Kind() Kind { return KindSQL }

// Init ensures the table exists and records its layout.
func (b *SQLBackend) Init(ctx context.Context) error {
	layout, err := b.schema.EnsureSchema(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.layout = layout
	b.mu.Unlock()
	return nil
}

func (b *SQLBackend) currentLayout() schema.Layout {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.layout
}

func (b *SQLBackend) selectBuilder(l schema.Layout) squirrel.SelectBuilder {
	cols := make([]string, 0, len(schema.Columns))
	for _, c := range schema.Columns {
		cols = append(cols, l.Quoted(c))
	}
	return b.sb.Select(cols...).From(l.Table)
}

// ownerCondition matches rows owned by owner or by nobody.
func ownerCondition(l schema.Layout, owner string) squirrel.Or {
	col := l.Quoted(models.ColOwnerEmail)
	return squirrel.Or{
		squirrel.Eq{col: nil},
		squirrel.Eq{col: ""},
		squirrel.Eq{col: owner},
	}
}

func (b *SQLBackend) QueryAll(ctx context.Context, f Filter) ([]models.Row, error) {
	l := b.currentLayout()
	q := b.selectBuilder(l).OrderBy(l.Quoted(models.ColID) + " DESC")
	if f.Scoped() {
		q = q.Where(squirrel.Eq{l.Quoted(models.ColOwnerEmail): f.OwnerEmail})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build medications query: %w", err)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query medications: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

func (b *SQLBackend) Find(ctx context.Context, id int64) (models.Row, error) {
	l := b.currentLayout()
	query, args, err := b.selectBuilder(l).Where(squirrel.Eq{l.Quoted(models.ColID): id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build medication query: %w", err)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query medication %d: %w", id, err)
	}
	defer rows.Close()

	found, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("medication %d: %w", id, common.ErrNotFound)
	}
	return found[0], nil
}

func (b *SQLBackend) Insert(ctx context.Context, r Record) (models.Row, error) {
	l := b.currentLayout()
	q := b.sb.Insert(l.Table).
		Columns(
			l.Quoted(models.ColName),
			l.Quoted(models.ColDose),
			l.Quoted(models.ColFrequency),
			l.Quoted(models.ColNotes),
			l.Quoted(models.ColStartTime),
			l.Quoted(models.ColCreatedAt),
			l.Quoted(models.ColOwnerEmail),
		).
		Values(r.Name, r.Dose, r.Frequency, nullable(r.Notes), nullable(r.StartTime),
			models.FormatTime(r.CreatedAt), nullable(r.OwnerEmail))

	var id int64
	if b.dialect.IsPostgres() {
		query, args, err := q.Suffix("RETURNING " + l.Quoted(models.ColID)).ToSql()
		if err != nil {
			return nil, fmt.Errorf("failed to build medication insert: %w", err)
		}
		if err := b.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to insert medication: %w", err)
		}
	} else {
		query, args, err := q.ToSql()
		if err != nil {
			return nil, fmt.Errorf("failed to build medication insert: %w", err)
		}
		res, err := b.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to insert medication: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("failed to read medication id: %w", err)
		}
	}

	return b.Find(ctx, id)
}

func (b *SQLBackend) Update(ctx context.Context, id int64, p Patch, f Filter) (int64, error) {
	fields := p.fields()
	if len(fields) == 0 {
		return 0, ErrEmptyPatch
	}

	l := b.currentLayout()
	q := b.sb.Update(l.Table).Where(squirrel.Eq{l.Quoted(models.ColID): id})
	for _, fl := range fields {
		v := any(*fl.value)
		if fl.col != models.ColName && fl.col != models.ColDose && fl.col != models.ColFrequency {
			v = nullable(*fl.value)
		}
		q = q.Set(l.Quoted(fl.col), v)
	}
	if f.Scoped() {
		q = q.Where(ownerCondition(l, f.OwnerEmail))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build medication update: %w", err)
	}
	res, err := b.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update medication %d: %w", id, err)
	}
	return dbx.RowsAffected(res), nil
}

func (b *SQLBackend) Delete(ctx context.Context, id int64, f Filter) (int64, error) {
	l := b.currentLayout()
	q := b.sb.Delete(l.Table).Where(squirrel.Eq{l.Quoted(models.ColID): id})
	if f.Scoped() {
		q = q.Where(ownerCondition(l, f.OwnerEmail))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build medication delete: %w", err)
	}
	res, err := b.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete medication %d: %w", id, err)
	}
	return dbx.RowsAffected(res), nil
}

// scanRows reads every row into a map keyed by the result column names.
func scanRows(rows *sql.Rows) ([]models.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read medication columns: %w", err)
	}

	out := make([]models.Row, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan medication row: %w", err)
		}
		row := make(models.Row, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to iterate medication rows: %w", err)
	}
	return out, nil
}
