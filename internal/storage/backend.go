// Package storage defines the medication storage backend and its two
// variants: SQLBackend over relational tables and BlobBackend over a single
// serialized array in a key-value store. Exactly one is chosen at startup.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/meditrack/internal/models"
)

type Kind string

const (
	KindSQL  Kind = "sql"
	KindBlob Kind = "blob"
)

// ErrEmptyPatch is returned by Update when the patch names no field.
var ErrEmptyPatch = errors.New("empty patch")

// Record is a medication to insert.
type Record struct {
	Name       string
	Dose       string
	Frequency  string
	Notes      string
	StartTime  string
	CreatedAt  time.Time
	OwnerEmail string
}

// Patch lists the fields an update may change. Nil fields are left alone.
type Patch struct {
	Name       *string
	Dose       *string
	Frequency  *string
	Notes      *string
	StartTime  *string
	OwnerEmail *string
}

type field struct {
	col   string
	value *string
}

// fields returns the set fields in column order.
func (p Patch) fields() []field {
	all := []field{
		{models.ColName, p.Name},
		{models.ColDose, p.Dose},
		{models.ColFrequency, p.Frequency},
		{models.ColNotes, p.Notes},
		{models.ColStartTime, p.StartTime},
		{models.ColOwnerEmail, p.OwnerEmail},
	}
	out := all[:0]
	for _, f := range all {
		if f.value != nil {
			out = append(out, f)
		}
	}
	return out
}

// Filter scopes an operation to a tenant. On reads it selects rows owned by
// OwnerEmail. On update and delete it is a condition: the row must be owned
// by OwnerEmail or have no owner. An empty OwnerEmail means unscoped.
type Filter struct {
	OwnerEmail string
}

func (f Filter) Scoped() bool { return f.OwnerEmail != "" }

// Backend is the storage strategy behind the medication repository.
//
// Update and Delete report how many rows they changed; zero means the id is
// absent or the owner condition did not hold. Find returns
// common.ErrNotFound for an absent id. QueryAll returns rows newest first.
type Backend interface {
	Kind() Kind
	Init(ctx context.Context) error
	QueryAll(ctx context.Context, f Filter) ([]models.Row, error)
	Find(ctx context.Context, id int64) (models.Row, error)
	Insert(ctx context.Context, r Record) (models.Row, error)
	Update(ctx context.Context, id int64, p Patch, f Filter) (int64, error)
	Delete(ctx context.Context, id int64, f Filter) (int64, error)
}

// nullable maps "" to SQL NULL / JSON null.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
