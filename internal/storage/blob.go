package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrijs2005/meditrack/internal/common"
	"github.com/dmitrijs2005/meditrack/internal/kv"
	"github.com/dmitrijs2005/meditrack/internal/logging"
	"github.com/dmitrijs2005/meditrack/internal/models"
)

const (
	// BlobKey holds the JSON array of every medication.
	BlobKey = "medications"
	// BlobSeqKey holds the id counter.
	BlobSeqKey = "medications:seq"
)

// TenantKey is the per-tenant secondary key holding that tenant's subset.
func TenantKey(email string) string {
	return BlobKey + ":" + email
}

// BlobBackend keeps medications as one JSON array under BlobKey and mirrors
// each tenant's rows under TenantKey. Every write is a read-modify-write of
// the whole array, serialized by an in-process mutex.
type BlobBackend struct {
	store  kv.Store
	logger logging.Logger
	mu     sync.Mutex
}

func NewBlobBackend(store kv.Store, logger logging.Logger) *BlobBackend {
	return &BlobBackend{store: store, logger: logger.With("component", "blob")}
}

func (b *BlobBackend) Kind() Kind { return KindBlob }

// Init is a no-op; the blob needs no schema.
func (b *BlobBackend) Init(context.Context) error { return nil }

func decodeRows(raw []byte) ([]models.Row, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return []models.Row{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var rows []models.Row
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.Row{}
	}
	return rows, nil
}

func sortNewestFirst(rows []models.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, _ := rows[i].Int64(models.ColID)
		c, _ := rows[j].Int64(models.ColID)
		return a > c
	})
}

func (b *BlobBackend) load(ctx context.Context) ([]models.Row, error) {
	raw, err := b.store.Get(ctx, BlobKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", BlobKey, err)
	}
	rows, err := decodeRows(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", BlobKey, err)
	}
	return rows, nil
}

// save writes the global array and refreshes the tenant keys in owners.
func (b *BlobBackend) save(ctx context.Context, rows []models.Row, owners ...string) error {
	sortNewestFirst(rows)
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", BlobKey, err)
	}
	if err := b.store.Set(ctx, BlobKey, raw); err != nil {
		return fmt.Errorf("failed to write %s: %w", BlobKey, err)
	}

	seen := make(map[string]bool, len(owners))
	for _, owner := range owners {
		if owner == "" || seen[owner] {
			continue
		}
		seen[owner] = true

		subset := ownedBy(rows, owner)
		raw, err := json.Marshal(subset)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", TenantKey(owner), err)
		}
		if err := b.store.Set(ctx, TenantKey(owner), raw); err != nil {
			return fmt.Errorf("failed to write %s: %w", TenantKey(owner), err)
		}
	}
	return nil
}

func ownedBy(rows []models.Row, owner string) []models.Row {
	out := make([]models.Row, 0)
	for _, r := range rows {
		if r.String(models.ColOwnerEmail) == owner {
			out = append(out, r)
		}
	}
	return out
}

func indexOf(rows []models.Row, id int64) int {
	for i, r := range rows {
		if rid, ok := r.Int64(models.ColID); ok && rid == id {
			return i
		}
	}
	return -1
}

// permitted reports whether row satisfies the owner condition of f.
func permitted(row models.Row, f Filter) bool {
	if !f.Scoped() {
		return true
	}
	owner := row.String(models.ColOwnerEmail)
	return owner == "" || owner == f.OwnerEmail
}

// setField writes value under the canonical key and drops alternate
// spellings of the same column.
func setField(row models.Row, col string, value any) {
	norm := models.NormalizeName(col)
	for k := range row {
		if k != col && models.NormalizeName(k) == norm {
			delete(row, k)
		}
	}
	row[col] = value
}

// QueryAll filters the global array, which is authoritative. The tenant key
// is only read when the global array was never written, since older builds
// left tenant keys behind after unscoped deletes.
func (b *BlobBackend) QueryAll(ctx context.Context, f Filter) ([]models.Row, error) {
	raw, err := b.store.Get(ctx, BlobKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", BlobKey, err)
	}
	if raw == nil && f.Scoped() {
		return b.queryTenant(ctx, f.OwnerEmail)
	}

	rows, err := decodeRows(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", BlobKey, err)
	}
	if f.Scoped() {
		rows = ownedBy(rows, f.OwnerEmail)
	}
	sortNewestFirst(rows)
	return rows, nil
}

func (b *BlobBackend) queryTenant(ctx context.Context, owner string) ([]models.Row, error) {
	key := TenantKey(owner)
	raw, err := b.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	rows, err := decodeRows(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	rows = ownedBy(rows, owner)
	sortNewestFirst(rows)
	return rows, nil
}

func (b *BlobBackend) Find(ctx context.Context, id int64) (models.Row, error) {
	rows, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(rows, id)
	if i < 0 {
		return nil, fmt.Errorf("medication %d: %w", id, common.ErrNotFound)
	}
	return rows[i], nil
}

// nextID draws from the counter but never hands out an id at or below one
// already stored, which matters for arrays written with timestamp ids.
func (b *BlobBackend) nextID(ctx context.Context, rows []models.Row) (int64, error) {
	id, err := b.store.Incr(ctx, BlobSeqKey)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate medication id: %w", err)
	}

	var max int64
	for _, r := range rows {
		if rid, ok := r.Int64(models.ColID); ok && rid > max {
			max = rid
		}
	}
	if id > max {
		return id, nil
	}

	id = max + 1
	if err := b.store.Set(ctx, BlobSeqKey, []byte(fmt.Sprint(id))); err != nil {
		return 0, fmt.Errorf("failed to advance medication id: %w", err)
	}
	b.logger.Debug(ctx, "advanced id counter past stored ids", "id", id)
	return id, nil
}

func (b *BlobBackend) Insert(ctx context.Context, r Record) (models.Row, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	id, err := b.nextID(ctx, rows)
	if err != nil {
		return nil, err
	}

	row := models.Row{
		models.ColID:         id,
		models.ColName:       r.Name,
		models.ColDose:       r.Dose,
		models.ColFrequency:  r.Frequency,
		models.ColNotes:      nullable(r.Notes),
		models.ColStartTime:  nullable(r.StartTime),
		models.ColCreatedAt:  models.FormatTime(r.CreatedAt),
		models.ColOwnerEmail: nullable(r.OwnerEmail),
	}
	rows = append([]models.Row{row}, rows...)

	if err := b.save(ctx, rows, r.OwnerEmail); err != nil {
		return nil, err
	}
	return row, nil
}

func (b *BlobBackend) Update(ctx context.Context, id int64, p Patch, f Filter) (int64, error) {
	fields := p.fields()
	if len(fields) == 0 {
		return 0, ErrEmptyPatch
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rows, err := b.load(ctx)
	if err != nil {
		return 0, err
	}
	i := indexOf(rows, id)
	if i < 0 || !permitted(rows[i], f) {
		return 0, nil
	}

	row := rows[i]
	prevOwner := row.String(models.ColOwnerEmail)
	for _, fl := range fields {
		v := any(*fl.value)
		if fl.col != models.ColName && fl.col != models.ColDose && fl.col != models.ColFrequency {
			v = nullable(*fl.value)
		}
		setField(row, fl.col, v)
	}

	if err := b.save(ctx, rows, prevOwner, row.String(models.ColOwnerEmail)); err != nil {
		return 0, err
	}
	return 1, nil
}

func (b *BlobBackend) Delete(ctx context.Context, id int64, f Filter) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows, err := b.load(ctx)
	if err != nil {
		return 0, err
	}
	i := indexOf(rows, id)
	if i < 0 || !permitted(rows[i], f) {
		return 0, nil
	}

	owner := rows[i].String(models.ColOwnerEmail)
	rows = append(rows[:i], rows[i+1:]...)

	if err := b.save(ctx, rows, owner); err != nil {
		return 0, err
	}
	return 1, nil
}
