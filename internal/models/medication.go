package models

import "time"

// Medication is a user's medication entry.
//
// OwnerEmail is empty for legacy rows written before records were tied to
// accounts; such rows are visible to and editable by everyone.
type Medication struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Dose       string    `json:"dose"`
	Frequency  string    `json:"frequency"`
	Notes      string    `json:"notes,omitempty"`
	StartTime  string    `json:"start_time,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	OwnerEmail string    `json:"owner_email,omitempty"`
}

// MedicationFromRow maps a raw backend row to a Medication. Alternate key
// spellings and value encodings are tolerated; missing optional fields map
// to zero values.
func MedicationFromRow(row Row) Medication {
	id, _ := row.Int64(ColID)
	return Medication{
		ID:         id,
		Name:       row.String(ColName),
		Dose:       row.String(ColDose),
		Frequency:  row.String(ColFrequency),
		Notes:      row.String(ColNotes),
		StartTime:  row.String(ColStartTime),
		CreatedAt:  row.Time(ColCreatedAt),
		OwnerEmail: row.String(ColOwnerEmail),
	}
}

// MedicationsFromRows maps rows in order.
func MedicationsFromRows(rows []Row) []Medication {
	out := make([]Medication, 0, len(rows))
	for _, r := range rows {
		out = append(out, MedicationFromRow(r))
	}
	return out
}
