// Package models holds the MediTrack domain types, the tolerant mapping from
// raw storage rows and the pure validation rules applied before any write.
package models
