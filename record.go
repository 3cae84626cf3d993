// Record format and identity invariants.
//
// A Record is born in Store.Insert and keeps its ID and CreatedAt for
// life; Upsert and the typed mutators (Increment, Decrement, Append,
// Prepend, PopBack, PopFront) replace Value and bump UpdatedAt but
// never touch ID or CreatedAt. Records are removed by DeleteByKey,
// DeleteByID, or TTL expiry in GC.
package alexdb

import (
	"time"

	"github.com/google/uuid"
)

// Record is an identified, timestamped, typed value under a unique key.
type Record struct {
	ID        uuid.UUID
	Key       string
	Value     Value
	CreatedAt time.Time
	UpdatedAt time.Time
	DeleteAt  *time.Time // nil when the record carries no TTL
}

// clone returns a deep copy so callers cannot mutate store-owned state
// through a returned Record (Array values share backing slices unless
// copied).
func (r Record) clone() Record {
	out := r
	var cloneValue func(v Value) Value
	cloneValue = func(v Value) Value {
		if v.Kind != KindArray {
			return v
		}
		items := make([]Value, len(v.Array))
		for i, item := range v.Array {
			items[i] = cloneValue(item)
		}
		v.Array = items
		return v
	}
	out.Value = cloneValue(r.Value)
	if r.DeleteAt != nil {
		t := *r.DeleteAt
		out.DeleteAt = &t
	}
	return out
}

// wireRecord is the on-disk shape for values.db (§4.3): nanosecond
// instants, a hex-encoded UUID, and the tagged Value encoding from
// value.go.
type wireRecord struct {
	ID        string `json:"id"`
	Key       string `json:"key"`
	Value     Value  `json:"value"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
	DeleteAt  *int64 `json:"delete_at,omitempty"`
}

func (r Record) toWire() wireRecord {
	w := wireRecord{
		ID:        r.ID.String(),
		Key:       r.Key,
		Value:     r.Value,
		CreatedAt: r.CreatedAt.UnixNano(),
		UpdatedAt: r.UpdatedAt.UnixNano(),
	}
	if r.DeleteAt != nil {
		ns := r.DeleteAt.UnixNano()
		w.DeleteAt = &ns
	}
	return w
}

func (w wireRecord) toRecord() (Record, error) {
	id, err := uuid.Parse(w.ID)
	if err != nil {
		return Record{}, err
	}
	r := Record{
		ID:        id,
		Key:       w.Key,
		Value:     w.Value,
		CreatedAt: time.Unix(0, w.CreatedAt).UTC(),
		UpdatedAt: time.Unix(0, w.UpdatedAt).UTC(),
	}
	if w.DeleteAt != nil {
		t := time.Unix(0, *w.DeleteAt).UTC()
		r.DeleteAt = &t
	}
	return r, nil
}
