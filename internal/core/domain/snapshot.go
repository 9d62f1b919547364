package domain

import "time"

// Snapshot is the cached state of a source: its normalised records, the
// mapping used to produce them and the raw sheet they came from.
type Snapshot struct {
	SourceID string `json:"source_id"`

	Records []DeliveryRecord `json:"records"`

	Mapping *FieldMapping `json:"mapping,omitempty"`

	// Sheet is kept so a manual mapping override can re-normalise offline.
	Sheet *Sheet `json:"sheet,omitempty"`

	// HeaderHash fingerprints Sheet.Headers for mapping cache validity.
	HeaderHash string `json:"header_hash"`

	// SyncedAt is when the records were last fetched from the remote.
	SyncedAt time.Time `json:"synced_at"`

	// FromCache is set when a sync returned this snapshot without fetching.
	FromCache bool `json:"-"`
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Records = append([]DeliveryRecord(nil), s.Records...)
	c.Mapping = s.Mapping.Clone()
	c.Sheet = s.Sheet.Clone()
	return &c
}

// Find returns the record with the given ID.
func (s *Snapshot) Find(id string) (*DeliveryRecord, bool) {
	for i := range s.Records {
		if s.Records[i].ID == id {
			return &s.Records[i], true
		}
	}
	return nil, false
}

// Resolve finds a record by ID, falling back to its tracking number.
func (s *Snapshot) Resolve(id, trackingNumber string) (*DeliveryRecord, bool) {
	return ResolveRecord(s.Records, id, trackingNumber)
}

// ResolveRecord finds a record by ID, falling back to its tracking number.
func ResolveRecord(records []DeliveryRecord, id, trackingNumber string) (*DeliveryRecord, bool) {
	for i := range records {
		if records[i].ID == id {
			return &records[i], true
		}
	}
	if trackingNumber == "" {
		return nil, false
	}
	for i := range records {
		if records[i].TrackingNumber == trackingNumber {
			return &records[i], true
		}
	}
	return nil, false
}

// ApplyChange mutates records for a status change: the target alone for
// single updates, the target's whole customer group for batch updates.
// It returns the records that changed.
func ApplyChange(records []DeliveryRecord, target *DeliveryRecord, status Status, statusDate string, updateType UpdateType) []RecordRef {
	if updateType != UpdateBatch {
		target.ApplyStatus(status, statusDate)
		return []RecordRef{target.Ref()}
	}

	anchor := *target
	var changed []RecordRef
	for i := range records {
		if SameCustomer(&anchor, &records[i]) {
			records[i].ApplyStatus(status, statusDate)
			changed = append(changed, records[i].Ref())
		}
	}
	return changed
}

// CustomerGroup is a display group of records sharing a group key.
type CustomerGroup struct {
	Key     string
	Records []DeliveryRecord
	Counts  map[Status]int
}

// GroupRecords clusters records by GroupKey, preserving first-seen order.
func GroupRecords(records []DeliveryRecord) []CustomerGroup {
	index := make(map[string]int)
	var groups []CustomerGroup
	for i := range records {
		key := GroupKey(&records[i])
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, CustomerGroup{Key: key, Counts: make(map[Status]int)})
		}
		groups[pos].Records = append(groups[pos].Records, records[i])
		groups[pos].Counts[records[i].Status]++
	}
	return groups
}
