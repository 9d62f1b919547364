package normaliser

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

// recordNamespace seeds deterministic record IDs.
var recordNamespace = uuid.MustParse("6f1c2b8e-4a3d-5e7f-9b10-2c3d4e5f6a7b")

// Normaliser converts sheet rows into delivery records.
type Normaliser struct {
	cfg       Config
	locations map[string]struct{}
}

// New creates a normaliser.
func New(cfg Config) *Normaliser {
	if cfg.CountryCode == "" {
		cfg.CountryCode = DefaultCountryCode
	}
	cfg.CountryCode = strings.TrimPrefix(cfg.CountryCode, "+")

	locations := cfg.KnownLocations
	if len(locations) == 0 {
		locations = DefaultKnownLocations
	}
	n := &Normaliser{cfg: cfg, locations: make(map[string]struct{}, len(locations))}
	for _, loc := range locations {
		if key := foldLocation(loc); key != "" {
			n.locations[key] = struct{}{}
		}
	}
	return n
}

// RecordID derives the stable identifier of a record.
func RecordID(trackingNumber string, row int) string {
	return uuid.NewSHA1(recordNamespace, []byte(trackingNumber+"|"+strconv.Itoa(row))).String()
}

// Normalise converts every non-blank row of sheet using mapping. Fields the
// mapping does not cover take their defaults. Duplicate tracking numbers are
// made unique by appending the row number.
func (n *Normaliser) Normalise(sheet *domain.Sheet, mapping *domain.FieldMapping) []domain.DeliveryRecord {
	if sheet == nil {
		return nil
	}

	records := make([]domain.DeliveryRecord, 0, len(sheet.Rows))
	seen := make(map[string]struct{}, len(sheet.Rows))
	for i, row := range sheet.Rows {
		if isBlank(row) {
			continue
		}
		rec := n.Row(row, i+1, mapping)

		tracking := rec.TrackingNumber
		if _, dup := seen[tracking]; dup {
			for {
				tracking += "-" + strconv.Itoa(rec.Row)
				if _, taken := seen[tracking]; !taken {
					break
				}
			}
			rec = n.retrack(rec, tracking)
		}
		seen[tracking] = struct{}{}
		records = append(records, rec)
	}
	return records
}

// Row normalises a single row. rowNum is the 1-based data row number.
func (n *Normaliser) Row(row []string, rowNum int, mapping *domain.FieldMapping) domain.DeliveryRecord {
	cell := func(f domain.Field) string {
		ref, ok := mapping.Column(f)
		if !ok {
			return ""
		}
		return strings.TrimSpace(domain.CellAt(row, ref.Index))
	}

	rec := domain.DeliveryRecord{Row: rowNum}

	rec.TrackingNumber = cell(domain.FieldTrackingNumber)
	if rec.TrackingNumber == "" {
		rec.TrackingNumber = "AUTO-" + strconv.Itoa(rowNum)
		rec.TrackingGenerated = true
	}

	rawName := cell(domain.FieldName)
	rec.Name, rec.NameKind = n.Name(rawName, rec.TrackingNumber)
	rec.Phone = n.Phone(cell(domain.FieldPhone))

	rec.Address = cell(domain.FieldAddress)
	if rec.Address == "" {
		rec.Address = domain.AddressUnknown
	}

	rec.RawStatus = cell(domain.FieldStatus)
	rec.Status = domain.ParseStatus(rec.RawStatus)
	rec.StatusDate = cell(domain.FieldStatusDate)
	rec.ScanDate = cell(domain.FieldScanDate)
	rec.AssignedTo = cell(domain.FieldAssignedTo)

	rec.ID = RecordID(rec.TrackingNumber, rowNum)
	return rec
}

// retrack renames a record after deduplication, keeping synthesised names
// in step with the new tracking number.
func (n *Normaliser) retrack(rec domain.DeliveryRecord, tracking string) domain.DeliveryRecord {
	old := rec.TrackingNumber
	rec.TrackingNumber = tracking
	if rec.NameKind == domain.NameMissing || rec.NameKind == domain.NameAuto {
		if rec.Name == autoName(old) {
			rec.Name = autoName(tracking)
		}
	}
	rec.ID = RecordID(tracking, rec.Row)
	return rec
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
