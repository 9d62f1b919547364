package domain

// Field is a semantic attribute a source column may be mapped to.
type Field string

const (
	// FieldTrackingNumber is the parcel tracking code.
	FieldTrackingNumber Field = "trackingNumber"
	// FieldName is the customer name.
	FieldName Field = "name"
	// FieldPhone is the customer phone number.
	FieldPhone Field = "phone"
	// FieldAddress is the delivery address.
	FieldAddress Field = "address"
	// FieldStatus is the delivery status.
	FieldStatus Field = "status"
	// FieldStatusDate is when the status last changed.
	FieldStatusDate Field = "statusDate"
	// FieldScanDate is when the parcel was scanned in.
	FieldScanDate Field = "scanDate"
	// FieldAssignedTo is the courier responsible for the parcel.
	FieldAssignedTo Field = "assignedTo"
)

// AllFields lists every semantic field in assignment priority order.
// Anything that iterates fields must use this slice, never a map.
var AllFields = []Field{
	FieldTrackingNumber,
	FieldName,
	FieldPhone,
	FieldAddress,
	FieldStatus,
	FieldStatusDate,
	FieldScanDate,
	FieldAssignedTo,
}

// RequiredFields are always given a column, even a poor one.
var RequiredFields = []Field{
	FieldTrackingNumber,
	FieldName,
	FieldPhone,
	FieldAddress,
	FieldStatus,
}

// IsValid reports whether f is one of the known semantic fields.
func (f Field) IsValid() bool {
	for _, known := range AllFields {
		if f == known {
			return true
		}
	}
	return false
}

// IsRequired reports whether f is one of the required fields.
func (f Field) IsRequired() bool {
	for _, req := range RequiredFields {
		if f == req {
			return true
		}
	}
	return false
}
