package ingest

import "github.com/Pico-ROS/picoros-typegen/internal/model"

// kindEntry is one row of the type-id table produced by the generator.
type kindEntry struct {
	kind  model.FieldKind
	array bool
}

// Type ids come from the rosidl runtime field type enumeration. Ids absent
// from this table (long double, wide chars, bounded strings, nested arrays
// and all sequences) are not supported by the target library.
func lookupKind(id int) (kindEntry, bool) {
	switch id {
	case 1:
		return kindEntry{model.KindNested, false}, true
	case 2:
		return kindEntry{model.KindInt8, false}, true
	case 3:
		return kindEntry{model.KindUint8, false}, true
	case 4:
		return kindEntry{model.KindInt16, false}, true
	case 5:
		return kindEntry{model.KindUint16, false}, true
	case 6:
		return kindEntry{model.KindInt32, false}, true
	case 7:
		return kindEntry{model.KindUint32, false}, true
	case 8:
		return kindEntry{model.KindInt64, false}, true
	case 9:
		return kindEntry{model.KindUint64, false}, true
	case 10:
		return kindEntry{model.KindFloat32, false}, true
	case 11:
		return kindEntry{model.KindFloat64, false}, true
	case 13:
		return kindEntry{model.KindChar, false}, true
	case 15:
		return kindEntry{model.KindBool, false}, true
	case 16:
		return kindEntry{model.KindByte, false}, true
	case 17:
		return kindEntry{model.KindString, false}, true

	// Fixed size arrays
	case 50:
		return kindEntry{model.KindInt8, true}, true
	case 51:
		return kindEntry{model.KindUint8, true}, true
	case 52:
		return kindEntry{model.KindInt16, true}, true
	case 53:
		return kindEntry{model.KindUint16, true}, true
	case 54:
		return kindEntry{model.KindInt32, true}, true
	case 55:
		return kindEntry{model.KindUint32, true}, true
	case 56:
		return kindEntry{model.KindInt64, true}, true
	case 57:
		return kindEntry{model.KindUint64, true}, true
	case 58:
		return kindEntry{model.KindFloat32, true}, true
	case 59:
		return kindEntry{model.KindFloat64, true}, true
	case 61:
		return kindEntry{model.KindChar, true}, true
	case 63:
		return kindEntry{model.KindBool, true}, true
	case 64:
		return kindEntry{model.KindByte, true}, true
	case 65:
		return kindEntry{model.KindString, true}, true
	}
	return kindEntry{}, false
}
