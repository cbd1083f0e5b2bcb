package emit

import (
	"fmt"

	"github.com/Pico-ROS/picoros-typegen/internal/model"
)

// keyword maps a primitive kind to the C type the target library uses.
func keyword(k model.FieldKind) string {
	switch k {
	case model.KindBool:
		return "bool"
	case model.KindInt8:
		return "int8_t"
	case model.KindUint8:
		return "uint8_t"
	case model.KindInt16:
		return "int16_t"
	case model.KindUint16:
		return "uint16_t"
	case model.KindInt32:
		return "int32_t"
	case model.KindUint32:
		return "uint32_t"
	case model.KindInt64:
		return "int64_t"
	case model.KindUint64:
		return "uint64_t"
	case model.KindFloat32:
		return "float"
	case model.KindFloat64:
		return "double"
	case model.KindChar:
		return "char"
	case model.KindByte:
		return "uint8_t"
	case model.KindString:
		return "rstring"
	case model.KindNested:
		panic("keyword called for a nested field")
	}
	panic(fmt.Sprintf("unknown field kind %d", int(k)))
}
