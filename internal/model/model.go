// Package model defines core data structures for picoros-typegen.
package model

import (
	"fmt"
	"strings"
)

// Category is the middle segment of a qualified name.
type Category string

const (
	Message Category = "msg"
	Service Category = "srv"
)

// ServiceRole tells which part of a service family a type describes.
type ServiceRole int

const (
	RoleBase ServiceRole = iota
	RoleRequest
	RoleResponse
	RoleEvent
)

const (
	requestSuffix  = "_Request"
	responseSuffix = "_Response"
	eventSuffix    = "_Event"
)

// QualifiedName identifies a type as namespace/category/short name.
type QualifiedName struct {
	Namespace string
	Category  Category
	Name      string
}

// ParseQualifiedName splits "pkg/msg/Name" into its three parts.
func ParseQualifiedName(s string) (QualifiedName, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return QualifiedName{}, fmt.Errorf("qualified name %q: want 3 parts, got %d", s, len(parts))
	}
	for _, p := range parts {
		if p == "" {
			return QualifiedName{}, fmt.Errorf("qualified name %q: empty part", s)
		}
	}
	return QualifiedName{Namespace: parts[0], Category: Category(parts[1]), Name: parts[2]}, nil
}

func (q QualifiedName) String() string {
	return q.Namespace + "/" + string(q.Category) + "/" + q.Name
}

// Identifier is the flattened C identifier used in the type listing.
func (q QualifiedName) Identifier() string {
	return "ros_" + q.Name
}

// ServiceIdentifier is the flattened C identifier used in the service listing.
func (q QualifiedName) ServiceIdentifier() string {
	return "srv_" + q.Name
}

// InteropName is the DDS-style name the middleware expects on the wire.
func (q QualifiedName) InteropName() string {
	return q.Namespace + "::" + string(q.Category) + "::dds_::" + q.Name
}

// IsService reports whether the name belongs to a service family.
func (q QualifiedName) IsService() bool {
	return q.Category == Service
}

// ServiceRole derives the role from the short-name suffix and returns the
// name with the suffix removed.
func (q QualifiedName) ServiceRole() (ServiceRole, QualifiedName) {
	base := q
	switch {
	case strings.HasSuffix(q.Name, eventSuffix):
		base.Name = strings.TrimSuffix(q.Name, eventSuffix)
		return RoleEvent, base
	case strings.HasSuffix(q.Name, requestSuffix):
		base.Name = strings.TrimSuffix(q.Name, requestSuffix)
		return RoleRequest, base
	case strings.HasSuffix(q.Name, responseSuffix):
		base.Name = strings.TrimSuffix(q.Name, responseSuffix)
		return RoleResponse, base
	}
	return RoleBase, base
}

// Less orders qualified names by their textual form.
func (q QualifiedName) Less(o QualifiedName) bool {
	return q.String() < o.String()
}

// FieldKind is the closed set of supported field kinds.
type FieldKind int

const (
	KindBool FieldKind = iota + 1
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindChar
	KindByte
	KindString
	KindNested
)

var kindNames = map[FieldKind]string{
	KindBool:    "bool",
	KindInt8:    "int8",
	KindUint8:   "uint8",
	KindInt16:   "int16",
	KindUint16:  "uint16",
	KindInt32:   "int32",
	KindUint32:  "uint32",
	KindInt64:   "int64",
	KindUint64:  "uint64",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindChar:    "char",
	KindByte:    "byte",
	KindString:  "string",
	KindNested:  "nested",
}

func (k FieldKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("FieldKind(%d)", int(k))
}

// IsPrimitive reports whether k is a built-in scalar kind.
func (k FieldKind) IsPrimitive() bool {
	return k >= KindBool && k <= KindString
}

// Field is one member of a type, in source order.
type Field struct {
	Name     string
	Kind     FieldKind
	Nested   QualifiedName // set when Kind == KindNested
	Array    bool
	Capacity int
}

// TypeName is the raw type string of the field: a primitive kind name or
// the qualified name of the nested type.
func (f Field) TypeName() string {
	if f.Kind == KindNested {
		return f.Nested.String()
	}
	return f.Kind.String()
}

// Classification is the derived shape of a type.
type Classification int

const (
	ScalarAlias Classification = iota + 1
	TypeAlias
	Compound
)

// Tag is the macro name the downstream library pattern-matches on.
func (c Classification) Tag() string {
	switch c {
	case ScalarAlias:
		return "BTYPE"
	case TypeAlias:
		return "TTYPE"
	case Compound:
		return "CTYPE"
	}
	panic(fmt.Sprintf("unknown classification %d", int(c)))
}

func (c Classification) String() string {
	switch c {
	case ScalarAlias:
		return "scalar_alias"
	case TypeAlias:
		return "type_alias"
	case Compound:
		return "compound"
	}
	return fmt.Sprintf("Classification(%d)", int(c))
}

// TypeDescriptor is one ingested type. Classification and Deps are filled
// in once by the classifier.
type TypeDescriptor struct {
	Name           QualifiedName
	Hash           string
	Fields         []Field
	Source         string // artifact path, for diagnostics
	Classification Classification
	Deps           []QualifiedName
}

// ServiceDescriptor pairs the request and response of one service.
type ServiceDescriptor struct {
	Name     QualifiedName
	Hash     string
	Request  *TypeDescriptor
	Response *TypeDescriptor
}

// Manifest is the interface-relevant content of a package manifest.
type Manifest struct {
	Name          string
	Dir           string
	Dependencies  []string
	HasInterfaces bool
}

// Package is a discovered package with its schema sources.
type Package struct {
	Manifest Manifest
	Sources  []string // absolute paths to schema source files, sorted
}

// Drop records an entity left out of the output and why.
type Drop struct {
	Name   string
	Reason string
}

// Report summarizes one generation for inspection.
type Report struct {
	Source   string // artifact directory
	Types    []*TypeDescriptor    // emitted, in listing order
	Services []*ServiceDescriptor // emitted, in listing order
	Dropped  []Drop
	Cyclic   []string
}
