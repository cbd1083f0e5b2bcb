// Package emit renders classified types and services as the macro header
// consumed by the pico-ros serialization library.
package emit

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Pico-ROS/picoros-typegen/internal/classify"
	"github.com/Pico-ROS/picoros-typegen/internal/graph"
	"github.com/Pico-ROS/picoros-typegen/internal/model"
	"github.com/Pico-ROS/picoros-typegen/internal/service"
)

// PlaceholderField is the member name the interface toolchain inserts into
// otherwise empty structures.
const PlaceholderField = "structure_needs_at_least_one_member"

const (
	placeholderEntry = "FIELD(uint8_t, empty)"
	emptyScalar      = "uint8_t"
	guard            = "GENERATED_TYPES_H"
)

// Result is a rendered header plus what went into it.
type Result struct {
	Header   []byte
	Types    []*model.TypeDescriptor    // emitted, in listing order
	Services []*model.ServiceDescriptor // emitted, in listing order
	Dropped  []model.Drop
	Cyclic   []string
}

type emitter struct {
	resolver *classify.Resolver
	dropped  map[model.QualifiedName]string
	logger   *slog.Logger
}

// Render sorts the message types by dependency, renders both listings and
// collects everything that had to be left out. Classification and Deps
// must already be set on every type.
func Render(
	types map[model.QualifiedName]*model.TypeDescriptor,
	services map[model.QualifiedName]*model.ServiceDescriptor,
	resolver *classify.Resolver,
	logger *slog.Logger,
) *Result {
	if logger == nil {
		logger = slog.Default()
	}
	e := &emitter{
		resolver: resolver,
		dropped:  make(map[model.QualifiedName]string),
		logger:   logger,
	}
	res := &Result{}

	byName := make(map[string]*model.TypeDescriptor, len(types))
	var nodes []string
	deps := make(map[string][]string, len(types))
	for name, td := range types {
		if name.IsService() {
			continue
		}
		key := name.String()
		byName[key] = td
		nodes = append(nodes, key)
		for _, d := range td.Deps {
			deps[key] = append(deps[key], d.String())
		}
	}

	order, cyclic := graph.Sort(nodes, deps)
	if len(cyclic) > 0 {
		logger.Warn("circular dependencies detected in types", "types", cyclic)
		res.Cyclic = cyclic
	}

	rendered := e.settle(order, byName, res)
	var entries []string
	for _, key := range order {
		entry, ok := rendered[key]
		if !ok {
			continue
		}
		entries = append(entries, entry)
		res.Types = append(res.Types, byName[key])
	}
	if n := len(res.Dropped); n > 0 {
		logger.Warn(fmt.Sprintf("dropped %d type(s) with unresolved field types", n), "types", dropNames(res.Dropped))
	}

	var srvEntries []string
	var droppedServices []model.Drop
	for _, sd := range service.Sorted(services) {
		entry, err := e.serviceEntry(sd)
		if err != nil {
			droppedServices = append(droppedServices, model.Drop{Name: sd.Name.String(), Reason: err.Error()})
			continue
		}
		srvEntries = append(srvEntries, entry)
		res.Services = append(res.Services, sd)
	}
	if n := len(droppedServices); n > 0 {
		logger.Warn(fmt.Sprintf("dropped %d service(s) due to unsupported field types", n), "services", dropNames(droppedServices))
		res.Dropped = append(res.Dropped, droppedServices...)
	}

	var b strings.Builder
	b.WriteString("/* Generated ROS message type definitions */\n")
	fmt.Fprintf(&b, "#ifndef %s\n", guard)
	fmt.Fprintf(&b, "#define %s\n\n", guard)
	b.WriteString("#define MSG_LIST(BTYPE, CTYPE, TTYPE, FIELD, ARRAY) \\\n")
	b.WriteString(strings.Join(entries, " \\\n"))
	b.WriteString("\n\n")
	if len(srvEntries) > 0 {
		b.WriteString("#define SRV_LIST(SRV, REQUEST, REPLY, FIELD, ARRAY) \\\n")
		b.WriteString(strings.Join(srvEntries, " \\\n"))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "#endif /* %s */\n", guard)

	res.Header = []byte(b.String())
	return res
}

// settle renders every type until the set of dropped types stops growing.
// A cycle can place a type ahead of a dependency that is dropped later, so a
// single pass in listing order is not enough. The entries returned all come
// from the last pass and reference no dropped type.
func (e *emitter) settle(order []string, byName map[string]*model.TypeDescriptor, res *Result) map[string]string {
	rendered := make(map[string]string, len(order))
	for changed := true; changed; {
		changed = false
		for _, key := range order {
			td := byName[key]
			if _, gone := e.dropped[td.Name]; gone {
				continue
			}
			entry, err := e.typeEntry(td)
			if err != nil {
				e.dropped[td.Name] = err.Error()
				delete(rendered, key)
				res.Dropped = append(res.Dropped, model.Drop{Name: key, Reason: err.Error()})
				changed = true
				continue
			}
			rendered[key] = entry
		}
	}
	return rendered
}

func (e *emitter) typeEntry(td *model.TypeDescriptor) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "    %s(%s, \\\n", td.Classification.Tag(), td.Name.Identifier())
	fmt.Fprintf(&b, "        \"%s\", \\\n", td.Name.InteropName())
	fmt.Fprintf(&b, "        \"%s\", \\\n", td.Hash)

	switch td.Classification {
	case model.ScalarAlias:
		kw := emptyScalar
		if len(td.Fields) > 0 {
			kw = keyword(td.Fields[0].Kind)
		}
		fmt.Fprintf(&b, "        %s \\\n", kw)
	case model.TypeAlias:
		target, err := e.fieldType(td.Fields[0])
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "        %s \\\n", target)
	case model.Compound:
		block, err := e.fieldBlock(td.Fields, "        ")
		if err != nil {
			return "", err
		}
		b.WriteString(block)
	}

	b.WriteString("    )")
	return b.String(), nil
}

func (e *emitter) serviceEntry(sd *model.ServiceDescriptor) (string, error) {
	request, err := e.fieldBlock(sd.Request.Fields, "            ")
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	response, err := e.fieldBlock(sd.Response.Fields, "            ")
	if err != nil {
		return "", fmt.Errorf("response: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "    SRV(%s, \\\n", sd.Name.ServiceIdentifier())
	fmt.Fprintf(&b, "        \"%s\", \\\n", sd.Name.InteropName())
	fmt.Fprintf(&b, "        \"%s\", \\\n", sd.Hash)
	b.WriteString("        REQUEST( \\\n")
	b.WriteString(request)
	b.WriteString("        ), \\\n")
	b.WriteString("        REPLY( \\\n")
	b.WriteString(response)
	b.WriteString("        ) \\\n")
	b.WriteString("    )")
	return b.String(), nil
}

// fieldBlock renders one FIELD/ARRAY line per field. A structure whose only
// member is the toolchain placeholder becomes a single byte.
func (e *emitter) fieldBlock(fields []model.Field, indent string) (string, error) {
	if len(fields) == 1 && fields[0].Name == PlaceholderField {
		return indent + placeholderEntry + " \\\n", nil
	}

	var b strings.Builder
	for _, f := range fields {
		typ, err := e.fieldType(f)
		if err != nil {
			return "", err
		}
		if f.Array {
			fmt.Fprintf(&b, "%sARRAY(%s, %s, %d) \\\n", indent, typ, f.Name, f.Capacity)
		} else {
			fmt.Fprintf(&b, "%sFIELD(%s, %s) \\\n", indent, typ, f.Name)
		}
	}
	return b.String(), nil
}

// fieldType resolves a field to a known type's identifier or a primitive
// keyword. References to unknown or dropped types do not resolve.
func (e *emitter) fieldType(f model.Field) (string, error) {
	if f.Kind != model.KindNested {
		return keyword(f.Kind), nil
	}
	target, ok := e.resolver.Lookup(f)
	if !ok {
		return "", fmt.Errorf("field %s: unresolved type %s", f.Name, f.TypeName())
	}
	if reason, gone := e.dropped[target]; gone {
		e.logger.Debug("reference to dropped type", "field", f.Name, "type", target.String(), "reason", reason)
		return "", fmt.Errorf("field %s: depends on dropped type %s", f.Name, target)
	}
	return target.Identifier(), nil
}

func dropNames(drops []model.Drop) []string {
	names := make([]string, len(drops))
	for i, d := range drops {
		names[i] = d.Name
	}
	return names
}
