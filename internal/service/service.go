// Package service pairs request and response types into services.
package service

import (
	"sort"

	"github.com/Pico-ROS/picoros-typegen/internal/model"
)

// Fragments collects the parts of one service family seen so far.
type Fragments struct {
	Base     *model.TypeDescriptor
	Request  *model.TypeDescriptor
	Response *model.TypeDescriptor
}

// Group buckets service-category types by base name. Event types are not
// used by the target library and are skipped.
func Group(types map[model.QualifiedName]*model.TypeDescriptor) map[model.QualifiedName]*Fragments {
	groups := make(map[model.QualifiedName]*Fragments)
	for name, td := range types {
		if !name.IsService() {
			continue
		}
		role, base := name.ServiceRole()
		if role == model.RoleEvent {
			continue
		}
		g, ok := groups[base]
		if !ok {
			g = &Fragments{}
			groups[base] = g
		}
		switch role {
		case model.RoleRequest:
			g.Request = td
		case model.RoleResponse:
			g.Response = td
		case model.RoleBase:
			g.Base = td
		}
	}
	return groups
}

// Finalize keeps the groups that have both a request and a response. The
// base type's hash is authoritative when present.
func Finalize(groups map[model.QualifiedName]*Fragments) map[model.QualifiedName]*model.ServiceDescriptor {
	services := make(map[model.QualifiedName]*model.ServiceDescriptor, len(groups))
	for name, g := range groups {
		if g.Request == nil || g.Response == nil {
			continue
		}
		hash := g.Request.Hash
		if g.Base != nil {
			hash = g.Base.Hash
		}
		services[name] = &model.ServiceDescriptor{
			Name:     name,
			Hash:     hash,
			Request:  g.Request,
			Response: g.Response,
		}
	}
	return services
}

// Sorted returns services ordered by base name.
func Sorted(services map[model.QualifiedName]*model.ServiceDescriptor) []*model.ServiceDescriptor {
	out := make([]*model.ServiceDescriptor, 0, len(services))
	for _, s := range services {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name.Less(out[j].Name) })
	return out
}
