package service

import (
	"testing"

	"github.com/Pico-ROS/picoros-typegen/internal/model"
)

func td(name, hash string) *model.TypeDescriptor {
	q, err := model.ParseQualifiedName(name)
	if err != nil {
		panic(err)
	}
	return &model.TypeDescriptor{Name: q, Hash: hash}
}

func index(tds ...*model.TypeDescriptor) map[model.QualifiedName]*model.TypeDescriptor {
	m := make(map[model.QualifiedName]*model.TypeDescriptor, len(tds))
	for _, t := range tds {
		m[t.Name] = t
	}
	return m
}

func TestGroupAndFinalize(t *testing.T) {
	t.Parallel()

	types := index(
		td("example_interfaces/srv/AddTwoInts", "base"),
		td("example_interfaces/srv/AddTwoInts_Request", "req"),
		td("example_interfaces/srv/AddTwoInts_Response", "resp"),
		td("example_interfaces/srv/AddTwoInts_Event", "event"),
		td("std_srvs/srv/Trigger_Request", "treq"),
		td("std_srvs/srv/Trigger_Response", "tresp"),
		td("pkg/srv/Get_Request", "only"),
		td("std_msgs/msg/String", "msg"),
	)

	groups := Group(types)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	add := groups[model.QualifiedName{Namespace: "example_interfaces", Category: model.Service, Name: "AddTwoInts"}]
	if add == nil || add.Base == nil || add.Request == nil || add.Response == nil {
		t.Fatalf("AddTwoInts fragments incomplete: %+v", add)
	}

	services := Sorted(Finalize(groups))
	if len(services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(services))
	}

	if services[0].Name.String() != "example_interfaces/srv/AddTwoInts" {
		t.Errorf("service 0 = %s", services[0].Name)
	}
	if services[0].Hash != "base" {
		t.Errorf("AddTwoInts hash = %q, want base hash", services[0].Hash)
	}
	if services[1].Name.String() != "std_srvs/srv/Trigger" {
		t.Errorf("service 1 = %s", services[1].Name)
	}
	if services[1].Hash != "treq" {
		t.Errorf("Trigger hash = %q, want request hash", services[1].Hash)
	}
}

func TestFinalizeIncomplete(t *testing.T) {
	t.Parallel()

	services := Finalize(Group(index(
		td("pkg/srv/Get_Request", "a"),
		td("pkg/srv/Put_Response", "b"),
		td("pkg/srv/Put", "c"),
	)))
	if len(services) != 0 {
		t.Errorf("expected no services, got %d", len(services))
	}
}

func TestGroupSkipsEventOnly(t *testing.T) {
	t.Parallel()

	groups := Group(index(td("pkg/srv/Ping_Event", "e")))
	if len(groups) != 0 {
		t.Errorf("event created a group: %+v", groups)
	}
}
