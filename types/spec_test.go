package types

import "testing"

func TestCloudStateActiveGroup(t *testing.T) {
	state := CloudState{
		Groups: []SecurityGroupState{
			{ID: "sg-old", Name: "web-servers"},
			{ID: "sg-new", Name: "edge-servers"},
		},
	}

	active := state.ActiveGroup("edge-servers")
	if active == nil {
		t.Fatal("ActiveGroup() = nil, want sg-new")
	}
	if active.ID != "sg-new" {
		t.Errorf("ActiveGroup().ID = %v, want sg-new", active.ID)
	}

	if state.ActiveGroup("absent") != nil {
		t.Error("ActiveGroup() for unknown name should be nil")
	}
}

func TestCloudStateStaleGroups(t *testing.T) {
	state := CloudState{
		Groups: []SecurityGroupState{
			{ID: "sg-old", Name: "web-servers"},
			{ID: "sg-new", Name: "edge-servers"},
		},
	}

	stale := state.StaleGroups("edge-servers")
	if len(stale) != 1 {
		t.Fatalf("StaleGroups() got %d groups, want 1", len(stale))
	}
	if stale[0].ID != "sg-old" {
		t.Errorf("StaleGroups()[0].ID = %v, want sg-old", stale[0].ID)
	}
}

func TestCloudStateInstanceByRole(t *testing.T) {
	state := CloudState{
		Instances: []InstanceState{
			{ID: "i-app", Role: "app-server"},
			{ID: "i-db", Role: "db-server"},
		},
	}

	got := state.InstanceByRole("db-server")
	if got == nil || got.ID != "i-db" {
		t.Errorf("InstanceByRole(db-server) = %v, want i-db", got)
	}

	if state.InstanceByRole("proxy-server") != nil {
		t.Error("InstanceByRole() for unknown role should be nil")
	}
}

func TestRoleTags(t *testing.T) {
	tags := RoleTags("app-server")

	if tags.Name != "app-server" {
		t.Errorf("Name = %v, want app-server", tags.Name)
	}
	if tags.Role != "app-server" {
		t.Errorf("Role = %v, want app-server", tags.Role)
	}
	if !tags.IsManaged() {
		t.Error("RoleTags() should be managed")
	}
}

func TestTagsRoundTrip(t *testing.T) {
	tags := RoleTags("db-server")
	got := TagsFromMap(tags.ToMap())

	if got != tags {
		t.Errorf("TagsFromMap(ToMap()) = %+v, want %+v", got, tags)
	}
}

func TestTagsFromMapUnmanaged(t *testing.T) {
	got := TagsFromMap(map[string]string{"Name": "bastion"})

	if got.IsManaged() {
		t.Error("resource without varusta:managed tag must not be managed")
	}
	if got.Name != "bastion" {
		t.Errorf("Name = %v, want bastion", got.Name)
	}
}
