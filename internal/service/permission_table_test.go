package service

import "testing"

func TestDefaultPermissionTable(t *testing.T) {
	table := DefaultPermissionTable()
	cases := []struct {
		role       string
		capability string
		want       bool
	}{
		{RoleAdmin, CanManageUsers, true},
		{RoleAdmin, "anythingAtAll", true},
		{RoleEditor, CanManageBlogs, true},
		{RoleEditor, CanCreatePreviews, true},
		{RoleEditor, CanHandleContacts, false},
		{RoleEditor, CanManageUsers, false},
		{RoleSupport, CanHandleContacts, true},
		{RoleSupport, CanManageVideos, false},
		{"", CanManageBlogs, false},
		{"intern", CanManageBlogs, false},
		{"", "", true},
	}
	for _, tc := range cases {
		if got := table.Allows(tc.role, tc.capability); got != tc.want {
			t.Fatalf("Allows(%q, %q)=%v want %v", tc.role, tc.capability, got, tc.want)
		}
	}
}

func TestPermissionTableCapabilitiesSorted(t *testing.T) {
	got := DefaultPermissionTable().Capabilities(RoleEditor)
	want := []string{CanCreatePreviews, CanManageBlogs, CanManageVideos, CanModerateComments}
	if len(got) != len(want) {
		t.Fatalf("unexpected capabilities: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("capabilities[%d]=%q want %q", i, got[i], want[i])
		}
	}
	if caps := DefaultPermissionTable().Capabilities("nobody"); len(caps) != 0 {
		t.Fatalf("unknown role must have no capabilities, got %v", caps)
	}
}

func TestPermissionTableIsolatedFromInput(t *testing.T) {
	grants := map[string][]string{"custom": {CanManageBlogs}}
	table := NewPermissionTable(grants)
	grants["custom"][0] = CanManageUsers
	grants["custom"] = append(grants["custom"], CanHandleContacts)

	if !table.Allows("custom", CanManageBlogs) || table.Allows("custom", CanManageUsers) {
		t.Fatal("table must not observe changes to its input")
	}
	if !table.KnownRole("custom") || table.KnownRole("other") {
		t.Fatal("unexpected KnownRole result")
	}
}
