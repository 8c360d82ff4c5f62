package service

import "sort"

const (
	CapabilityAll       = "*"
	CanManageBlogs      = "canManageBlogs"
	CanManageVideos     = "canManageVideos"
	CanModerateComments = "canModerateComments"
	CanCreatePreviews   = "canCreatePreviews"
	CanHandleContacts   = "canHandleContacts"
	CanManageUsers      = "canManageUsers"
)

const (
	RoleAdmin   = "admin"
	RoleEditor  = "editor"
	RoleSupport = "support"
)

// PermissionTable maps a role to the capabilities it grants. It has no
// mutators; build a new table instead.
type PermissionTable struct {
	roles map[string]map[string]struct{}
}

func NewPermissionTable(grants map[string][]string) PermissionTable {
	roles := make(map[string]map[string]struct{}, len(grants))
	for role, caps := range grants {
		set := make(map[string]struct{}, len(caps))
		for _, c := range caps {
			set[c] = struct{}{}
		}
		roles[role] = set
	}
	return PermissionTable{roles: roles}
}

func DefaultPermissionTable() PermissionTable {
	return NewPermissionTable(map[string][]string{
		RoleAdmin:   {CapabilityAll},
		RoleEditor:  {CanManageBlogs, CanManageVideos, CanModerateComments, CanCreatePreviews},
		RoleSupport: {CanHandleContacts},
	})
}

func (t PermissionTable) Allows(role, capability string) bool {
	if capability == "" {
		return true
	}
	set, ok := t.roles[role]
	if !ok {
		return false
	}
	if _, ok := set[CapabilityAll]; ok {
		return true
	}
	_, ok = set[capability]
	return ok
}

func (t PermissionTable) Capabilities(role string) []string {
	set := t.roles[role]
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (t PermissionTable) KnownRole(role string) bool {
	_, ok := t.roles[role]
	return ok
}
