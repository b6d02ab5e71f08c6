package rbac

import "strings"

type WorkspaceRole string
type ThreadRole string

const (
	WorkspaceAdmin  WorkspaceRole = "admin"
	WorkspaceMember WorkspaceRole = "member"
)

const (
	ThreadInitiator    ThreadRole = "initiator"
	ThreadMember       ThreadRole = "member"
	ThreadMessageOwner ThreadRole = "messageOwner"
)

func NormalizeWorkspaceRole(role string) WorkspaceRole {
	normalized := WorkspaceRole(strings.ToLower(strings.TrimSpace(role)))
	switch normalized {
	case WorkspaceAdmin, WorkspaceMember:
		return normalized
	default:
		return WorkspaceMember
	}
}

// CanRemoveThread: a plain "member" on both the workspace and the thread
// roster cannot remove a thread; workspace admins and holders of any
// non-"member" thread role can. threadRole is "" when the caller is not on
// the roster.
func CanRemoveThread(workspaceRole WorkspaceRole, threadRole ThreadRole) bool {
	if workspaceRole == WorkspaceAdmin {
		return true
	}
	return threadRole != "" && threadRole != ThreadMember
}

// CanRemoveMember encodes the member-removal rules: admins are never
// removable through this path, and while any member may remove a non-admin
// (including themselves), an admin cannot remove their own admin row.
func CanRemoveMember(callerRole, targetRole WorkspaceRole, callerIsTarget bool) (ok bool, reason string) {
	if targetRole == WorkspaceAdmin {
		if callerIsTarget {
			return false, "Can't remove admin ( you're an admin )"
		}
		return false, "Can't remove admin"
	}
	return true, ""
}
