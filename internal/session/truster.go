package session

import "github.com/chukul/sessionctl/internal/workspace"

// ListTruster returns the sessions of list whose chain of parents reaches
// id, directly or through other chained sessions, in list order.
func ListTruster(list []workspace.Session, id string) []workspace.Session {
	byID := make(map[string]workspace.Session, len(list))
	for _, s := range list {
		byID[s.ID] = s
	}

	var out []workspace.Session
	for _, s := range list {
		if s.ID != id && reaches(byID, s, id) {
			out = append(out, s)
		}
	}
	return out
}

func reaches(byID map[string]workspace.Session, s workspace.Session, target string) bool {
	seen := make(map[string]bool)
	for s.Chained != nil {
		parent := s.Chained.ParentSessionID
		if parent == target {
			return true
		}
		if seen[parent] {
			return false
		}
		seen[parent] = true

		next, ok := byID[parent]
		if !ok {
			return false
		}
		s = next
	}
	return false
}

// MFASource returns the IAM user session with an MFA device that starting
// id will ask a code for, following chained parents.
func MFASource(list []workspace.Session, id string) (workspace.Session, bool) {
	byID := make(map[string]workspace.Session, len(list))
	for _, s := range list {
		byID[s.ID] = s
	}

	seen := make(map[string]bool)
	for !seen[id] {
		seen[id] = true
		s, ok := byID[id]
		if !ok {
			return workspace.Session{}, false
		}
		switch {
		case s.Type == workspace.TypeAWSIAMUser && s.IAMUser != nil && s.IAMUser.MFADevice != "":
			return s, true
		case s.Type == workspace.TypeAWSIAMRoleChained && s.Chained != nil:
			id = s.Chained.ParentSessionID
		default:
			return workspace.Session{}, false
		}
	}
	return workspace.Session{}, false
}
