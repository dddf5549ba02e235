// Package orgscope decides which organizational units a caller may see.
// All operations are pure in-memory walks over the org-unit list; safe for
// concurrent use without coordination.
package orgscope

import (
	"fmt"

	"korgan-irp/core/store"
)

// ScopeViolation reports a request for an org unit outside the caller's
// authorized subtree. It is a client error and never retried.
type ScopeViolation struct {
	CallerOrgID    string
	RequestedOrgID string
	Reason         string
}

func (e *ScopeViolation) Error() string {
	if e.Reason != "" {
		return "orgscope.error.scopeViolation: " + e.Reason
	}
	return fmt.Sprintf("orgscope.error.scopeViolation: org %s is outside the scope of %s", e.RequestedOrgID, e.CallerOrgID)
}

// Caller is the authenticated principal's organizational identity.
type Caller struct {
	OrgUnitID string
	Tier      string
}

// Condition is the declarative incident filter a caller's scope translates
// to. All=true means no org restriction (MCHS); otherwise OrgIDs is the
// exact permitted set.
type Condition struct {
	All    bool
	OrgIDs []string
}

// BuildOrgSet returns rootID plus every transitive descendant, walking
// parent pointers downward via a prebuilt child index. Runs in O(|units|).
// A visited set guards against cyclic parent references in bad data even
// though the data model forbids them.
func BuildOrgSet(units []store.OrgUnit, rootID string) map[string]struct{} {
	children := make(map[string][]string, len(units))
	for _, u := range units {
		if u.ParentID != nil {
			children[*u.ParentID] = append(children[*u.ParentID], u.ID)
		}
	}
	set := make(map[string]struct{})
	queue := []string{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, seen := set[id]; seen {
			continue
		}
		set[id] = struct{}{}
		queue = append(queue, children[id]...)
	}
	return set
}

// AssertOrgScope fails unless requestedOrgID lies inside the caller's
// subtree. An MCHS caller is treated as owning the whole tree.
func AssertOrgScope(units []store.OrgUnit, caller Caller, requestedOrgID string) error {
	if caller.Tier == store.TierMCHS {
		return nil
	}
	scope := BuildOrgSet(units, caller.OrgUnitID)
	if _, ok := scope[requestedOrgID]; !ok {
		return &ScopeViolation{CallerOrgID: caller.OrgUnitID, RequestedOrgID: requestedOrgID}
	}
	return nil
}

// AssertTreeAccess rejects hierarchical rollups for DISTRICT callers: a
// district has no descendants and must not probe siblings.
func AssertTreeAccess(callerTier string) error {
	switch callerTier {
	case store.TierMCHS, store.TierDCHS:
		return nil
	default:
		return &ScopeViolation{Reason: "tier " + callerTier + " may not request hierarchical rollups"}
	}
}

// ScopeCondition renders the caller's permitted scope as a store filter:
// unrestricted for MCHS, own subtree for DCHS, own unit only for DISTRICT.
func ScopeCondition(units []store.OrgUnit, caller Caller) Condition {
	switch caller.Tier {
	case store.TierMCHS:
		return Condition{All: true}
	case store.TierDCHS:
		set := BuildOrgSet(units, caller.OrgUnitID)
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		return Condition{OrgIDs: ids}
	default:
		return Condition{OrgIDs: []string{caller.OrgUnitID}}
	}
}

// ResolveRequestScope authorizes a report request and expands it to the org
// set the aggregator should scan: the requested unit alone, or its subtree
// when includeChildren is set.
func ResolveRequestScope(units []store.OrgUnit, caller Caller, requestedOrgID string, includeChildren bool) (map[string]struct{}, error) {
	if requestedOrgID == "" {
		requestedOrgID = caller.OrgUnitID
	}
	if err := AssertOrgScope(units, caller, requestedOrgID); err != nil {
		return nil, err
	}
	if !includeChildren {
		return map[string]struct{}{requestedOrgID: {}}, nil
	}
	if err := AssertTreeAccess(caller.Tier); err != nil {
		return nil, err
	}
	return BuildOrgSet(units, requestedOrgID), nil
}
