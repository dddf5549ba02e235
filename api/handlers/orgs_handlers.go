package handlers

import (
	"net/http"
	"sort"

	"korgan-irp/core/orgscope"
	"korgan-irp/core/store"
	"korgan-irp/core/utils"
)

type OrgsHandler struct {
	orgs   OrgDirectory
	logger *utils.Logger
}

func NewOrgsHandler(orgs OrgDirectory, logger *utils.Logger) *OrgsHandler {
	return &OrgsHandler{orgs: orgs, logger: logger}
}

type orgNode struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Tier     string     `json:"tier"`
	Children []*orgNode `json:"children,omitempty"`
}

// Tree renders the caller's visible slice of the org hierarchy: the whole
// tree for MCHS, the caller's subtree for DCHS.
func (h *OrgsHandler) Tree(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	caller := callerFor(h.orgs, sess)
	if err := orgscope.AssertTreeAccess(caller.Tier); err != nil {
		writeDomainError(w, err)
		return
	}
	units := h.orgs.Units()
	visible := map[string]struct{}{}
	if caller.Tier == store.TierMCHS {
		for _, u := range units {
			visible[u.ID] = struct{}{}
		}
	} else {
		visible = orgscope.BuildOrgSet(units, caller.OrgUnitID)
	}
	writeJSON(w, http.StatusOK, map[string]any{"tree": buildOrgTree(units, visible)})
}

func buildOrgTree(units []store.OrgUnit, visible map[string]struct{}) []*orgNode {
	nodes := map[string]*orgNode{}
	for _, u := range units {
		if _, ok := visible[u.ID]; !ok {
			continue
		}
		nodes[u.ID] = &orgNode{ID: u.ID, Name: u.Name, Tier: u.Tier}
	}
	var roots []*orgNode
	for _, u := range units {
		node, ok := nodes[u.ID]
		if !ok {
			continue
		}
		if u.ParentID != nil {
			if parent, ok := nodes[*u.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	sortOrgNodes(roots)
	return roots
}

func sortOrgNodes(nodes []*orgNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	for _, n := range nodes {
		sortOrgNodes(n.Children)
	}
}
