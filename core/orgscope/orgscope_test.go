package orgscope

import (
	"errors"
	"testing"

	"korgan-irp/core/store"
)

func strptr(s string) *string { return &s }

func testUnits() []store.OrgUnit {
	return []store.OrgUnit{
		{ID: "mchs", Tier: store.TierMCHS},
		{ID: "dchs-1", ParentID: strptr("mchs"), Tier: store.TierDCHS},
		{ID: "dchs-2", ParentID: strptr("mchs"), Tier: store.TierDCHS},
		{ID: "dist-1", ParentID: strptr("dchs-1"), Tier: store.TierDistrict},
		{ID: "dist-2", ParentID: strptr("dchs-1"), Tier: store.TierDistrict},
		{ID: "dist-3", ParentID: strptr("dchs-2"), Tier: store.TierDistrict},
	}
}

func TestBuildOrgSetDescendantsOnly(t *testing.T) {
	set := BuildOrgSet(testUnits(), "dchs-1")
	want := []string{"dchs-1", "dist-1", "dist-2"}
	if len(set) != len(want) {
		t.Fatalf("expected %d units, got %d: %v", len(want), len(set), set)
	}
	for _, id := range want {
		if _, ok := set[id]; !ok {
			t.Fatalf("missing %s in %v", id, set)
		}
	}
	for _, forbidden := range []string{"mchs", "dchs-2", "dist-3"} {
		if _, ok := set[forbidden]; ok {
			t.Fatalf("%s must not be in scope of dchs-1", forbidden)
		}
	}
}

func TestBuildOrgSetSurvivesCycle(t *testing.T) {
	units := []store.OrgUnit{
		{ID: "a", ParentID: strptr("b")},
		{ID: "b", ParentID: strptr("a")},
	}
	set := BuildOrgSet(units, "a")
	if len(set) != 2 {
		t.Fatalf("expected both nodes despite cycle, got %v", set)
	}
}

func TestAssertOrgScope(t *testing.T) {
	units := testUnits()
	caller := Caller{OrgUnitID: "dchs-1", Tier: store.TierDCHS}
	if err := AssertOrgScope(units, caller, "dist-2"); err != nil {
		t.Fatalf("dist-2 is inside dchs-1: %v", err)
	}
	err := AssertOrgScope(units, caller, "dist-3")
	if err == nil {
		t.Fatalf("dist-3 belongs to dchs-2, access must fail")
	}
	var sv *ScopeViolation
	if !errors.As(err, &sv) {
		t.Fatalf("expected ScopeViolation, got %T", err)
	}
	if sv.CallerOrgID != "dchs-1" || sv.RequestedOrgID != "dist-3" {
		t.Fatalf("violation details wrong: %+v", sv)
	}
}

func TestAssertOrgScopeMCHSBypasses(t *testing.T) {
	caller := Caller{OrgUnitID: "mchs", Tier: store.TierMCHS}
	if err := AssertOrgScope(testUnits(), caller, "dist-3"); err != nil {
		t.Fatalf("MCHS sees everything: %v", err)
	}
}

func TestScopeCondition(t *testing.T) {
	units := testUnits()
	if cond := ScopeCondition(units, Caller{OrgUnitID: "mchs", Tier: store.TierMCHS}); !cond.All {
		t.Fatalf("MCHS condition must be unrestricted: %+v", cond)
	}
	cond := ScopeCondition(units, Caller{OrgUnitID: "dchs-1", Tier: store.TierDCHS})
	if cond.All || len(cond.OrgIDs) != 3 {
		t.Fatalf("DCHS condition must cover its subtree: %+v", cond)
	}
	cond = ScopeCondition(units, Caller{OrgUnitID: "dist-1", Tier: store.TierDistrict})
	if cond.All || len(cond.OrgIDs) != 1 || cond.OrgIDs[0] != "dist-1" {
		t.Fatalf("district condition must be its own unit only: %+v", cond)
	}
}

func TestResolveRequestScope(t *testing.T) {
	units := testUnits()

	// defaults to caller's own unit
	set, err := ResolveRequestScope(units, Caller{OrgUnitID: "dist-1", Tier: store.TierDistrict}, "", false)
	if err != nil {
		t.Fatalf("own unit: %v", err)
	}
	if len(set) != 1 {
		t.Fatalf("expected single unit, got %v", set)
	}

	// district may not roll up, even over itself
	if _, err := ResolveRequestScope(units, Caller{OrgUnitID: "dist-1", Tier: store.TierDistrict}, "", true); err == nil {
		t.Fatalf("district rollup must fail")
	}

	set, err = ResolveRequestScope(units, Caller{OrgUnitID: "dchs-1", Tier: store.TierDCHS}, "dchs-1", true)
	if err != nil {
		t.Fatalf("dchs rollup: %v", err)
	}
	if len(set) != 3 {
		t.Fatalf("expected subtree of 3, got %v", set)
	}

	if _, err := ResolveRequestScope(units, Caller{OrgUnitID: "dchs-1", Tier: store.TierDCHS}, "dist-3", false); err == nil {
		t.Fatalf("sibling subtree access must fail")
	}
}
