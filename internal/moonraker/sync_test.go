package moonraker

import "testing"

func TestComputePlan_CreateMissing(t *testing.T) {
	desired := []DesiredWebcam{{UID: "deadbeefcafebabe", Name: "cam", StreamURL: "http://h:8889/deadbeefcafebabe/"}}

	plans := ComputePlan(desired, map[string]string{}, map[string]string{})
	if len(plans) != 1 || plans[0].Op != OpCreate {
		t.Fatalf("plans = %+v, want single create", plans)
	}
}

func TestComputePlan_NoOpWhenIdentical(t *testing.T) {
	desired := []DesiredWebcam{{UID: "deadbeefcafebabe", Name: "cam", StreamURL: "http://h:8889/deadbeefcafebabe/"}}
	observedStreamURL := map[string]string{"deadbeefcafebabe": "http://h:8889/deadbeefcafebabe/"}
	observedName := map[string]string{"deadbeefcafebabe": "cam"}

	plans := ComputePlan(desired, observedStreamURL, observedName)
	if len(plans) != 0 {
		t.Fatalf("plans = %+v, want none", plans)
	}
}

func TestComputePlan_ReplaceWhenStreamURLDiffers(t *testing.T) {
	desired := []DesiredWebcam{{UID: "deadbeefcafebabe", Name: "cam", StreamURL: "http://h:8889/deadbeefcafebabe/"}}
	observedStreamURL := map[string]string{"deadbeefcafebabe": "http://old:8889/deadbeefcafebabe/"}

	plans := ComputePlan(desired, observedStreamURL, map[string]string{})
	if len(plans) != 1 || plans[0].Op != OpReplace {
		t.Fatalf("plans = %+v, want single replace", plans)
	}
}

func TestComputePlan_RenameInPlaceWhenOnlyNameDiffers(t *testing.T) {
	desired := []DesiredWebcam{{UID: "deadbeefcafebabe", Name: "new_name", StreamURL: "http://h:8889/deadbeefcafebabe/"}}
	observedStreamURL := map[string]string{"deadbeefcafebabe": "http://h:8889/deadbeefcafebabe/"}
	observedName := map[string]string{"deadbeefcafebabe": "old_name"}

	plans := ComputePlan(desired, observedStreamURL, observedName)
	if len(plans) != 1 || plans[0].Op != OpRename {
		t.Fatalf("plans = %+v, want single rename (§4.7: name-only diff mutates in place)", plans)
	}
}

func TestComputePlan_NoRenameWhenNameUnobserved(t *testing.T) {
	// A uid missing from observedName means the name could not be read this
	// tick, not that it differs; steady state must stay a no-op (§8.2).
	desired := []DesiredWebcam{{UID: "deadbeefcafebabe", Name: "cam", StreamURL: "http://h:8889/deadbeefcafebabe/"}}
	observedStreamURL := map[string]string{"deadbeefcafebabe": "http://h:8889/deadbeefcafebabe/"}

	plans := ComputePlan(desired, observedStreamURL, map[string]string{})
	if len(plans) != 0 {
		t.Fatalf("plans = %+v, want none", plans)
	}
}

func TestComputePlan_DeletesOnlyOwnedKeys(t *testing.T) {
	observed := map[string]string{
		"printer-nozzle-cam":   "http://h:8889/printer-nozzle-cam/",
		"deadbeefcafebabe":     "http://h:8889/stale/",
	}

	plans := ComputePlan(nil, observed, map[string]string{})
	if len(plans) != 1 || plans[0].Op != OpDelete || plans[0].UID != "deadbeefcafebabe" {
		t.Fatalf("plans = %+v, want exactly one delete of the owned-looking uid", plans)
	}
}
