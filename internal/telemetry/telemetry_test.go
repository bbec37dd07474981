package telemetry

import (
	"context"
	"strings"
	"testing"
)

func TestInitRegistersInstruments(t *testing.T) {
	shutdown, err := Init(Config{ServiceName: "varusta-test", ServiceVersion: "0.0.1"})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if PrometheusRegistry == nil {
		t.Fatal("PrometheusRegistry not set")
	}
	if PlansRun == nil || DriftDetected == nil || ApplyFailures == nil {
		t.Fatal("counters not initialized")
	}
	if PlanDuration == nil || ManagedResources == nil || SnapshotRevision == nil {
		t.Fatal("instruments not initialized")
	}
}

func TestRecordPlanExports(t *testing.T) {
	shutdown, err := Init(Config{ServiceName: "varusta-test"})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	RecordPlan(context.Background(), "us-east-1", 3, 0.42)
	RecordPlan(context.Background(), "us-east-1", 0, 0.10)

	families, err := PrometheusRegistry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	found := map[string]bool{}
	for _, fam := range families {
		name := fam.GetName()
		if strings.Contains(name, "varusta_plans_run") {
			found["plans"] = true
		}
		if strings.Contains(name, "varusta_drift_detected") {
			found["drift"] = true
		}
	}
	if !found["plans"] {
		t.Error("plans_run metric not exported")
	}
	if !found["drift"] {
		t.Error("drift_detected metric not exported")
	}
}

func TestRecordBeforeInit(t *testing.T) {
	PlansRun = nil
	DecisionsApplied = nil
	ApplyFailures = nil
	SnapshotRevision = nil

	// Must not panic when telemetry was never initialized.
	RecordPlan(context.Background(), "us-east-1", 1, 0.1)
	RecordDecisionApplied(context.Background(), "create", "instance")
	RecordApplyFailure(context.Background(), "delete", "security_group")
	RecordSnapshotRevision(context.Background(), 7)
}
