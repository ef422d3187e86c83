package metrics

import "testing"

func TestNew_DisabledReturnsNil(t *testing.T) {
	if New(false) != nil {
		t.Fatal("expected nil Metrics when disabled")
	}
}

func TestNilMetrics_MethodsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveAPDUReceived("confirmed-request")
	m.ObserveAPDUSent("simple-ack")
	m.ObserveServiceError("property")
	m.SetDCCStatus(1)
	m.SetSegmentedTransactions(3)
	if m.Handler() != nil {
		t.Fatal("expected nil Handler on a nil Metrics")
	}
}

func TestNew_EnabledRecordsObservations(t *testing.T) {
	m := New(true)
	if m == nil {
		t.Fatal("expected non-nil Metrics when enabled")
	}
	m.ObserveAPDUReceived("confirmed-request")
	m.ObserveAPDUSent("complex-ack")
	m.ObserveServiceError("object")
	m.SetDCCStatus(2)
	m.SetSegmentedTransactions(1)
	if m.Handler() == nil {
		t.Fatal("expected a non-nil Handler when enabled")
	}
}
