package queue

import (
	"reflect"
	"testing"
)

func sweep(t *testing.T, marked map[string]struct{}, active ...string) ([]string, map[string]struct{}) {
	t.Helper()
	return collectStalled(marked, active)
}

func TestCollectStalledMarksBeforeCollecting(t *testing.T) {
	stalled, marked := sweep(t, nil, "j1", "j2")
	if len(stalled) != 0 {
		t.Fatalf("primer barrido no debe recolectar, got %v", stalled)
	}
	if len(marked) != 2 {
		t.Fatalf("marked = %d, want 2", len(marked))
	}

	// j1 sigue en active un intervalo después: huérfano. j2 fue ackeado.
	stalled, marked = sweep(t, marked, "j1")
	if !reflect.DeepEqual(stalled, []string{"j1"}) {
		t.Fatalf("stalled = %v, want [j1]", stalled)
	}
	if len(marked) != 0 {
		t.Fatalf("un job recolectado no debe quedar marcado: %v", marked)
	}
}

func TestCollectStalledForgetsAckedJobs(t *testing.T) {
	_, marked := sweep(t, nil, "j1")
	stalled, marked := sweep(t, marked) // active quedó vacío
	if len(stalled) != 0 || len(marked) != 0 {
		t.Fatalf("job ackeado no debe reaparecer: stalled=%v marked=%v", stalled, marked)
	}

	// Si vuelve a active (retomado tras el reencole) cuenta como nuevo.
	stalled, _ = sweep(t, marked, "j1")
	if len(stalled) != 0 {
		t.Fatalf("job retomado debe re-marcarse, no recolectarse: %v", stalled)
	}
}

func TestCollectStalledNewArrivalsInterleaved(t *testing.T) {
	_, marked := sweep(t, nil, "j1")
	stalled, marked := sweep(t, marked, "j1", "j2")
	if !reflect.DeepEqual(stalled, []string{"j1"}) {
		t.Fatalf("stalled = %v, want [j1]", stalled)
	}
	if _, ok := marked["j2"]; !ok || len(marked) != 1 {
		t.Fatalf("j2 debe quedar marcado para el próximo barrido: %v", marked)
	}
}
