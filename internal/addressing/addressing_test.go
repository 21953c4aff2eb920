package addressing

import (
	"Go2WlanSpectra/internal/model"
	"errors"
	"testing"
)

func TestEncode_BlockLayout(t *testing.T) {
	// Two cells with one Modern station each use the first port of each block.
	p1, err := Encode(1, model.Modern, 0)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	p2, err := Encode(2, model.Modern, 0)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if p1 != 1000 || p2 != 2000 {
		t.Errorf("Expected ports 1000 and 2000, got %d and %d", p1, p2)
	}

	l, err := Encode(1, model.Legacy, 0)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if l != 1001 {
		t.Errorf("Expected legacy port 1001, got %d", l)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		port uint16
		cell int
		gen  model.Generation
	}{
		{1000, 1, model.Modern},
		{1001, 1, model.Legacy},
		{2998, 2, model.Modern},
		{2999, 2, model.Legacy},
		{999, NoCell, model.Legacy},
		{0, NoCell, model.Modern},
		{64997, 64, model.Legacy},
		{65000, NoCell, model.Modern},
		{65001, NoCell, model.Legacy},
		{65534, NoCell, model.Modern},
		{65535, NoCell, model.Legacy},
	}
	for _, tt := range tests {
		cell, gen := Decode(tt.port)
		if cell != tt.cell || gen != tt.gen {
			t.Errorf("Decode(%d) = (%d, %s), want (%d, %s)", tt.port, cell, gen, tt.cell, tt.gen)
		}
	}
}

func TestRoundTripAndInjective(t *testing.T) {
	seen := make(map[uint16]model.Station)
	for cell := 1; cell <= 3; cell++ {
		for _, gen := range []model.Generation{model.Modern, model.Legacy} {
			for idx := 0; idx < MaxStationsPerGeneration; idx++ {
				port, err := Encode(cell, gen, idx)
				if err != nil {
					t.Fatalf("Encode(%d, %s, %d) failed: %v", cell, gen, idx, err)
				}
				gotCell, gotGen := Decode(port)
				if gotCell != cell || gotGen != gen {
					t.Fatalf("Decode(Encode(%d, %s, %d)) = (%d, %s)", cell, gen, idx, gotCell, gotGen)
				}
				if StationIndex(port) != idx {
					t.Fatalf("StationIndex(%d) = %d, want %d", port, StationIndex(port), idx)
				}
				if prev, dup := seen[port]; dup {
					t.Fatalf("Port %d assigned twice: %+v and cell %d %s %d", port, prev, cell, gen, idx)
				}
				seen[port] = model.Station{Cell: cell, Generation: gen, Index: idx}
			}
		}
	}
}

func TestEncode_Boundaries(t *testing.T) {
	if _, err := Encode(1, model.Legacy, MaxStationsPerGeneration-1); err != nil {
		t.Errorf("Station 498 should fit, got %v", err)
	}
	if _, err := Encode(1, model.Modern, MaxStationsPerGeneration); !errors.Is(err, model.ErrConfig) {
		t.Errorf("Station 499 should exhaust the block, got %v", err)
	}
	if _, err := Encode(0, model.Modern, 0); !errors.Is(err, model.ErrConfig) {
		t.Errorf("Cell 0 has no block, got %v", err)
	}
	if _, err := Encode(MaxCells+1, model.Modern, 0); !errors.Is(err, model.ErrConfig) {
		t.Errorf("Cell %d would overflow the port space, got %v", MaxCells+1, err)
	}
}

func TestNewPlan(t *testing.T) {
	if _, err := NewPlan(2, 499, 499); err != nil {
		t.Errorf("499 stations per generation should be accepted, got %v", err)
	}
	if _, err := NewPlan(2, 500, 0); !errors.Is(err, model.ErrConfig) {
		t.Errorf("500 stations per generation should be rejected, got %v", err)
	}

	plan, err := NewPlan(2, 1, 1)
	if err != nil {
		t.Fatalf("NewPlan failed: %v", err)
	}
	port, err := plan.Port(model.Station{Cell: 1, Generation: model.Legacy, Index: 0})
	if err != nil || port != 2001 {
		t.Errorf("Expected port 2001, got %d (%v)", port, err)
	}
	if _, err := plan.Port(model.Station{Cell: 2}); err == nil {
		t.Errorf("Expected error for a cell outside the plan")
	}
	if plan.Contains(0) || !plan.Contains(2) || plan.Contains(3) {
		t.Errorf("Contains reports the wrong cell range")
	}
}
