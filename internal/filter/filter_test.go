package filter

import (
	"testing"

	"github.com/yourorg/f1etl/pkg/types"
)

var grid = []types.Driver{
	{Number: 4, Code: "NOR"},
	{Number: 81, Code: "PIA"},
	{Number: 16, Code: "LEC"},
	{Number: 1, Code: "VER"},
}

func TestDriversKeepsEveryoneWithoutSelectors(t *testing.T) {
	kept, unknown := Drivers(grid, nil)
	if len(kept) != 4 || len(unknown) != 0 {
		t.Fatalf("expected all drivers, got %d kept %v unknown", len(kept), unknown)
	}
}

func TestDriversByCodeAndNumberKeepsProviderOrder(t *testing.T) {
	kept, unknown := Drivers(grid, []string{"ver, 81", "NOR"})
	if len(unknown) != 0 {
		t.Fatalf("unexpected unknown selectors %v", unknown)
	}
	if len(kept) != 3 {
		t.Fatalf("expected 3 drivers, got %d", len(kept))
	}
	if kept[0].Code != "NOR" || kept[1].Code != "PIA" || kept[2].Code != "VER" {
		t.Fatalf("expected provider order, got %+v", kept)
	}
}

func TestDriversReportsUnknownSelectors(t *testing.T) {
	kept, unknown := Drivers(grid, []string{"LEC", "HAM"})
	if len(kept) != 1 || kept[0].Code != "LEC" {
		t.Fatalf("expected LEC only, got %+v", kept)
	}
	if len(unknown) != 1 || unknown[0] != "HAM" {
		t.Fatalf("expected HAM unknown, got %v", unknown)
	}
}
