package tiles

import "testing"

func TestFlagsDisjointFromCodes(t *testing.T) {
	if ALLBITS&LOMASK != 0 {
		t.Fatalf("flag mask overlaps code mask")
	}
	if LastTile > LOMASK {
		t.Fatalf("last tile %d does not fit code mask", LastTile)
	}
	for _, f := range []Tile{PWRBIT, CONDBIT, BURNBIT, BULLBIT, ANIMBIT, ZONEBIT} {
		if f&ALLBITS != f {
			t.Fatalf("flag %#x outside ALLBITS", f)
		}
	}
}

func TestCategoryRangesDoNotOverlap(t *testing.T) {
	ranges := [][2]Tile{
		{RoadBase, LastRoad},
		{PowerBase, LastPower},
		{RailBase, LastRail},
		{ResBase, LastRes},
		{ComBase, LastCom},
		{IndBase, LastInd},
		{PortBase, LastPort},
		{AirportBase, LastAirport},
		{CoalBase, LastPowerPlant},
		{FireStBase, LastFireStation},
		{PoliceStBase, LastPoliceStation},
		{StadiumBase, LastStadium},
		{NuclearBase, LastNuclear},
		{TinyExp, LastTinyExp},
	}
	for i := range ranges {
		for j := i + 1; j < len(ranges); j++ {
			a, b := ranges[i], ranges[j]
			if a[0] <= b[1] && b[0] <= a[1] {
				t.Fatalf("ranges %v and %v overlap", a, b)
			}
		}
	}
}

func TestLabel(t *testing.T) {
	cases := []struct {
		tile Tile
		want string
	}{
		{Dirt, "Clear Land"},
		{River, "Water"},
		{Channel | BULLBIT, "Water"},
		{Roads | BULLBIT | BURNBIT, "Road"},
		{HBridge, "Road"},
		{HRail, "Rail"},
		{LHPower | CONDBIT, "Power Line"},
		{ResBase + 4 | ZONEBIT, "Residential Zone"},
		{PowerPlant | ZONEBIT, "Coal Power Plant"},
		{Nuclear, "Nuclear Power Plant"},
		{Airport, "Airport"},
		{Port, "Seaport"},
		{FireStation, "Fire Station"},
		{PoliceStation, "Police Station"},
		{Stadium, "Stadium"},
		{Rubble + 2, "Rubble"},
		{TreeBase, "Trees"},
		{RadTile, "Radiation"},
		{FireBase + 3, "Fire"},
		{Flood, "Flood"},
		{Woods, "Clear Land"},
	}
	for _, c := range cases {
		if got := Label(c.tile); got != c.want {
			t.Fatalf("Label(%d)=%q want %q", c.tile, got, c.want)
		}
	}
}

func TestToolTable(t *testing.T) {
	if ToolAirport.Size() != 6 || ToolNuclear.Size() != 4 || ToolResidential.Size() != 3 || ToolRoad.Size() != 1 {
		t.Fatalf("unexpected tool sizes")
	}
	if ToolQuery.Cost() != 0 || ToolAirport.Cost() != 10000 || ToolBulldozer.Cost() != 1 {
		t.Fatalf("unexpected tool costs")
	}
	for _, tool := range Tools() {
		got, ok := ParseTool(tool.String())
		if !ok || got != tool {
			t.Fatalf("ParseTool(%q)=%v,%v", tool.String(), got, ok)
		}
	}
	if _, ok := ParseTool("network"); ok {
		t.Fatalf("expected unknown tool")
	}
	if got, ok := ParseTool(" road "); !ok || got != ToolRoad {
		t.Fatalf("expected case-insensitive parse, got %v %v", got, ok)
	}
}
