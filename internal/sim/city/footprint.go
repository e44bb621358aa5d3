package city

import "micropolis.dev/internal/sim/tiles"

// ZoneKind is a multi-cell structure the zone tools can place.
type ZoneKind int

const (
	Residential ZoneKind = iota
	Commercial
	Industrial
	FireStation
	PoliceStation
	Stadium
	Seaport
	CoalPlant
	NuclearPlant
	Airport

	zoneKindCount
)

type zoneLayout struct {
	name   string
	size   int
	base   tiles.Tile
	center tiles.Tile
	cost   int
}

var zoneLayouts = [zoneKindCount]zoneLayout{
	Residential:   {"residential", 3, tiles.ResBase, tiles.ResBase + 4, 100},
	Commercial:    {"commercial", 3, tiles.ComBase, tiles.ComBase + 4, 100},
	Industrial:    {"industrial", 3, tiles.IndBase, tiles.IndBase + 4, 100},
	FireStation:   {"fire_station", 3, tiles.FireStBase, tiles.FireStation, 500},
	PoliceStation: {"police_station", 3, tiles.PoliceStBase, tiles.PoliceStation, 500},
	Stadium:       {"stadium", 4, tiles.StadiumBase, tiles.Stadium, 5000},
	Seaport:       {"seaport", 4, tiles.PortBase, tiles.Port, 3000},
	CoalPlant:     {"coal_plant", 4, tiles.CoalBase, tiles.PowerPlant, 3000},
	NuclearPlant:  {"nuclear_plant", 4, tiles.NuclearBase, tiles.Nuclear, 5000},
	Airport:       {"airport", 6, tiles.AirportBase, tiles.Airport, 10000},
}

func (k ZoneKind) Valid() bool { return k >= 0 && k < zoneKindCount }

func (k ZoneKind) String() string {
	if !k.Valid() {
		return "unknown"
	}
	return zoneLayouts[k].name
}

func (k ZoneKind) Size() int {
	if !k.Valid() {
		return 0
	}
	return zoneLayouts[k].size
}

// Cost is the base building price, before clearing fees.
func (k ZoneKind) Cost() int {
	if !k.Valid() {
		return 0
	}
	return zoneLayouts[k].cost
}

// Center is the type code written to the center cell.
func (k ZoneKind) Center() tiles.Tile {
	if !k.Valid() {
		return tiles.Dirt
	}
	return zoneLayouts[k].center
}

// KindForTool maps a structure tool to its kind.
func KindForTool(t tiles.Tool) (ZoneKind, bool) {
	switch t {
	case tiles.ToolResidential:
		return Residential, true
	case tiles.ToolCommercial:
		return Commercial, true
	case tiles.ToolIndustrial:
		return Industrial, true
	case tiles.ToolFireStation:
		return FireStation, true
	case tiles.ToolPoliceStation:
		return PoliceStation, true
	case tiles.ToolStadium:
		return Stadium, true
	case tiles.ToolSeaport:
		return Seaport, true
	case tiles.ToolPowerPlant:
		return CoalPlant, true
	case tiles.ToolNuclear:
		return NuclearPlant, true
	case tiles.ToolAirport:
		return Airport, true
	}
	return 0, false
}

// span returns the inclusive offset range covered by a footprint edge of the given size.
func span(size int) (lo, hi int) {
	switch size {
	case 3:
		return -1, 1
	case 4:
		return -1, 2
	case 6:
		return -2, 3
	}
	return 0, 0
}

// Footprint locates the center of a structure from one of its non-center cells.
type Footprint struct {
	Size int
	// Offset from the cell to its center.
	DX, DY int
}

var footprints map[tiles.Tile]Footprint

func init() {
	footprints = make(map[tiles.Tile]Footprint)
	for k := ZoneKind(0); k < zoneKindCount; k++ {
		l := zoneLayouts[k]
		lo, hi := span(l.size)
		p := 0
		for dy := lo; dy <= hi; dy++ {
			for dx := lo; dx <= hi; dx++ {
				if dx != 0 || dy != 0 {
					footprints[l.base+tiles.Tile(p)] = Footprint{Size: l.size, DX: -dx, DY: -dy}
				}
				p++
			}
		}
	}
}

// FootprintOf looks up a non-center footprint code.
func FootprintOf(code tiles.Tile) (Footprint, bool) {
	f, ok := footprints[code.Code()]
	return f, ok
}

// centerSize reports the footprint size of a center code, or 0 when the code is not one.
func centerSize(code tiles.Tile) int {
	c := code.Code()
	switch {
	case c >= tiles.ResBase && c <= tiles.LastInd:
		return 3
	case c >= tiles.FireStBase && c <= tiles.LastPoliceStation:
		return 3
	case c >= tiles.PortBase && c <= tiles.LastPort:
		return 4
	case c >= tiles.CoalBase && c <= tiles.LastPowerPlant:
		return 4
	case c >= tiles.StadiumBase && c <= tiles.LastStadium:
		return 4
	case c >= tiles.NuclearBase && c <= tiles.LastNuclear:
		return 4
	case c >= tiles.AirportBase && c <= tiles.LastAirport:
		return 6
	}
	return 0
}
