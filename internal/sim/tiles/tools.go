package tiles

import "strings"

type Tool int

const (
	ToolResidential Tool = iota
	ToolCommercial
	ToolIndustrial
	ToolFireStation
	ToolPoliceStation
	ToolWire
	ToolRoad
	ToolRail
	ToolPark
	ToolStadium
	ToolSeaport
	ToolPowerPlant
	ToolNuclear
	ToolAirport
	ToolBulldozer
	ToolQuery

	toolCount
)

// Per-cell construction costs.
const (
	CostBulldoze       = 1
	CostBridgeBulldoze = 5
	CostRoad           = 10
	CostBridge         = 50
	CostRail           = 20
	CostTunnel         = 100
	CostWire           = 5
	CostUnderwaterWire = 25
	CostPark           = 10
	CostClearCell      = 1
)

type toolInfo struct {
	name string
	size int
	cost int
}

var toolTable = [toolCount]toolInfo{
	ToolResidential:   {"RESIDENTIAL", 3, 100},
	ToolCommercial:    {"COMMERCIAL", 3, 100},
	ToolIndustrial:    {"INDUSTRIAL", 3, 100},
	ToolFireStation:   {"FIRE_STATION", 3, 500},
	ToolPoliceStation: {"POLICE_STATION", 3, 500},
	ToolWire:          {"WIRE", 1, CostWire},
	ToolRoad:          {"ROAD", 1, CostRoad},
	ToolRail:          {"RAIL", 1, CostRail},
	ToolPark:          {"PARK", 1, CostPark},
	ToolStadium:       {"STADIUM", 4, 5000},
	ToolSeaport:       {"SEAPORT", 4, 3000},
	ToolPowerPlant:    {"POWER_PLANT", 4, 3000},
	ToolNuclear:       {"NUCLEAR", 4, 5000},
	ToolAirport:       {"AIRPORT", 6, 10000},
	ToolBulldozer:     {"BULLDOZER", 1, CostBulldoze},
	ToolQuery:         {"QUERY", 1, 0},
}

func (t Tool) Valid() bool { return t >= 0 && t < toolCount }

func (t Tool) String() string {
	if !t.Valid() {
		return "UNKNOWN"
	}
	return toolTable[t].name
}

// Size is the footprint edge length the tool covers (1, 3, 4 or 6).
func (t Tool) Size() int {
	if !t.Valid() {
		return 1
	}
	return toolTable[t].size
}

// Cost is the base price quoted for the tool; water variants and clearing fees are extra.
func (t Tool) Cost() int {
	if !t.Valid() {
		return 0
	}
	return toolTable[t].cost
}

func ParseTool(s string) (Tool, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i := Tool(0); i < toolCount; i++ {
		if toolTable[i].name == s {
			return i, true
		}
	}
	return 0, false
}

// Tools lists every tool in toolbar order.
func Tools() []Tool {
	out := make([]Tool, 0, toolCount)
	for i := Tool(0); i < toolCount; i++ {
		out = append(out, i)
	}
	return out
}
