package tiles

type labelRange struct {
	lo, hi Tile
	label  string
}

// Order matters: the first matching range wins.
var labelRanges = []labelRange{
	{ResBase, LastRes, "Residential Zone"},
	{ComBase, LastCom, "Commercial Zone"},
	{IndBase, LastInd, "Industrial Zone"},
	{PortBase, LastPort, "Seaport"},
	{AirportBase, LastAirport, "Airport"},
	{CoalBase, LastPowerPlant, "Coal Power Plant"},
	{NuclearBase, LastNuclear, "Nuclear Power Plant"},
	{FireStBase, LastFireStation, "Fire Station"},
	{PoliceStBase, LastPoliceStation, "Police Station"},
	{StadiumBase, LastStadium, "Stadium"},
	{RoadBase, LastRoad, "Road"},
	{RailBase, LastRail, "Rail"},
	{PowerBase, LastPower, "Power Line"},
	{River, Channel, "Water"},
	{Rubble, LastRubble, "Rubble"},
	{TreeBase, LastTree, "Trees"},
	{RadTile, RadTile, "Radiation"},
	{FireBase, LastFire, "Fire"},
	{Flood, LastFlood, "Flood"},
}

// Label returns the human readable category of a tile.
func Label(t Tile) string {
	c := t.Code()
	for _, r := range labelRanges {
		if c >= r.lo && c <= r.hi {
			return r.label
		}
	}
	return "Clear Land"
}
