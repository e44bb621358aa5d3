package tiles

// Tile packs a type code (low 10 bits) with independent status flags (high 6 bits).
type Tile uint16

// Flag bits. They never overlap the code range.
const (
	PWRBIT  Tile = 0x8000
	CONDBIT Tile = 0x4000
	BURNBIT Tile = 0x2000
	BULLBIT Tile = 0x1000
	ANIMBIT Tile = 0x0800
	ZONEBIT Tile = 0x0400

	ALLBITS Tile = 0xfc00
	LOMASK  Tile = 0x03ff
)

// Type codes.
const (
	Dirt    Tile = 0
	River   Tile = 2
	REdge   Tile = 3
	Channel Tile = 4

	// Bridge helper tiles.
	HandBall Tile = 5
	LHBall   Tile = 6
	BRWH     Tile = 7
	BRWV     Tile = 8

	TreeBase Tile = 21
	LastTree Tile = 36
	Woods    Tile = 37

	Rubble     Tile = 44
	LastRubble Tile = 47
	Flood      Tile = 48
	LastFlood  Tile = 51
	RadTile    Tile = 52
	FireBase   Tile = 56
	LastFire   Tile = 63

	RoadBase Tile = 64
	HBridge  Tile = 64
	VBridge  Tile = 65
	Roads    Tile = 66
	LastRoad Tile = 206

	PowerBase Tile = 208
	HPower    Tile = 208
	VPower    Tile = 209
	LHPower   Tile = 210
	LVPower   Tile = 211
	LastPower Tile = 223

	RailBase Tile = 224
	HRail    Tile = 224
	VRail    Tile = 225
	LastRail Tile = 239

	ResBase Tile = 240
	LastRes Tile = 422
	ComBase Tile = 423
	LastCom Tile = 611
	IndBase Tile = 612
	LastInd Tile = 692

	PortBase Tile = 693
	Port     Tile = 698
	LastPort Tile = 708

	AirportBase Tile = 709
	Airport     Tile = 716
	LastAirport Tile = 744

	CoalBase       Tile = 745
	PowerPlant     Tile = 750
	LastPowerPlant Tile = 760

	FireStBase      Tile = 761
	FireStation     Tile = 765
	LastFireStation Tile = 769

	PoliceStBase      Tile = 770
	PoliceStation     Tile = 774
	LastPoliceStation Tile = 778

	StadiumBase Tile = 779
	Stadium     Tile = 784
	LastStadium Tile = 799

	NuclearBase Tile = 811
	Nuclear     Tile = 816
	LastNuclear Tile = 826

	TinyExp     Tile = 860
	SomeTinyExp Tile = 861
	LastTinyExp Tile = 867

	LastTile Tile = 960
)

// Code strips every flag.
func (t Tile) Code() Tile { return t & LOMASK }

// Flags strips the type code.
func (t Tile) Flags() Tile { return t & ALLBITS }

func (t Tile) Has(flag Tile) bool { return t&flag != 0 }

func (t Tile) Powered() bool    { return t&PWRBIT != 0 }
func (t Tile) Conductive() bool { return t&CONDBIT != 0 }
func (t Tile) ZoneCenter() bool { return t&ZONEBIT != 0 }

func inRange(c, lo, hi Tile) bool { return c >= lo && c <= hi }

// The predicates below look at the type code only.

func IsDirt(t Tile) bool { return t.Code() == Dirt }

func IsWater(t Tile) bool {
	c := t.Code()
	return c == River || c == REdge || c == Channel
}

func IsRubble(t Tile) bool  { return inRange(t.Code(), Rubble, LastRubble) }
func IsTinyExp(t Tile) bool { return inRange(t.Code(), TinyExp, LastTinyExp) }
func IsRoad(t Tile) bool    { return inRange(t.Code(), RoadBase, LastRoad) }
func IsRail(t Tile) bool    { return inRange(t.Code(), RailBase, LastRail) }
func IsWire(t Tile) bool    { return inRange(t.Code(), PowerBase, LastPower) }

// IsBridge reports road bridges and the helper tiles that sit on water.
func IsBridge(t Tile) bool {
	switch t.Code() {
	case HandBall, LHBall, BRWH, BRWV, HBridge, VBridge:
		return true
	}
	return false
}

// IsPlant reports the two power source center codes.
func IsPlant(t Tile) bool {
	c := t.Code()
	return c == PowerPlant || c == Nuclear
}

// Clearable reports cells that zone placement may clear for a fee.
func Clearable(t Tile) bool { return IsRubble(t) || IsTinyExp(t) }
