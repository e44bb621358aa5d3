package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	ClientName      string     `json:"client_name"`
	MaxQueue        int        `json:"max_queue,omitempty"`
	Auth            *HelloAuth `json:"auth,omitempty"`
}

type HelloAuth struct {
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	Tick            uint64      `json:"tick"`
	Funds           int         `json:"funds"`
	WorldParams     WorldParams `json:"world_params"`
	Tools           []ToolInfo  `json:"tools"`

	// Full row-major map as base64(uvarint tile, uvarint run) pairs; later changes arrive in STATE.
	MapRLE string `json:"map_rle,omitempty"`
}

type WorldParams struct {
	WorldID    string `json:"world_id"`
	TickRateHz int    `json:"tick_rate_hz"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Seed       int64  `json:"seed"`
}

type ToolInfo struct {
	Name string `json:"name"`
	Size int    `json:"size"`
	Cost int    `json:"cost"`
}

// TOOL (client -> server): apply one tool at a cell.
type ToolMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Tool            string `json:"tool"`
	X               int    `json:"x"`
	Y               int    `json:"y"`
}

// TOOL_RESULT (server -> client)
type ToolResultMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	ID              string     `json:"id"`
	Tick            uint64     `json:"tick"`
	Tool            string     `json:"tool"`
	X               int        `json:"x"`
	Y               int        `json:"y"`
	Result          string     `json:"result"`
	Code            string     `json:"code,omitempty"`
	Message         string     `json:"message,omitempty"`
	Cost            int        `json:"cost"`
	Funds           int        `json:"funds"`
	Query           *QueryInfo `json:"query,omitempty"`
}

type QueryInfo struct {
	Tile    uint16 `json:"tile"`
	Label   string `json:"label"`
	Powered bool   `json:"powered"`
}

// STATE (server -> client): broadcast after every tick that changed something.
type StateMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Tick            uint64      `json:"tick"`
	Funds           int         `json:"funds"`
	Power           *PowerState `json:"power,omitempty"`
	Changes         []CellDelta `json:"changes,omitempty"`
}

type PowerState struct {
	Capacity        int  `json:"capacity"`
	Used            int  `json:"used"`
	PoweredZones    int  `json:"powered_zones"`
	UnpoweredZones  int  `json:"unpowered_zones"`
	PoweredCells    int  `json:"powered_cells"`
	CapacityReached bool `json:"capacity_reached,omitempty"`
}

type CellDelta struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Tile uint16 `json:"tile"`
}
