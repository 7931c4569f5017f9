// Package observerproto defines the wire messages of the observer
// websocket: a read-only stream of composed frames for external map
// viewers and debugging frontends.
package observerproto

// Version is the observer protocol version.
const Version = "0.1"

// Client -> Server. First message on the observer WS connection, and
// can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Camera target in hex tile coordinates.
	LookX     int `json:"look_x"`
	LookY     int `json:"look_y"`
	Elevation int `json:"elevation"`

	Roof bool `json:"roof"`
}

// HTTP response for GET /observer/v1/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string    `json:"protocol_version"`
	MapName         string    `json:"map_name"`
	MapParams       MapParams `json:"map_params"`
	Entrance        *TileRef  `json:"entrance,omitempty"`
	Elevations      []int     `json:"elevations"`
}

type MapParams struct {
	HexGridSize    int `json:"hex_grid_size"`
	SqrGridSize    int `json:"sqr_grid_size"`
	ViewportWidth  int `json:"viewport_width"`
	ViewportHeight int `json:"viewport_height"`
	AmbientLight   int `json:"ambient_light"`
}

type TileRef struct {
	X         int `json:"x"`
	Y         int `json:"y"`
	Elevation int `json:"elevation"`
}

// Server -> Client. One composed frame.
type FrameMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Frame           uint64 `json:"frame"`

	CameraX int `json:"camera_x"`
	CameraY int `json:"camera_y"`

	Entries []DrawEntry `json:"entries"`
}

// DrawEntry is one draw command in paint order.
type DrawEntry struct {
	Kind      string `json:"kind"`
	Elevation int    `json:"elevation"`
	Handle    uint32 `json:"handle,omitempty"`

	Sprite    string `json:"sprite,omitempty"`
	Direction int    `json:"direction,omitempty"`
	Frame     int    `json:"frame,omitempty"`

	X     int `json:"x"`
	Y     int `json:"y"`
	Light int `json:"light"`

	Placeholder bool `json:"placeholder,omitempty"`
}
