package routes

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Locations is the fixed demo origin and destination (Mumbai).
var Locations = struct {
	Start Coordinate
	End   Coordinate
}{
	Start: Coordinate{Lat: 19.0760, Lng: 72.8777},
	End:   Coordinate{Lat: 19.0896, Lng: 72.8656},
}

// Route variant identifiers.
const (
	IDGreen  = "r_green"
	IDYellow = "r_yellow"
	IDRed    = "r_red"
)

// LineString is a GeoJSON LineString. Coordinates are [lng, lat] pairs.
type LineString struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// Route is one mock route as the UI expects it.
type Route struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Time        string     `json:"time"`
	Dist        string     `json:"dist"`
	SafetyScore int        `json:"safetyScore"`
	Level       string     `json:"level"`
	ColorCode   string     `json:"colorCode"`
	Polylines   LineString `json:"polylines"`
}

// variant is the static description of one route; the polyline is built
// from the waypoint offset at generation time.
type variant struct {
	id, name, time, dist, color string
	score                       int
	// offset of the single intermediate waypoint from start, in degrees.
	// midpoint is used instead when mid is true.
	dLat, dLng float64
	mid        bool
}

var variants = []variant{
	{id: IDGreen, name: "Main Route (Green)", time: "9 min", dist: "7.4 km", score: 98, color: "#22c55e", mid: true},
	{id: IDYellow, name: "Walker's Path (Yellow)", time: "9 min", dist: "7.4 km", score: 85, color: "#eab308", dLat: 0.005, dLng: 0.01},
	{id: IDRed, name: "Shortcut (Red)", time: "13 min", dist: "9.4 km", score: 60, color: "#ef4444", dLat: -0.005, dLng: -0.01},
}

// Generate returns the three mock routes between start and end.
func Generate(start, end Coordinate) []Route {
	out := make([]Route, 0, len(variants))
	for _, v := range variants {
		var wp [2]float64
		if v.mid {
			wp = [2]float64{(start.Lng + end.Lng) / 2, (start.Lat + end.Lat) / 2}
		} else {
			wp = [2]float64{start.Lng + v.dLng, start.Lat + v.dLat}
		}
		out = append(out, Route{
			ID:          v.id,
			Name:        v.name,
			Time:        v.time,
			Dist:        v.dist,
			SafetyScore: v.score,
			Level:       Level(float64(v.score)),
			ColorCode:   v.color,
			Polylines: LineString{
				Type: "LineString",
				Coordinates: [][2]float64{
					{start.Lng, start.Lat},
					wp,
					{end.Lng, end.Lat},
				},
			},
		})
	}
	return out
}

// IDs returns the known route variant identifiers in display order.
func IDs() []string {
	ids := make([]string, 0, len(variants))
	for _, v := range variants {
		ids = append(ids, v.id)
	}
	return ids
}

// BaseScore returns the static safety score for routeID and whether the
// variant is known.
func BaseScore(routeID string) (int, bool) {
	for _, v := range variants {
		if v.id == routeID {
			return v.score, true
		}
	}
	return 0, false
}
