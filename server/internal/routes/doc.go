// Package routes produces the mock safety routes served to the map UI and
// the scoring helpers that combine a route's base safety score with its
// community adjustment.
//
// Generate(start, end) always returns three variants between the two points:
//
//	r_green   Main Route      base score 98   safe
//	r_yellow  Walker's Path   base score 85   moderate
//	r_red     Shortcut        base score 60   risky
//
// No geocoding is performed; the server uses the fixed Locations pair.
package routes
