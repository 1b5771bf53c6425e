// Package rating maps a community safety rating (1 = very unsafe,
// 5 = very safe) to the signed delta applied to a route's adjustment.
//
// The table is deliberately asymmetric: low ratings move the adjustment
// further than high ratings so that safety reports surface quickly.
//
//	rating  delta
//	1       -10
//	2        -8
//	3         0
//	4        +3
//	5        +5
//
// Values outside 1..5 fall through to +5 in legacy mode. Policy.Strict turns
// that fallthrough into ErrOutOfRange instead.
package rating
