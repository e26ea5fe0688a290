package entity

// Window is a small, self-contained tree fragment built around one
// high-scoring candidate. Fragment is root-wrapped so it parses standalone.
type Window struct {
	Num      int
	Match    MatchInfo
	Score    float64
	Fragment string
}
