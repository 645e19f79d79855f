// Package statistics aggregates bot match results per strategy.
package statistics

import (
	"fmt"
	"math"
	"sort"

	"github.com/lox/mahjongforbots/internal/seat"
)

// MatchResult represents one seat's outcome in a single match
type MatchResult struct {
	Strategy  string
	Seat      seat.Seat
	Delta     int   // Points won or lost in this match
	Seed      int64 // Wall seed, for replay
	Won       bool
	SelfDrawn bool // Won on a self drawn tile
	DealtIn   bool // Discarded the tile another seat won on
	Draw      bool // Nobody won
	Reason    string
}

// SeatStats tracks statistics for one seat
type SeatStats struct {
	Matches int
	Sum     float64
	Sum2    float64
}

// Statistics tracks one strategy's results over many matches
type Statistics struct {
	Strategy string
	Matches  int
	Sum      float64
	Sum2     float64   // Sum of squares for variance calculation
	Values   []float64 // Store all values for median/percentile calculation

	Wins          int
	SelfDrawnWins int
	DealtIn       int
	Draws         int
	WinPoints     float64 // Points from matches won
	LossPoints    float64 // Points from matches not won
	AllPoints     float64 // Total points for sanity check

	SeatResults [seat.Count]SeatStats
}

// Mean returns the mean points per match
func (s *Statistics) Mean() float64 {
	if s.Matches == 0 {
		return 0
	}
	return s.Sum / float64(s.Matches)
}

// Variance returns the sample variance of all results
func (s *Statistics) Variance() float64 {
	if s.Matches < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.Sum2 - float64(s.Matches)*mean*mean) / float64(s.Matches-1)
}

// StdDev returns the sample standard deviation of all results
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean
func (s *Statistics) StdError() float64 {
	if s.Matches == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Matches))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// WinRate returns the share of matches won
func (s *Statistics) WinRate() float64 {
	if s.Matches == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Matches)
}

// Add incorporates one match result
func (s *Statistics) Add(result MatchResult) {
	if s.Strategy == "" {
		s.Strategy = result.Strategy
	}
	pts := float64(result.Delta)
	s.Matches++
	s.Sum += pts
	s.Sum2 += pts * pts
	s.Values = append(s.Values, pts)

	switch {
	case result.Won:
		s.Wins++
		if result.SelfDrawn {
			s.SelfDrawnWins++
		}
		s.WinPoints += pts
	case result.Draw:
		s.Draws++
		s.LossPoints += pts
	default:
		if result.DealtIn {
			s.DealtIn++
		}
		s.LossPoints += pts
	}
	s.AllPoints += pts

	if result.Seat.Valid() {
		sr := &s.SeatResults[result.Seat]
		sr.Matches++
		sr.Sum += pts
		sr.Sum2 += pts * pts
	}
}

// Median returns the median value of all results
func (s *Statistics) Median() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := s.sorted()
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// Percentile returns the value at the given percentile (0.0 to 1.0)
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := s.sorted()

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

func (s *Statistics) sorted() []float64 {
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)
	return sorted
}

// SeatMean returns the mean result from one seat
func (s *Statistics) SeatMean(st seat.Seat) float64 {
	if !st.Valid() {
		return 0
	}
	sr := s.SeatResults[st]
	if sr.Matches == 0 {
		return 0
	}
	return sr.Sum / float64(sr.Matches)
}

// IsLedgerBalanced checks if the accounting is consistent
func (s *Statistics) IsLedgerBalanced() bool {
	return math.Abs(s.AllPoints-s.WinPoints-s.LossPoints) <= 1e-6
}

// Validate performs consistency checks on the collected data
func (s *Statistics) Validate() error {
	if !s.IsLedgerBalanced() {
		return fmt.Errorf("ledger mismatch: all=%.2f, wins=%.2f, losses=%.2f",
			s.AllPoints, s.WinPoints, s.LossPoints)
	}
	if s.Matches <= 0 {
		return fmt.Errorf("invalid match count: %d", s.Matches)
	}
	if len(s.Values) != s.Matches {
		return fmt.Errorf("values length (%d) does not match match count (%d)", len(s.Values), s.Matches)
	}
	if s.Wins+s.Draws > s.Matches {
		return fmt.Errorf("wins (%d) and draws (%d) exceed matches (%d)", s.Wins, s.Draws, s.Matches)
	}
	if s.SelfDrawnWins > s.Wins {
		return fmt.Errorf("self drawn wins (%d) exceed wins (%d)", s.SelfDrawnWins, s.Wins)
	}
	seats := 0
	for _, sr := range s.SeatResults {
		seats += sr.Matches
	}
	if seats != s.Matches {
		return fmt.Errorf("seat totals (%d) do not match match count (%d)", seats, s.Matches)
	}
	return nil
}

// Table collects every strategy's results across a run.
type Table struct {
	Matches int
	Draws   int

	byName map[string]*Statistics
	order  []string
}

func NewTable() *Table {
	return &Table{byName: make(map[string]*Statistics)}
}

// AddMatch records all seats of one match. Scores must sum to zero.
func (t *Table) AddMatch(results []MatchResult) error {
	if len(results) != seat.Count {
		return fmt.Errorf("match has %d seats, want %d", len(results), seat.Count)
	}
	total := 0
	for _, r := range results {
		total += r.Delta
	}
	if total != 0 {
		return fmt.Errorf("match seed %d scores sum to %d", results[0].Seed, total)
	}

	t.Matches++
	if results[0].Draw {
		t.Draws++
	}
	for _, r := range results {
		st, ok := t.byName[r.Strategy]
		if !ok {
			st = &Statistics{Strategy: r.Strategy}
			t.byName[r.Strategy] = st
			t.order = append(t.order, r.Strategy)
		}
		st.Add(r)
	}
	return nil
}

// Strategy returns the statistics for one strategy.
func (t *Table) Strategy(name string) (*Statistics, bool) {
	st, ok := t.byName[name]
	return st, ok
}

// Strategies returns every strategy in the order first seen.
func (t *Table) Strategies() []*Statistics {
	out := make([]*Statistics, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.byName[name])
	}
	return out
}

// Validate checks every strategy and that the table as a whole is zero sum.
func (t *Table) Validate() error {
	if t.Matches == 0 {
		return fmt.Errorf("no matches recorded")
	}
	var net float64
	seats := 0
	for _, st := range t.Strategies() {
		if err := st.Validate(); err != nil {
			return fmt.Errorf("%s: %w", st.Strategy, err)
		}
		net += st.AllPoints
		seats += st.Matches
	}
	if math.Abs(net) > 1e-6 {
		return fmt.Errorf("table is not zero sum: %.2f", net)
	}
	if seats != t.Matches*seat.Count {
		return fmt.Errorf("seat results (%d) do not match %d matches", seats, t.Matches)
	}
	return nil
}
