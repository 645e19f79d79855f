package simulator

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lox/mahjongforbots/internal/seat"
	"github.com/lox/mahjongforbots/internal/statistics"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true)

	positiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	negativeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#626262")).
			Padding(0, 1)
)

func signed(v float64) string {
	s := fmt.Sprintf("%+.3f", v)
	switch {
	case v > 0:
		return positiveStyle.Render(s)
	case v < 0:
		return negativeStyle.Render(s)
	}
	return s
}

// Summary renders a run's results, one box per strategy.
func Summary(table *statistics.Table, firstSeed int64) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("SIMULATION RESULTS"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Matches: %d  Draws: %d (%.1f%%)\n", table.Matches, table.Draws, pct(table.Draws, table.Matches))
	b.WriteString(infoStyle.Render(fmt.Sprintf("First seed: %d", firstSeed)))
	b.WriteString("\n")

	boxes := make([]string, 0, len(table.Strategies()))
	for _, st := range table.Strategies() {
		boxes = append(boxes, boxStyle.Render(strategySummary(st)))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n")
	return b.String()
}

func strategySummary(st *statistics.Statistics) string {
	var b strings.Builder
	low, high := st.ConfidenceInterval95()

	b.WriteString(sectionStyle.Render(st.Strategy))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Seats played: %d\n", st.Matches)
	fmt.Fprintf(&b, "Mean:     %s pts/match\n", signed(st.Mean()))
	fmt.Fprintf(&b, "Median:   %.1f\n", st.Median())
	fmt.Fprintf(&b, "Std Dev:  %.3f\n", st.StdDev())
	fmt.Fprintf(&b, "95%% CI:   [%.3f, %.3f]\n", low, high)
	fmt.Fprintf(&b, "P5/P95:   %.1f / %.1f\n", st.Percentile(0.05), st.Percentile(0.95))

	b.WriteString(sectionStyle.Render("Outcomes"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Wins:     %d (%.1f%%), %d self drawn\n", st.Wins, st.WinRate()*100, st.SelfDrawnWins)
	fmt.Fprintf(&b, "Dealt in: %d (%.1f%%)\n", st.DealtIn, pct(st.DealtIn, st.Matches))
	fmt.Fprintf(&b, "Draws:    %d\n", st.Draws)

	b.WriteString(sectionStyle.Render("By seat"))
	for _, s := range seat.All() {
		if st.SeatResults[s].Matches == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%-6s %4d  %s", s, st.SeatResults[s].Matches, signed(st.SeatMean(s)))
	}
	return b.String()
}

func pct(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of) * 100
}

// Report is the machine readable form of a run.
type Report struct {
	Seed       int64            `json:"seed"`
	Matches    int              `json:"matches"`
	Draws      int              `json:"draws"`
	Strategies []StrategyReport `json:"strategies"`
}

type StrategyReport struct {
	Name      string             `json:"name"`
	Seats     int                `json:"seats"`
	Mean      float64            `json:"mean"`
	StdDev    float64            `json:"stdDev"`
	CILow     float64            `json:"ciLow"`
	CIHigh    float64            `json:"ciHigh"`
	Median    float64            `json:"median"`
	Wins      int                `json:"wins"`
	SelfDrawn int                `json:"selfDrawn"`
	DealtIn   int                `json:"dealtIn"`
	Draws     int                `json:"draws"`
	WinRate   float64            `json:"winRate"`
	SeatMeans map[string]float64 `json:"seatMeans"`
}

// NewReport flattens a table for export.
func NewReport(table *statistics.Table, firstSeed int64) Report {
	r := Report{Seed: firstSeed, Matches: table.Matches, Draws: table.Draws}
	for _, st := range table.Strategies() {
		low, high := st.ConfidenceInterval95()
		sr := StrategyReport{
			Name:      st.Strategy,
			Seats:     st.Matches,
			Mean:      st.Mean(),
			StdDev:    st.StdDev(),
			CILow:     low,
			CIHigh:    high,
			Median:    st.Median(),
			Wins:      st.Wins,
			SelfDrawn: st.SelfDrawnWins,
			DealtIn:   st.DealtIn,
			Draws:     st.Draws,
			WinRate:   st.WinRate(),
			SeatMeans: make(map[string]float64, seat.Count),
		}
		for _, s := range seat.All() {
			if st.SeatResults[s].Matches > 0 {
				sr.SeatMeans[s.String()] = st.SeatMean(s)
			}
		}
		r.Strategies = append(r.Strategies, sr)
	}
	return r
}
