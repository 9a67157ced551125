// Package report renders a compiled plan for the terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/strategy-compiler/internal/compiler"
	"github.com/kingrea/strategy-compiler/internal/planner"
	"github.com/kingrea/strategy-compiler/internal/stage"
	"github.com/kingrea/strategy-compiler/internal/strategy"
)

const none = "(none)"

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)
	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5C07B"))
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// Render formats the plan as a boxed summary: selected chains, dropped and
// inapplicable stages, and the options the compiled strategy switches off.
func Render(plan planner.Plan) string {
	header := headerStyle.Render(fmt.Sprintf("⬡ STRATC · %s", procedureName(plan.Base)))
	lines := []string{
		field("Meta chain", chainLine(plan.MetaChain)),
		field("Graph chain", chainLine(plan.GraphChain)),
		field("Entry point", procedureName(plan.MetaHead)),
		field("Dropped", kindsLine(plan.Dropped)),
		field("Not applicable", kindsLine(plan.NotApplicable)),
	}
	changes := strategy.Disabled(plan.Original, plan.Valid)
	if len(changes) == 0 {
		lines = append(lines, field("Strategy", mutedStyle.Render("unchanged")))
	} else {
		lines = append(lines, labelStyle.Render("Strategy changes:"))
		for _, name := range changes {
			lines = append(lines, warnStyle.Render(fmt.Sprintf("  %s: on → off", name)))
		}
	}
	return header + "\n" + boxStyle.Render(strings.Join(lines, "\n"))
}

func field(label, value string) string {
	return fmt.Sprintf("%s %s", labelStyle.Render(label+":"), value)
}

func chainLine(chain *compiler.Chain) string {
	if chain.Len() == 0 {
		return mutedStyle.Render(none)
	}
	names := make([]string, 0, chain.Len())
	for _, s := range chain.Stages() {
		names = append(names, s.Name())
	}
	return strings.Join(names, " → ")
}

func kindsLine(kinds []stage.Kind) string {
	if len(kinds) == 0 {
		return mutedStyle.Render(none)
	}
	parts := make([]string, len(kinds))
	for i, kind := range kinds {
		parts[i] = kind.String()
	}
	return strings.Join(parts, ", ")
}

func procedureName(p stage.Procedure) string {
	if p == nil {
		return none
	}
	return p.Name()
}
