package main

import (
	"fmt"
	"strings"

	"veil/internal/progress"
	"veil/internal/workflow"
)

func (m model) View() string {
	var b strings.Builder
	b.WriteString("\n")
	for _, ln := range logoVeil {
		b.WriteString("  " + colored(cLime, ln) + "\n")
	}
	b.WriteString("  " + colored(cSub, logoTag) + "\n\n")

	switch m.phase {
	case phaseForm:
		m.viewForm(&b)
	case phaseRun:
		m.viewRun(&b)
	case phaseDone:
		m.viewDone(&b)
	}
	return b.String()
}

func (m model) viewForm(b *strings.Builder) {
	label := func(focus int, text string) string {
		if m.focus == focus {
			return colored(cLime, "> "+text)
		}
		return colored(cText, "  "+text)
	}

	fmt.Fprintf(b, "  %s\n", colored(cDim, "1 - SESSION"))
	fmt.Fprintf(b, "  %-28s %s\n", label(focusDomain, "Domain"), m.domain.render(m.focus == focusDomain))
	fmt.Fprintf(b, "  %-28s %s\n", label(focusPath, "Tunnel path"), m.path.render(m.focus == focusPath))
	fmt.Fprintf(b, "  %-28s %s\n", label(focusClient, "Client ID"), m.client.render(m.focus == focusClient))
	b.WriteString("\n")

	check := func(focus int, on bool, text string) {
		box := "[ ]"
		if on {
			box = "[x]"
		}
		fmt.Fprintf(b, "  %s %s\n", label(focus, box), colored(cText, text))
	}
	check(focusFresh, m.fresh, "Fresh install (wipe prior tunnel config and certificates)")
	check(focusCover, m.cover, "Generate cover website")
	check(focusFirewall, m.firewall, "Enable firewall (ufw: 22, 80, 443)")
	check(focusResolver, m.resolverFix, "Allow resolver fix (rewrite /etc/resolv.conf if broken)")
	b.WriteString("\n")

	start := "  [ Start provisioning ]"
	if m.focus == focusStart {
		start = colored(cLime, "> [ Start provisioning ]")
	} else {
		start = colored(cText, start)
	}
	b.WriteString("  " + start + "\n")

	if m.err != "" {
		b.WriteString("\n  " + colored(cErr, m.err) + "\n")
	}
	b.WriteString("\n  " + colored(cSub, "tab/enter: next field · space: toggle · esc: quit") + "\n")
}

func (m model) viewRun(b *strings.Builder) {
	fmt.Fprintf(b, "  %s\n\n", colored(cDim, "2 - PROVISIONING "+m.state.Session.Domain))

	for _, s := range m.steps {
		icon := colored(cSub, "○")
		label := colored(cSub, s.Label)
		switch s.State {
		case workflow.StepRunning:
			icon = colored(cLime, string(spinnerFrames[m.spinnerTick]))
			label = colored(cText, s.Label)
		case workflow.StepDone:
			icon = colored(cOK, "✓")
			label = colored(cText, s.Label)
		case workflow.StepSkipped:
			icon = colored(cSub, "-")
			label = colored(cSub, s.Label+" (skipped)")
		case workflow.StepFailed:
			icon = colored(cErr, "✗")
			label = colored(cErr, s.Label)
		}
		fmt.Fprintf(b, "  %s %s\n", icon, label)
		if s.State == workflow.StepFailed && s.Err != "" {
			fmt.Fprintf(b, "      %s\n", colored(cErr, firstLine(s.Err)))
		}
	}

	b.WriteString("\n")
	fmt.Fprintf(b, "  %s %s  %s\n",
		colored(cLime, m.report.Bar()),
		colored(cText, fmt.Sprintf("%3d%%", m.report.Percent)),
		colored(cSub, fmt.Sprintf("elapsed %s · remaining %s",
			progress.FormatDuration(m.report.Elapsed),
			progress.FormatDuration(m.report.Remain))))

	if n := len(m.state.Warnings); n > 0 {
		b.WriteString("\n")
		start := 0
		if n > 4 {
			start = n - 4
		}
		for _, w := range m.state.Warnings[start:] {
			fmt.Fprintf(b, "  %s %s\n", colored(cWarn, "!"), colored(cWarn, firstLine(w)))
		}
	}

	if m.fatal != "" {
		fmt.Fprintf(b, "\n  %s\n", colored(cErr, m.fatal))
		b.WriteString("  " + colored(cSub, "q: quit") + "\n")
	}
}

func (m model) viewDone(b *strings.Builder) {
	fmt.Fprintf(b, "  %s\n\n", colored(cDim, "3 - DONE"))
	for _, ln := range strings.Split(strings.TrimRight(m.summary, "\n"), "\n") {
		b.WriteString("  " + ln + "\n")
	}
	b.WriteString("\n  " + colored(cSub, "q: quit (the report is printed again on exit)") + "\n")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
