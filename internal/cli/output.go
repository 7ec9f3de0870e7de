package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/shinji-kodama/cvs-release/internal/release"
)

// Styles for the text summary. lipgloss drops the colors automatically
// when stdout is not a terminal.
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	labelStyle  = lipgloss.NewStyle().Faint(true)
	branchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

// resultJSON is the JSON shape of a release or check result.
type resultJSON struct {
	Status string `json:"status"`
	*release.Result
}

// printResult outputs res in text or JSON format, depending on the global
// --json flag.
func printResult(out io.Writer, verb string, res *release.Result) error {
	if IsJSONOutput() {
		return writeResultJSON(out, verb, res)
	}
	return writeResultText(out, verb, res)
}

func writeResultJSON(out io.Writer, verb string, res *release.Result) error {
	data, err := json.MarshalIndent(resultJSON{Status: strings.ToLower(verb), Result: res}, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func writeResultText(out io.Writer, verb string, res *release.Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", titleStyle.Render(fmt.Sprintf("%s %s", verb, res.Package)))
	fmt.Fprintf(&b, "  %s %s\n", labelStyle.Render("CVS root: "), res.CVSRoot)
	fmt.Fprintf(&b, "  %s %s\n", labelStyle.Render("Checkout: "), res.ModuleDir)
	fmt.Fprintf(&b, "  %s %s\n", labelStyle.Render("Spec file:"), res.SpecFile)
	if res.Tarball != "" {
		fmt.Fprintf(&b, "  %s %s\n", labelStyle.Render("Tarball:  "), res.Tarball)
	}
	fmt.Fprintf(&b, "  %s\n", labelStyle.Render("Branches:"))
	for _, br := range res.Branches {
		fmt.Fprintf(&b, "    %s\n", branchStyle.Render(br.String()))
	}
	_, err := io.WriteString(out, b.String())
	return err
}
