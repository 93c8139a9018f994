package ui

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/fabriziosalmi/k8s/internal/state"
)

// StatusReport is the read-only snapshot rendered by the status command.
type StatusReport struct {
	NodeState    state.NodeState
	NodeName     string
	Kubeconfig   string
	APIReachable bool
	Apps         []state.ManagedApp
}

// RenderStatus writes the status report as a table.
func RenderStatus(w io.Writer, report StatusReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"Node state", report.NodeState.String()},
		{"Node name", valueOrDash(report.NodeName)},
		{"Kubeconfig", report.Kubeconfig},
		{"API server", reachableText(report.APIReachable)},
	})
	t.Render()

	if len(report.Apps) == 0 {
		return
	}

	apps := table.NewWriter()
	apps.SetOutputMirror(w)
	apps.SetStyle(table.StyleLight)
	apps.AppendHeader(table.Row{"Application", "Namespace", "Ownership"})
	for _, app := range report.Apps {
		row := table.Row{app.Name, app.Namespace, app.Ownership.String()}
		apps.AppendRow(row)
	}
	apps.Render()
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func reachableText(ok bool) string {
	if ok {
		return text.FgGreen.Sprint("reachable")
	}
	return text.FgRed.Sprint("unreachable")
}
