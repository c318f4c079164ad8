package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/ksteinfeldt/gitswitch/internal/identity"
	"github.com/ksteinfeldt/gitswitch/internal/style"
	"golang.org/x/text/cases"
)

// filterByType keeps identities whose type label matches typ, ignoring case.
// An empty typ keeps everything.
func filterByType(ids []identity.Identity, typ string) []identity.Identity {
	if typ == "" {
		return ids
	}
	fold := cases.Fold()
	want := fold.String(typ)

	var out []identity.Identity
	for _, id := range ids {
		if fold.String(id.Type) == want {
			out = append(out, id)
		}
	}
	return out
}

func scopeLabel(id identity.Identity) string {
	if scope, ok := id.Scope(); ok {
		return string(scope)
	}
	return ""
}

// renderIdentities writes ids as a table. The active identity is marked
// with an asterisk.
func renderIdentities(w io.Writer, ids []identity.Identity) {
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		marker := " "
		if id.IsActive() {
			marker = "*"
		}
		rows = append(rows, []string{
			marker,
			strconv.Itoa(id.ID),
			id.Type,
			id.Name,
			id.Username,
			id.Email,
			scopeLabel(id),
		})
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("", "ID", "TYPE", "NAME", "USERNAME", "EMAIL", "SCOPE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			cell := lipgloss.NewStyle().PaddingRight(1)
			switch {
			case row == table.HeaderRow:
				return style.Header.PaddingRight(1)
			case row >= 0 && row < len(ids) && ids[row].IsActive():
				return style.Active.PaddingRight(1)
			}
			return cell
		})
	fmt.Fprintln(w, t.Render())
}

// renderIdentity writes the fields of one identity.
func renderIdentity(w io.Writer, id identity.Identity) {
	fmt.Fprintf(w, "%s %d\n", style.Bold.Render("Identity"), id.ID)
	fmt.Fprintf(w, "  Type:     %s\n", id.Type)
	fmt.Fprintf(w, "  Name:     %s\n", id.Name)
	fmt.Fprintf(w, "  Username: %s\n", id.Username)
	fmt.Fprintf(w, "  Email:    %s\n", id.Email)
	if id.AvatarURL != "" {
		fmt.Fprintf(w, "  Avatar:   %s\n", style.Dim.Render(id.AvatarURL))
	}
	if scope, ok := id.Scope(); ok {
		fmt.Fprintf(w, "  Active:   %s\n", style.Active.Render(string(scope)))
	} else {
		fmt.Fprintf(w, "  Active:   %s\n", style.Dim.Render("no"))
	}
}
