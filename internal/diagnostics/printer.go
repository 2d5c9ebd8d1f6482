package diagnostics

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/oolong-lang/oolong/internal/token"
)

// Printer renders diagnostics to a writer, with color when the writer is a
// terminal.
type Printer struct {
	out   io.Writer
	color bool

	headStyle   lipgloss.Style
	sourceStyle lipgloss.Style
	msgStyle    lipgloss.Style
}

func NewPrinter(out io.Writer) *Printer {
	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return &Printer{
		out:         out,
		color:       color,
		headStyle:   lipgloss.NewStyle().Bold(true),
		sourceStyle: lipgloss.NewStyle().Faint(true),
		msgStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// Print writes one diagnostic in the report shape the language has always
// used: file and line, the offending lexeme, then the message.
func (p *Printer) Print(d *Diagnostic) {
	if !p.color {
		fmt.Fprintf(p.out, "%s\n\n", d.Error())
		return
	}

	fmt.Fprintln(p.out, p.headStyle.Render(fmt.Sprintf("File '%s', line %d", d.Module, d.Token.Line)))
	switch d.Token.Type {
	case token.EOF:
		fmt.Fprintln(p.out, p.msgStyle.Render("Error at end: "+d.Message))
	case token.ERROR:
		fmt.Fprintln(p.out, p.msgStyle.Render("Error: "+d.Message))
	default:
		fmt.Fprintln(p.out, p.sourceStyle.Render(fmt.Sprintf("%d | %s", d.Token.Line, d.Token.Lexeme)))
		fmt.Fprintln(p.out, p.msgStyle.Render(d.Message))
	}
	fmt.Fprintln(p.out)
}

// PrintAll writes every diagnostic in the list.
func (p *Printer) PrintAll(l List) {
	for _, d := range l {
		p.Print(d)
	}
}
