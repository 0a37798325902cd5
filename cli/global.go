// Package cli wires vigild's kingpin subcommands around the config,
// pipeline, server, signature, and audit packages, the way
// aws-vault/cli wires its own subcommands around Vault and ConfigFile
// (teacher).
package cli

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/charmbracelet/lipgloss"
)

// Globals holds the flags every vigild subcommand can see, mirroring
// the teacher's AwsVault struct but stripped to what an edge security
// daemon actually needs: a debug switch and nothing keyring-shaped.
type Globals struct {
	Debug bool
}

var (
	styleOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	styleWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	styleErr  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleDim  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// ConfigureGlobals registers the flags shared across every subcommand.
func ConfigureGlobals(app *kingpin.Application) *Globals {
	g := &Globals{}

	app.Flag("debug", "Show debugging output").BoolVar(&g.Debug)

	app.PreAction(func(c *kingpin.ParseContext) error {
		if !g.Debug {
			log.SetOutput(io.Discard)
		}
		return nil
	})

	return g
}

func printOK(format string, a ...interface{}) {
	fmt.Fprintln(os.Stdout, styleOK.Render(fmt.Sprintf(format, a...)))
}

func printWarn(format string, a ...interface{}) {
	fmt.Fprintln(os.Stdout, styleWarn.Render(fmt.Sprintf(format, a...)))
}

func printErr(format string, a ...interface{}) {
	fmt.Fprintln(os.Stderr, styleErr.Render(fmt.Sprintf(format, a...)))
}
