package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/coreman2200/hidden-shades/internal/app"
	"github.com/coreman2200/hidden-shades/internal/globals"
	"github.com/coreman2200/hidden-shades/internal/layer"
	"github.com/coreman2200/hidden-shades/internal/shards"
	"github.com/coreman2200/hidden-shades/internal/stack"
	"github.com/coreman2200/hidden-shades/internal/store"
	"github.com/coreman2200/hidden-shades/internal/variables"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan, color.Bold)
	faint  = color.New(color.Faint)
)

func newInspectCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the persisted stacks, layers and variables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load()
			if err != nil {
				return err
			}
			s, closer, err := app.OpenStore(cfg)
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer.Close()
			}
			g, err := globals.New(store.Sub(s, "globals"))
			if err != nil {
				return err
			}
			reg := layer.NewRegistry()
			shards.Register(reg, shards.Deps{})
			m, err := stack.NewManager(store.Sub(s, "stacks"), app.LayerConstructor(app.Dim(cfg), g, reg))
			if err != nil {
				return err
			}
			printState(cmd.OutOrStdout(), g, m)
			return nil
		},
	}
}

func printVars(w io.Writer, indent string, m *variables.Manager) {
	dicts := m.Dicts()
	for _, name := range m.Names() {
		d := dicts[name]
		fmt.Fprintf(w, "%s%s = %s", indent, name, d.Value)
		if d.Value != d.Default {
			yellow.Fprintf(w, " (default %s)", d.Default)
		}
		fmt.Fprintln(w)
	}
}

func printState(w io.Writer, g *globals.Manager, m *stack.Manager) {
	cyan.Fprintln(w, "globals")
	printVars(w, "  ", g.Variables())

	for _, id := range m.IDs() {
		st, _ := m.Stack(id)
		fmt.Fprintln(w)
		cyan.Fprintf(w, "stack %s", id)
		if id == m.ActiveID() {
			green.Fprint(w, " (active)")
		}
		fmt.Fprintf(w, " %d layers\n", st.Len())
		for _, l := range st.Layers() {
			info := l.Info()
			shard := "<unbound>"
			if info.ShardUUID != nil {
				shard = *info.ShardUUID
			}
			fmt.Fprintf(w, "  [%d] layer %s shard %s", l.Index(), l.ID(), shard)
			if !info.Active {
				faint.Fprint(w, " inactive")
			}
			fmt.Fprintln(w)
			printVars(w, "      ", l.StandardVariables())
			printVars(w, "      ", l.Variables())
		}
	}
}
