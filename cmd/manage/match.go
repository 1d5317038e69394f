package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tulul/tululbot/internal/bot"
	"github.com/tulul/tululbot/internal/commands"
)

func newMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match <text>",
		Short: "Show which command a message would dispatch to",
		Long: `Run a message through the command table without calling any handler
or upstream, and print the command name with its arguments.

Examples:
  manage match "/leli jakarta"
  manage match "/kawin"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := bot.NewRegistry()
			if err := commands.Register(r, commands.Deps{}); err != nil {
				return fmt.Errorf("register commands: %w", err)
			}

			name, matched, ok := r.Match(args[0])
			if !ok {
				cmd.Println("no match")
				return nil
			}
			cmd.Println(name)
			for i, arg := range matched {
				label := arg.Name
				if label == "" {
					label = strconv.Itoa(i + 1)
				}
				if !arg.Matched {
					cmd.Printf("  %s: (unmatched)\n", label)
					continue
				}
				cmd.Printf("  %s: %q\n", label, arg.Value)
			}
			return nil
		},
	}
}
