package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"career-twin/internal/conversation"
)

func newAskCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Resolve a single question and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.buildEngine()
			if err != nil {
				return err
			}
			question := strings.Join(args, " ")
			res := e.Resolve(cmd.Context(), conversation.New(), question)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return errors.Wrap(enc.Encode(res), "encode reply")
			}
			fmt.Fprintln(out, res.Text)
			fmt.Fprintf(out, "\n(source: %s)\n", res.Source)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the reply with its source as JSON")
	return cmd
}
