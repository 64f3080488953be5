package main

import (
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	debug bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "dswarm",
		Short:         "Render schema and instance trees and prepare documents for the mapping workspace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "dump decoded values to stderr")

	cmd.AddCommand(
		newTreeCmd(opts),
		newXML2JSONCmd(opts),
		newPushCmd(opts),
	)
	return cmd
}

func (o *rootOptions) dump(w io.Writer, label string, v any) {
	if !o.debug {
		return
	}
	_, _ = io.WriteString(w, "--- "+label+"\n")
	spew.Fdump(w, v)
}
