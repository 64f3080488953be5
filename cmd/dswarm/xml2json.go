package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/dswarm/dswarm/internal/xmljson"
)

func newXML2JSONCmd(root *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "xml2json FILE",
		Short: "Flatten an XML document into the @attr/#text JSON convention",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open xml: %w", err)
			}
			defer f.Close()

			doc, err := xmljson.Convert(f)
			if err != nil {
				return err
			}
			root.dump(cmd.ErrOrStderr(), "document", doc)

			out := oj.JSON(doc, &oj.Options{Indent: 2, Sort: true}) + "\n"
			if output == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), out)
				return err
			}
			if err := os.WriteFile(output, []byte(out), 0o644); err != nil {
				return fmt.Errorf("write json: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}
