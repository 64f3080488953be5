package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ohler55/ojg/jp"
	"github.com/spf13/cobra"

	"github.com/dswarm/dswarm/internal/schema"
	"github.com/dswarm/dswarm/internal/transport"
	"github.com/dswarm/dswarm/internal/tree"
)

type treeOptions struct {
	editable bool
	prune    bool
	root     string
}

func newTreeCmd(root *rootOptions) *cobra.Command {
	opts := &treeOptions{}
	cmd := &cobra.Command{
		Use:   "tree SCHEMA [INSTANCE]",
		Short: "Print the schema tree, or the instance tree parsed against the schema",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read schema: %w", err)
			}
			def, err := schema.Load(args[0], raw)
			if err != nil {
				return err
			}
			root.dump(cmd.ErrOrStderr(), "schema", def)

			var n *tree.Node
			if len(args) == 1 {
				n = schema.MapDocument(def, opts.editable)
			} else {
				n, err = parseInstanceFile(def, args[1], opts.root)
				if err != nil {
					return err
				}
				if opts.prune {
					n = tree.Prune(n)
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(n)
		},
	}
	cmd.Flags().BoolVar(&opts.editable, "editable", false, "mark schema nodes as having editable titles")
	cmd.Flags().BoolVar(&opts.prune, "prune", false, "drop empty nodes from instance trees")
	cmd.Flags().StringVar(&opts.root, "root", "", "JSONPath selecting the instance root (default: the schema title)")
	return cmd
}

func parseInstanceFile(def *schema.Definition, path, rootPath string) (*tree.Node, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read instance: %w", err)
	}
	doc, err := transport.DecodeInstance(path, raw)
	if err != nil {
		return nil, err
	}
	if rootPath == "" {
		n := schema.ParseDocument(def, doc)
		if n == nil {
			return nil, fmt.Errorf("instance has no %q root", def.Title)
		}
		return n, nil
	}

	x, err := jp.ParseString(rootPath)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", rootPath, err)
	}
	matches := x.Get(doc)
	if len(matches) == 0 {
		return nil, fmt.Errorf("jsonpath '%s' matched nothing", rootPath)
	}
	n := schema.ParseAny(matches[0], def.Title, def)
	if n == nil {
		return nil, fmt.Errorf("jsonpath '%s' does not match the schema", rootPath)
	}
	return n, nil
}
