package transport

import (
	"context"
	"fmt"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dswarm/dswarm/internal/schema"
	"github.com/dswarm/dswarm/internal/tree"
	"github.com/dswarm/dswarm/internal/xmljson"
)

// LoadSchema fetches and decodes a schema document.
func LoadSchema(ctx context.Context, src DocumentSource, reg *schema.Registry, name string) (*schema.Definition, error) {
	raw, err := src.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	def, err := reg.Load(name, raw)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	return def, nil
}

// LoadInstance fetches an instance document. XML documents are flattened first.
func LoadInstance(ctx context.Context, src DocumentSource, name string) (any, error) {
	raw, err := src.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	return DecodeInstance(name, raw)
}

// DecodeInstance decodes raw by the document name's extension.
func DecodeInstance(name string, raw []byte) (any, error) {
	if strings.EqualFold(path.Ext(name), ".xml") {
		doc, err := xmljson.ConvertBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("instance %s: %w", name, err)
		}
		return doc, nil
	}
	doc, err := schema.DecodeInstance(raw)
	if err != nil {
		return nil, fmt.Errorf("instance %s: %w", name, err)
	}
	return doc, nil
}

// LoadTree fetches a schema and an instance concurrently and parses the
// instance against the schema. Either failure cancels the other fetch.
func LoadTree(ctx context.Context, schemas, instances DocumentSource, reg *schema.Registry, schemaName, instanceName string) (*tree.Node, error) {
	var (
		def *schema.Definition
		doc any
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		def, err = LoadSchema(gctx, schemas, reg, schemaName)
		return err
	})
	g.Go(func() error {
		var err error
		doc, err = LoadInstance(gctx, instances, instanceName)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	n := schema.ParseDocument(def, doc)
	if n == nil {
		return nil, fmt.Errorf("instance %s: no %q root: %w", instanceName, def.Title, ErrNotFound)
	}
	return n, nil
}
