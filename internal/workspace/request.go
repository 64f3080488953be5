package workspace

import (
	"context"
	"encoding/json"
)

// Request is the body sent to the transformation backend.
type Request struct {
	Transformations []Transformation `json:"transformations"`
}

type Transformation struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Components []*Function `json:"components"`
	Source     *Anchor     `json:"source"`
	Target     *Anchor     `json:"target"`
}

// Transformer executes a transformation request and returns the raw reply.
type Transformer interface {
	Transform(ctx context.Context, req *Request) (json.RawMessage, error)
}

// TransformerFunc adapts a function to Transformer.
type TransformerFunc func(ctx context.Context, req *Request) (json.RawMessage, error)

func (f TransformerFunc) Transform(ctx context.Context, req *Request) (json.RawMessage, error) {
	return f(ctx, req)
}

// buildRequest deep-copies the tab so the request is detached from later edits.
func buildRequest(t *Tab) *Request {
	comps := make([]*Function, 0, len(t.Components))
	for _, c := range t.Components {
		comps = append(comps, c.clone())
	}
	return &Request{Transformations: []Transformation{{
		ID:         t.ID,
		Name:       t.Title,
		Components: comps,
		Source:     t.Source.clone(),
		Target:     t.Target.clone(),
	}}}
}
