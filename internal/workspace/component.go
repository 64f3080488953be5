package workspace

import (
	"encoding/json"

	"github.com/ohler55/ojg/alt"
)

// ComponentType tags the variant of a chain element on the wire.
type ComponentType string

const (
	ComponentSource ComponentType = "source"
	ComponentTarget ComponentType = "target"
	ComponentFun    ComponentType = "fun"
)

// Anchor is the fixed source or target endpoint of a tab.
type Anchor struct {
	Kind    ComponentType
	ID      string
	Payload any
	// Source and Target are the correlation keys of the connection.
	Source any
	Target any
}

type anchorJSON struct {
	ComponentType ComponentType `json:"componentType"`
	ID            string        `json:"id"`
	Payload       any           `json:"payload"`
	Source        any           `json:"source,omitempty"`
	Target        any           `json:"target,omitempty"`
}

func (a *Anchor) MarshalJSON() ([]byte, error) {
	return json.Marshal(anchorJSON{
		ComponentType: a.Kind,
		ID:            a.ID,
		Payload:       a.Payload,
		Source:        a.Source,
		Target:        a.Target,
	})
}

func (a *Anchor) clone() *Anchor {
	if a == nil {
		return nil
	}
	return &Anchor{
		Kind:    a.Kind,
		ID:      a.ID,
		Payload: alt.Dup(a.Payload),
		Source:  alt.Dup(a.Source),
		Target:  alt.Dup(a.Target),
	}
}

// Function is a user-placed transformation step in a chain.
type Function struct {
	ID      string
	Payload any
}

type functionJSON struct {
	ComponentType ComponentType `json:"componentType"`
	ID            string        `json:"id"`
	Payload       any           `json:"payload"`
}

func (f *Function) MarshalJSON() ([]byte, error) {
	return json.Marshal(functionJSON{ComponentType: ComponentFun, ID: f.ID, Payload: f.Payload})
}

func (f *Function) UnmarshalJSON(data []byte) error {
	var raw functionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.ID = raw.ID
	f.Payload = raw.Payload
	return nil
}

func (f *Function) clone() *Function {
	if f == nil {
		return nil
	}
	return &Function{ID: f.ID, Payload: alt.Dup(f.Payload)}
}
