package workspace

// Connection is a selected source/target pairing from the mapping canvas.
type Connection struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Source     any    `json:"source,omitempty"`
	Target     any    `json:"target,omitempty"`
	SourceData any    `json:"sourceData,omitempty"`
	TargetData any    `json:"targetData,omitempty"`
}

// Tab holds the component chain of one connection.
type Tab struct {
	ID         string
	Title      string
	Components []*Function
	Source     *Anchor
	Target     *Anchor
	// Active is the display flag of the tab strip.
	Active bool
}

func newTab(conn Connection) *Tab {
	return &Tab{
		ID:         conn.ID,
		Title:      conn.Label,
		Components: []*Function{},
		Source: &Anchor{
			Kind:    ComponentSource,
			ID:      conn.ID + ":source",
			Payload: conn.SourceData,
			Source:  conn.Source,
			Target:  conn.Target,
		},
		Target: &Anchor{
			Kind:    ComponentTarget,
			ID:      conn.ID + ":target",
			Payload: conn.TargetData,
			Source:  conn.Source,
			Target:  conn.Target,
		},
	}
}

func (t *Tab) indexOf(c *Function) int {
	for i, existing := range t.Components {
		if existing == c {
			return i
		}
	}
	if c == nil || c.ID == "" {
		return -1
	}
	for i, existing := range t.Components {
		if existing.ID == c.ID {
			return i
		}
	}
	return -1
}

// TabView is a read-only snapshot of a tab.
type TabView struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Active     bool        `json:"active"`
	Current    bool        `json:"current"`
	Components []*Function `json:"components"`
	Source     *Anchor     `json:"source"`
	Target     *Anchor     `json:"target"`
}

func (t *Tab) view(current bool) *TabView {
	comps := make([]*Function, len(t.Components))
	copy(comps, t.Components)
	return &TabView{
		ID:         t.ID,
		Title:      t.Title,
		Active:     t.Active,
		Current:    current,
		Components: comps,
		Source:     t.Source,
		Target:     t.Target,
	}
}
