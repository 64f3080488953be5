package workspace

import (
	"encoding/json"

	"github.com/dswarm/dswarm/internal/bus"
)

const (
	TopicConnectionSelected     = "connectionSelected"
	TopicConnectionSwitched     = "connectionSwitched"
	TopicEditConfig             = "handleEditConfig"
	TopicTransformationFinished = "transformationFinished"
	TopicTabSwitch              = "tabSwitch"
)

type ConnectionSwitched struct {
	ID string `json:"id"`
}

type EditConfig struct {
	TabID     string    `json:"tabId,omitempty"`
	Component *Function `json:"component"`
}

type TransformationFinished struct {
	TabID string          `json:"tabId"`
	Body  json.RawMessage `json:"body"`
}

type TabSwitch struct {
	ID string `json:"id"`
}

// Events groups the topics a workspace reads from and writes to.
type Events struct {
	ConnectionSelected     *bus.Topic[Connection]
	ConnectionSwitched     *bus.Topic[ConnectionSwitched]
	EditConfig             *bus.Topic[EditConfig]
	TransformationFinished *bus.Topic[TransformationFinished]
	TabSwitch              *bus.Topic[TabSwitch]
}

func NewEvents() *Events {
	return &Events{
		ConnectionSelected:     bus.NewTopic[Connection](TopicConnectionSelected),
		ConnectionSwitched:     bus.NewTopic[ConnectionSwitched](TopicConnectionSwitched),
		EditConfig:             bus.NewTopic[EditConfig](TopicEditConfig),
		TransformationFinished: bus.NewTopic[TransformationFinished](TopicTransformationFinished),
		TabSwitch:              bus.NewTopic[TabSwitch](TopicTabSwitch),
	}
}
