package hub

import "porthub-go/bus"

// Opaque-topic helpers

// ConfigTopic carries the retained types.HubConfig.
func ConfigTopic() bus.Topic { return bus.T("config", "porthub") }

// StateTopic carries the retained types.HubState.
func StateTopic() bus.Topic { return bus.T("hal", "porthub", "state") }

// hal/porthub/<port>/...
func portBase(name string) bus.Topic { return bus.T("hal", "porthub", name) }

func InfoTopic(name string) bus.Topic   { return portBase(name).Append("info") }
func ValueTopic(name string) bus.Topic  { return portBase(name).Append("value") }
func StatusTopic(name string) bus.Topic { return portBase(name).Append("status") }

// hal/porthub/<port>/ctrl/<method>
func CtrlTopic(name, method string) bus.Topic { return portBase(name).Append("ctrl", method) }

// hal/porthub/+/ctrl/+
func ctrlWildcard() bus.Topic { return bus.T("hal", "porthub", bus.SingleWild, "ctrl", bus.SingleWild) }
