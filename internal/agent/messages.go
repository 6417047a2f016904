package agent

// CommandKind enumerates the command categories the agent's inbox
// accepts. Commands are handled strictly one at a time, in arrival order.
type CommandKind string

const (
	CmdYXCPassthrough CommandKind = "yxc_passthrough"
	CmdPlaybackLoad   CommandKind = "playback_load"
	CmdPlaybackLoadNext CommandKind = "playback_load_next"
	CmdPlaybackLoadQueue CommandKind = "playback_load_queue"
	CmdPlaybackNext   CommandKind = "playback_next"
	CmdPlaybackPrevious CommandKind = "playback_previous"
	CmdLookup         CommandKind = "lookup"
)

// Command is a request delivered to an agent's inbox with a reply channel.
type Command struct {
	Kind CommandKind
	Args map[string]any
	// Passthrough identifies which YXC client method to invoke for
	// CmdYXCPassthrough commands (e.g. "set_power", "set_volume").
	Passthrough string
	reply       chan Result
}

// Result is what a Command reply channel carries.
type Result struct {
	Value any
	Err   error
}

// yxcEventMsg is a decoded YXC unicast event, already stripped of its
// device_id envelope field.
type yxcEventMsg struct {
	zones map[string]map[string]any
}

// upnpEventMsg is a decoded UPnP GENA NOTIFY.
type upnpEventMsg struct {
	sid   string
	props map[string]string
}

// yxcRenewalTick fires when the agent's YXC enrollment needs refreshing.
type yxcRenewalTick struct{}

// upnpRenewalTick fires when the agent's GENA subscription needs
// renewing.
type upnpRenewalTick struct{}

// stopMsg requests a graceful shutdown.
type stopMsg struct {
	done chan struct{}
}
