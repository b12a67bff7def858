package events

// ConnectionState is the lifecycle state of the persistent event
// connection. The channel is the only component that transitions it;
// everything else just reads.
type ConnectionState string

const (
	StateDisconnected  ConnectionState = "disconnected"
	StateConnecting    ConnectionState = "connecting"
	StateConnected     ConnectionState = "connected"
	StateReconnecting  ConnectionState = "reconnecting"
	StateDisconnecting ConnectionState = "disconnecting"
	StateError         ConnectionState = "error"
	StateFailed        ConnectionState = "failed"
)

func (s ConnectionState) String() string {
	return string(s)
}
