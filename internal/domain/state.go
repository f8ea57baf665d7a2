package domain

import "fmt"

// ConnectionState 单个推送连接的状态
type ConnectionState int

const (
	ConnIdle ConnectionState = iota
	ConnConnecting
	ConnConnected
	ConnDisconnected
	ConnFailed
)

func (s ConnectionState) String() string {
	switch s {
	case ConnIdle:
		return "idle"
	case ConnConnecting:
		return "connecting"
	case ConnConnected:
		return "connected"
	case ConnDisconnected:
		return "disconnected"
	case ConnFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s ConnectionState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *ConnectionState) UnmarshalText(b []byte) error {
	for c := ConnIdle; c <= ConnFailed; c++ {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown connection state %q", string(b))
}

// SyncState 同步控制器的生命周期状态
type SyncState int

const (
	SyncUninitialized SyncState = iota
	SyncLoading
	SyncStreaming
	SyncReconnectPending
	// SyncDegraded: snapshot fetch failed; waits for Restart or a new selection.
	SyncDegraded
	SyncTornDown
)

func (s SyncState) String() string {
	switch s {
	case SyncUninitialized:
		return "uninitialized"
	case SyncLoading:
		return "loading"
	case SyncStreaming:
		return "streaming"
	case SyncReconnectPending:
		return "reconnect_pending"
	case SyncDegraded:
		return "degraded"
	case SyncTornDown:
		return "torn_down"
	default:
		return "unknown"
	}
}

func (s SyncState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *SyncState) UnmarshalText(b []byte) error {
	for st := SyncUninitialized; st <= SyncTornDown; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown sync state %q", string(b))
}
