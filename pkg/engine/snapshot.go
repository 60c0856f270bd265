package engine

import "github.com/ibdm-project/ibdm/pkg/istate"

// snapshot captures a turn-start Information State so a fatal error (spec §7
// kinds 1 and 2) can restore it verbatim — "no partial commitments survive"
// (spec §5 "Cancellation/timeouts").
type snapshot struct {
	state istate.InformationState
}

func newSnapshot(s istate.InformationState) snapshot {
	return snapshot{state: s.Clone()}
}

func (sn snapshot) restore() istate.InformationState {
	return sn.state.Clone()
}
