package engine

import (
	"github.com/google/uuid"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/registry"
)

// State is everything the engine persists.
type State struct {
	Clans   registry.State
	Flagged []uuid.UUID
}

func (e *Engine) Export() State {
	return State{Clans: e.reg.Export(), Flagged: e.FlaggedPlayers()}
}

// Import replaces the registry contents and pending notices. It returns
// repair warnings for the caller to log.
func (e *Engine) Import(st State) []string {
	warnings := e.reg.Import(st.Clans)
	e.RestoreFlags(st.Flagged)
	return warnings
}
