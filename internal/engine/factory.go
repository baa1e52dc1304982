package engine

import (
	"astock-agent/internal/interfaces"
)

func New(s Settings, d Deps) (interfaces.Engine, error) {
	if d.Decider == nil {
		return nil, errNoDecider
	}
	if d.Ledger == nil || d.Calendar == nil || d.Builder == nil {
		return nil, errMissingDeps
	}
	return newEngine(s, d), nil
}
