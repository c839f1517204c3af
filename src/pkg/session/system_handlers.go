package session

import (
	"errors"
	"fmt"

	"inkboard/src/pkg/model"
)

// ErrExit is returned by the exit command to end the interactive loop.
var ErrExit = errors.New("exit requested")

// handleSystemExit ends the session's interactive loop
func handleSystemExit(s *Session, cmd model.Command) (interface{}, error) {
	s.DataManager.DrawableManager.CancelLine(s.lineKey())
	return nil, ErrExit
}

// handleSystemStatus reports the participant, the selected surface and the
// running transitions
func handleSystemStatus(s *Session, cmd model.Command) (interface{}, error) {
	status := fmt.Sprintf("participant %s, %d surfaces, %d transitions running",
		s.Participant, len(s.DataManager.Registry.All()), s.DataManager.Scheduler.Running())
	if s.Surface != nil {
		status += fmt.Sprintf(", surface %s page %d/%d", s.Surface.ID, s.Surface.CurrentPage, s.Surface.MaxPageSize)
	}
	if s.Last != "" {
		status += ", last object " + s.Last
	}
	return status, nil
}
