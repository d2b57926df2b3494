// Package claim runs reward claim sessions: a player selects rewards of a
// battle pass, the session decrypts them and submits one claim transaction
// per reward.
package claim

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/rony4d/secret-loot-path/chain"
	"github.com/rony4d/secret-loot-path/progression"
)

// State is the step a claim session is at. A session starts in Select,
// moves through Decrypting and Claiming, and ends in Success. Any failure
// returns it to Select.
type State uint8

const (
	Select State = iota
	Decrypting
	Claiming
	Success
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case Select:
		return "select"
	case Decrypting:
		return "decrypting"
	case Claiming:
		return "claiming"
	case Success:
		return "success"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	Session  uuid.UUID
	State    State
	Selected []progression.RewardID
	// Revealed holds every value decrypted in this session, by reward.
	Revealed map[progression.RewardID]int64
	TxRefs   []chain.TxRef
	Claimed  int

	// Err is the failure that last sent the session back to Select.
	Err       error
	Message   string
	Retryable bool
}

// Display is notified after every state change.
type Display interface {
	Render(Snapshot)
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(Snapshot)

// Render calls f(s).
func (f DisplayFunc) Render(s Snapshot) { f(s) }

type nopDisplay struct{}

func (nopDisplay) Render(Snapshot) {}
