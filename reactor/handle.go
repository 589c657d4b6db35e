// File: reactor/handle.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Handle is the routing key of every message.

package reactor

import (
	"cmp"
	"fmt"

	"github.com/zeebo/xxh3"
)

// Handle identifies a class of messages: a command and its parameter.
type Handle struct {
	CommandID uint64
	ParamID   uint64
}

// HandleOf hashes a command name and parameter into a Handle.
func HandleOf(command, param string) Handle {
	return Handle{
		CommandID: xxh3.HashString(command),
		ParamID:   xxh3.HashString(param),
	}
}

// Compare orders handles by CommandID, then ParamID.
func (h Handle) Compare(o Handle) int {
	if c := cmp.Compare(h.CommandID, o.CommandID); c != 0 {
		return c
	}
	return cmp.Compare(h.ParamID, o.ParamID)
}

// Less reports whether h sorts before o.
func (h Handle) Less(o Handle) bool {
	return h.Compare(o) < 0
}

func (h Handle) String() string {
	return fmt.Sprintf("%016x:%016x", h.CommandID, h.ParamID)
}
