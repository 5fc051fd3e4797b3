package files

import (
	"fmt"
	"os"
	"strings"
)

// Mode selects how a LineFile opens its path.
type Mode int

const (
	// ModeRead opens an existing file read-only.
	ModeRead Mode = iota
	// ModeWrite creates the file or truncates an existing one, write-only.
	// On the default OS filesystem missing parent directories are created
	// too, as go-billy's osfs does for every create.
	ModeWrite
	// ModeAppend creates the file if needed and writes at its end. Missing
	// parent directories are created the same way as for ModeWrite.
	ModeAppend
	// ModeReadWrite opens an existing file for reading and writing.
	ModeReadWrite
)

// ParseMode maps a mode name to a Mode. Both the short fopen-like forms
// ("r", "w", "a", "r+") and the long names are accepted.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "r", "read":
		return ModeRead, nil
	case "w", "write":
		return ModeWrite, nil
	case "a", "append":
		return ModeAppend, nil
	case "r+", "rw", "read-write":
		return ModeReadWrite, nil
	default:
		return ModeRead, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	case ModeAppend:
		return "append"
	case ModeReadWrite:
		return "read-write"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func (m Mode) valid() bool {
	return m >= ModeRead && m <= ModeReadWrite
}

func (m Mode) flag() int {
	switch m {
	case ModeWrite:
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case ModeAppend:
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND
	case ModeReadWrite:
		return os.O_RDWR
	default:
		return os.O_RDONLY
	}
}

// Readable reports whether lines can be read in this mode.
func (m Mode) Readable() bool {
	return m == ModeRead || m == ModeReadWrite
}

// Writable reports whether text can be written in this mode.
func (m Mode) Writable() bool {
	return m == ModeWrite || m == ModeAppend || m == ModeReadWrite
}
