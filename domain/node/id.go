package node

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewNodeID returns a time-sortable opaque id: a hex millisecond timestamp
// followed by a short random suffix. Lexical order matches creation order
// for ids minted in the same millisecond range.
func NewNodeID() string {
	millis := time.Now().UnixMilli()
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("node_%x_%s", millis, suffix)
}
