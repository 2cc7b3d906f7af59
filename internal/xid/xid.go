package xid

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a prefixed random id such as "cus-3f9c2a...".
func New(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}
