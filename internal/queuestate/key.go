// Package queuestate reads and aggregates the per-branch merge-queue
// snapshots that the worker subsystem persists in redis.
package queuestate

import (
	"fmt"
	"strings"
)

// Delimiter separates the fields of an encoded queue key. Github
// owner and repository names can never contain '~', branch names are
// path-like and may contain '/', so '~' is unambiguous.
const Delimiter = "~"

const keyPrefix = "queues"

// KeyPattern matches all encoded queue keys in the store.
const KeyPattern = keyPrefix + "~*~*~*"

// Key identifies one merge queue.
type Key struct {
	Owner  string
	Repo   string
	Branch string
}

func NewKey(owner, repo, branch string) (Key, error) {
	for _, field := range []string{owner, repo, branch} {
		if field == "" {
			return Key{}, fmt.Errorf("queue key field is empty (owner: %q, repo: %q, branch: %q)", owner, repo, branch)
		}

		if strings.Contains(field, Delimiter) {
			return Key{}, fmt.Errorf("queue key field %q contains the reserved delimiter %q", field, Delimiter)
		}
	}

	return Key{Owner: owner, Repo: repo, Branch: branch}, nil
}

// String returns the encoded store key, e.g. "queues~org~repo~main".
func (k Key) String() string {
	return strings.Join([]string{keyPrefix, k.Owner, k.Repo, k.Branch}, Delimiter)
}

// ParseKey decodes a store key produced by Key.String().
func ParseKey(encoded string) (Key, error) {
	fields := strings.SplitN(encoded, Delimiter, 4)
	if len(fields) != 4 || fields[0] != keyPrefix {
		return Key{}, fmt.Errorf("%q is not a valid queue key", encoded)
	}

	return NewKey(fields[1], fields[2], fields[3])
}
