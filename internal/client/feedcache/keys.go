// Package feedcache keeps a client-side replica of channel feeds and threads
// and applies speculative updates while mutations are in flight.
package feedcache

import "fmt"

// Scopes of cached queries.
const (
	ScopeMessageList = "message.list"
	ScopeThreadList  = "thread.list"
)

// Key identifies a cached query: a scope plus the id of the channel or thread root.
type Key struct {
	Scope string
	ID    string
}

// ListKey returns the key of a channel's root message feed.
func ListKey(channelID string) Key {
	return Key{Scope: ScopeMessageList, ID: channelID}
}

// ThreadKey returns the key of a thread rooted at messageID.
func ThreadKey(messageID string) Key {
	return Key{Scope: ScopeThreadList, ID: messageID}
}

// String renders the key as ["scope", "id"].
func (k Key) String() string {
	return fmt.Sprintf("[%q, %q]", k.Scope, k.ID)
}
