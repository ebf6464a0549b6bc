package client

import "fmt"

// MethodTable maps each subscribe-capable method to its unsubscribe
// counterpart. The table is validated when the client is constructed rather
// than derived by string substitution at call time, so a method-naming
// mismatch surfaces at startup instead of during teardown.
type MethodTable map[string]string

// DefaultMethods returns the node's built-in subscription methods.
func DefaultMethods() MethodTable {
	return MethodTable{
		"suix_subscribeEvent":       "suix_unsubscribeEvent",
		"suix_subscribeTransaction": "suix_unsubscribeTransaction",
	}
}

// Validate checks the table for empty or conflicting entries.
func (t MethodTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("client: empty subscription method table")
	}
	seen := make(map[string]string, len(t))
	for sub, unsub := range t {
		if sub == "" || unsub == "" {
			return fmt.Errorf("client: empty method name in subscription table (%q -> %q)", sub, unsub)
		}
		if sub == unsub {
			return fmt.Errorf("client: method %q maps to itself", sub)
		}
		if prev, ok := seen[unsub]; ok {
			return fmt.Errorf("client: methods %q and %q share unsubscribe method %q", prev, sub, unsub)
		}
		seen[unsub] = sub
	}
	return nil
}

// UnsubscribeMethod looks up the unsubscribe counterpart for a subscribe
// method.
func (t MethodTable) UnsubscribeMethod(subscribeMethod string) (string, bool) {
	unsub, ok := t[subscribeMethod]
	return unsub, ok
}
