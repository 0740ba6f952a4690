// Package credential defines the OAuth credential held on behalf of the user
// and the store that owns it.
//
// The store is an explicit object injected into every consumer. The single-user
// deployment keys everything under DefaultAccount, and a new login for the same
// account replaces the previous credential entirely.
package credential
