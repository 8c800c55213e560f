// Package manager owns the reconciled network profile state for the
// active subscription: the profile set, the preferred profile, the
// initial-attach profile, and the preferred set id. All mutation is
// serialized through a single event loop; queries read committed state.
package manager
