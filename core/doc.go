// Package core implements the signal routing layer of signalgrid.
//
// This package provides the basic building blocks including the
// GroupRegistry, ListenerRegistry, and Dispatcher components that
// form the foundation of chip-to-chip signaling.
package core
