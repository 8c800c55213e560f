// Package profile defines the network profile model for the Profile Control Container.
//
// A network profile describes one way for the device to establish a data
// connection: the access point descriptor (name, supported traffic types,
// supported network types, addressing protocols, grouping set id) plus an
// optional traffic descriptor. Profiles compare structurally on their
// immutable descriptor fields; the preferred flag and the last-used
// timestamp are mutable bookkeeping and never participate in equality.
package profile
