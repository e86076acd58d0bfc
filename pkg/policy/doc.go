// Package policy is the core of neatpmd: the property algebra (Value,
// Property, Array, MultiArray) and the three-stage Profiles -> CIB -> PIB
// lookup pipeline that turns a connection request into ranked candidates.
//
// The algebra types never perform I/O or logging; repository loading
// (internal/repo) and request/response transport (cmd/neatpmd) sit on top
// of this package and are the only places errors are rendered to a user.
package policy
