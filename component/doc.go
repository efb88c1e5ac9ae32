// Package component defines lifecycle interfaces for long-lived httpkit
// resources such as a factory and the clients it owns.
//
// A Registry starts components in registration order and stops them in
// reverse, so a service with several upstream clients can bring them up
// and down together. Lazy defers construction until first use.
package component
