// Package errors provides the error taxonomy shared by every httpkit
// component and backend.
//
// All failures are reported as *AppError values carrying a machine-readable
// ErrorCode. Send-time failures reach callers through a client Future,
// configuration-time failures through the Builder. Use the Is* predicates
// (which unwrap with errors.As) rather than comparing codes by hand.
package errors
