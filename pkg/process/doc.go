// Package process decodes the per-process pseudo-files of a Linux proc
// mount into structured snapshot records.
//
// The package is built from small single-purpose resolvers (owner, sizes,
// terminal, times, command line), a STAT composer that turns the kernel
// state character plus a handful of derived flags into the ps-style status
// string, and a list builder that assembles one Snapshot per live pid.
//
// Failure policy: a pseudo-file that is missing, unreadable, or malformed
// resolves to a typed default (zero, empty string, or a marker), never an
// error. The one exception is the per-pid stat line read by the list
// builder: a pid whose stat line cannot be read is presumed to have exited
// mid-enumeration and its snapshot is dropped. Processes vanish between
// directory listing and file reads as a matter of course; that race is
// inherent to the pseudo-filesystem, not a bug.
package process
