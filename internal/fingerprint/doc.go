// Package fingerprint derives content-addressable identifiers from input
// bytes and processing parameters. Identical content and parameters always
// hash to the same fingerprint; any single-byte or parameter change yields a
// different one. Fingerprints name cache entries and lock resources.
package fingerprint
