// Package sanitizer normalizes reservation input before validation and
// allocation.
//
// Every function is idempotent. Group identifiers keep their case: two
// spellings that differ only in surrounding or repeated whitespace are the
// same group, "Acme" and "acme" are not.
package sanitizer
