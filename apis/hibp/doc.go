// Package hibp is a client of the HaveIBeenPwned v3 API and of the
// PwnedPasswords range API, built on package api.
//
// Breach lookups by account need an API key and run on a private plan; a
// client created without a key is public and may only query breaches and
// data classes. PwnedPasswords never receives a password: Count sends the
// first five characters of its SHA-1 hash and matches the suffix locally.
package hibp
