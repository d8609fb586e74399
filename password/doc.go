// Package password implements one-way password hashing and constant-time verification.
//
// # Algorithms
//
// [Bcrypt] is the default (cost 12). [Argon2] produces PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Multi] hashes with one primary algorithm and verifies any hash whose prefix it
// recognizes, so switching the configured algorithm never locks out stored accounts.
// [Multi.NeedsRehash] reports hashes that should be replaced on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (length, character
// classes) is enforced by the Engine's input validation.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other authgate package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
