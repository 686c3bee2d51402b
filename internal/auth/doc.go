// Package auth provides bearer-token issuance and request verification.
//
// Tokens are minted by a TokenIssuer and checked by a Verifier. The local
// implementations keep only SHA-256 hashes of issued tokens at rest, so a
// leaked database never yields usable credentials.
package auth
