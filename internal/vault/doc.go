// Package vault implements short-lived, single-use handoff of generated
// artifacts. Entry metadata lives only in process memory; payloads above an
// inline threshold are written to a blob bucket keyed by token. Tokens are
// opaque keyed-hash values and redemption never reveals whether a miss was an
// unknown token or an expired one.
package vault
