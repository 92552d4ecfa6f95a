// Package auth verifies bearer tokens for control client sessions.
//
// Token issuance (login, verification codes, email delivery) lives in the
// account service. The hub consumes tokens only: signature and expiry checks
// via HS256 with a shared secret, then subject-to-user resolution through the
// user directory.
package auth
