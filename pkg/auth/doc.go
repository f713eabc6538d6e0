// Package auth implements the token service and password hashing.
//
// Tokens are stateless HS256 JWTs carrying three claims: uid (subject user
// ID), scp (scope, "access" or "refresh"), and exp. Validity is fully
// determined by signature and expiry; there is no server-side session store
// and no revocation list. Rotating the signing secret invalidates all
// outstanding tokens with no grace period.
//
// Access tokens authorize API calls and live 15 minutes; refresh tokens may
// only mint new access tokens and live 5 hours. Both lifetimes come from
// configuration.
//
// Passwords are stored as bcrypt hashes; CheckPassword deliberately returns
// the same ErrCredentials for unknown users and wrong passwords so callers
// cannot distinguish the two.
package auth
