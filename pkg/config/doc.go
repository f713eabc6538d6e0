// Package config loads application configuration from LISTLING_* environment
// variables, with working defaults for local development. LISTLING_SECRET is
// the only variable with no default: tokens must never be signed with a
// baked-in key.
//
// Rate limit quotas are "<count>/<unit>" strings such as "100/minute"; the
// supported units are second, minute, hour and day.
package config
