// Package settings is the host option table. Options are addressed by a
// canonical name or any alias, may validate and normalize values through a
// setter, and can be exported as "set name=value" lines for session scripts.
package settings
