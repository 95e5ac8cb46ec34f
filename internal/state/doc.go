// Package state provides the foundational types for Specular.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import state; state imports nothing internal. This
// ensures it remains the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere in payload values - use int64 for numbers
//   - Identities are 128-bit and stable across peers; virtual entries
//     derive theirs deterministically from a semantic key, never from a
//     runtime address
//   - Logical clocks (seq) only, never wall-clock timestamps
//   - All JSON tags use snake_case
package state
