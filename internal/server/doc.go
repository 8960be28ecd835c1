// Package server exposes the engine's read-only HTTP surface: health and
// metrics endpoints plus a small JSON API over the trending queue and
// per-post visibility state. Nothing here mutates engine state.
package server
