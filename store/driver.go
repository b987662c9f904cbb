//go:build !js

package store

import _ "modernc.org/sqlite" // SQLite driver; not available under js/wasm.
