package types

// Version is the canonical project version, reported by `lintstatus version`
// and stamped on completion notices.
const Version = "0.3.0"
