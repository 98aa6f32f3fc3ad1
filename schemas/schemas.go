// Package schemas bundles the Avro schemas shipped with avroflow.
package schemas

import _ "embed"

// Profile is the Avro schema of profile events.
//
//go:embed profile.avsc
var Profile string
