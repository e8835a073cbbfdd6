package model

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

func init() {
	version = strings.TrimSpace(version)
}

// GetVersion returns the current version of the SDK.
func GetVersion() string {
	return version
}

// UserAgent is the product identifier sent with every request.
func UserAgent() string {
	return "axiom-go/" + version
}
