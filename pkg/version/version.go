// Package version provides version information for the spread-go application.
package version

// Version is the current version of the spread-go application.
const Version = "0.3.0"

// AgentString returns the User-Agent sent to price sources.
// Format: spread-go/v{version}
func AgentString() string {
	return "spread-go/v" + Version
}
