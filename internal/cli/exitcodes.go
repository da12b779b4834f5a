package cli

// Standard exit codes for the cix tools.
//
// These follow Unix conventions:
//   - 0: Success
//   - 1: General error (bad arguments, I/O errors, etc.)
//   - 2: The command ran but reported findings (diagnostics from check)
const (
	// ExitOK indicates successful execution with no issues.
	ExitOK = 0

	// ExitError indicates a fatal error occurred.
	ExitError = 1

	// ExitWarning indicates the tool completed but found issues, such as
	// cix check reporting diagnostics.
	ExitWarning = 2
)
