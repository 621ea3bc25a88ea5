package model

// Client-side exit codes. Codes from the server are 0 (success) or
// positive (server-reported error); everything negative originates here.
const (
	ExitSuccess          = 0
	ExitNoResponse       = -1
	ExitValidationFailed = -2
	ExitException        = -3
	ExitDryRun           = -4
)

// DryRunMessage is recorded for rows short-circuited by --dry-run.
const DryRunMessage = "Dry run - not executed"

// ClientExitCodes maps client-side codes to their meaning.
var ClientExitCodes = map[int]string{
	ExitNoResponse:       "No response from server",
	ExitValidationFailed: "Validation failed (client-side)",
	ExitException:        "Exception occurred",
	ExitDryRun:           "Dry run (not executed)",
}
