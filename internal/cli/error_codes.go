package cli

const (
	codeUsage  = "DCP_E_USAGE"
	codeSetup  = "DCP_E_SETUP"
	codeIO     = "DCP_E_IO"
	codeRun    = "DCP_E_RUN"
	codeStrict = "DCP_E_STRICT"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
	exitStrict = 3
)

type CliError struct {
	Code    string
	Message string
	Exit    int
}

func (e *CliError) Error() string { return e.Message }

func usageError(msg string) *CliError {
	return &CliError{Code: codeUsage, Message: msg, Exit: exitUsage}
}

func setupError(err error) *CliError {
	return &CliError{Code: codeSetup, Message: err.Error(), Exit: exitFailed}
}
