package runtime

import (
	"fmt"
	"io"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/output"
)

// Report writes err for the user and returns the process exit code. JSON
// output gets an error envelope; otherwise the message and suggestion go
// to stderr, with the full chain in debug mode.
func Report(f *output.Formatter, stderr io.Writer, err error, debug bool) int {
	if err == nil {
		return 0
	}
	code := errors.ExitCode(err)

	if f != nil && f.Format == output.FormatJSON {
		_ = output.NewJSONFormatter(f).PrintError(errors.Classify(err).String(), message(err), errors.GetSuggestion(err))
		return code
	}

	if debug {
		fmt.Fprintln(stderr, errors.FormatDebugError(err))
		return code
	}
	fmt.Fprintln(stderr, "Error: "+errors.FormatUserError(err))
	return code
}

// message prefers the user-facing text of a UserError.
func message(err error) string {
	if ue, ok := errors.AsUserError(err); ok {
		return ue.Message
	}
	return err.Error()
}
