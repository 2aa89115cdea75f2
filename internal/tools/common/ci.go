package common

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Exit codes shared by opsctl commands.
const (
	ExitOK          = 0
	ExitConfigError = 2
	ExitRunFailed   = 4
)

type CIResult struct {
	OK      bool     `json:"ok"`
	Command string   `json:"command"`
	Details []string `json:"details"`
	Error   string   `json:"error,omitempty"`
}

// PrintCIResult writes one JSON line describing the outcome of command.
func PrintCIResult(ok bool, command string, details []string, err error) {
	_ = WriteCIResult(os.Stdout, ok, command, details, err)
}

func WriteCIResult(w io.Writer, ok bool, command string, details []string, err error) error {
	res := CIResult{OK: ok, Command: command, Details: details}
	if res.Details == nil {
		res.Details = []string{}
	}
	if err != nil {
		res.Error = err.Error()
	}
	b, mErr := json.Marshal(res)
	if mErr != nil {
		return mErr
	}
	_, wErr := fmt.Fprintln(w, string(b))
	return wErr
}
