package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/neoromantic/telegram-sync-cli/internal/apperror"
)

// envelope mirrors spec §6's JSON contract: successful responses carry
// `data`; failures carry a taxonomy-coded `error`.
type envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *errorEnvelope `json:"error,omitempty"`
}

type errorEnvelope struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// printResult writes data as the success envelope, honoring --format
// quiet (suppress output entirely) and pretty (indented JSON).
func printResult(data any) {
	if outputFlag == "quiet" {
		return
	}
	env := envelope{Success: true, Data: data}
	writeEnvelope(env)
}

func printError(err error) {
	env := envelope{Success: false, Error: toErrorEnvelope(err)}
	writeEnvelope(env)
}

func writeEnvelope(env envelope) {
	var out []byte
	var err error
	if outputFlag == "pretty" {
		out, err = json.MarshalIndent(env, "", "  ")
	} else {
		out, err = json.Marshal(env)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode output: %v\n", err)
		return
	}
	target := os.Stdout
	if !env.Success {
		target = os.Stderr
	}
	fmt.Fprintln(target, string(out))
}

func toErrorEnvelope(err error) *errorEnvelope {
	if ae, ok := err.(*apperror.AppError); ok {
		return &errorEnvelope{Code: string(ae.Code), Message: ae.Message, Details: ae.Details}
	}
	return &errorEnvelope{Code: string(apperror.CodeGeneral), Message: err.Error()}
}

func exitCodeFor(err error) int {
	if ae, ok := err.(*apperror.AppError); ok {
		return ae.ExitCode()
	}
	return 1
}
