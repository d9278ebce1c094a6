package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/provledger/internal/ir"
	"github.com/roach88/provledger/internal/ledger"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"hash": "abc"}
	err := formatter.Success(data, nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONSuccessIgnoresText(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Success(42, func(w io.Writer) { fmt.Fprintln(w, "text form") })
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "text form")
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("DUPLICATE_HASH", "hash already recorded", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "DUPLICATE_HASH", resp.Error.Code)
	assert.Equal(t, "hash already recorded", resp.Error.Message)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("Artifacts written", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Artifacts written")
}

func TestOutputFormatter_TextSuccessUsesRenderer(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Success(42, func(w io.Writer) { fmt.Fprintln(w, "text form") })
	require.NoError(t, err)
	assert.Equal(t, "text form\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error("INVALID_INPUT", "subject is required", map[string]string{"field": "subject"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [INVALID_INPUT]")
	assert.Contains(t, buf.String(), "subject is required")
	assert.NotContains(t, buf.String(), "Details:")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.Error("INVALID_INPUT", "subject is required", map[string]string{"field": "subject"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_LedgerError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	cause := &ledger.Error{
		Code:    ledger.ErrCodeDuplicateHash,
		Stage:   ledger.StageHashed,
		Message: "append event",
		Hash:    "da81debbc46f562b82d897310a2c4edf58acdea6c3477e239002e27a4e8414bc",
		Err:     ir.ErrDuplicateHash,
	}
	err := formatter.LedgerError("record failed", cause)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, ir.ErrDuplicateHash)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "DUPLICATE_HASH", resp.Error.Code)
	assert.Equal(t, map[string]any{"hash": cause.Hash, "stage": "hashed", "persisted": "false"}, resp.Error.Details)
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			errBuf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    buf,
				ErrWriter: errBuf,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("Loading %s", "build")

			assert.Empty(t, buf.String())
			if tt.wantLog {
				assert.Contains(t, errBuf.String(), "Loading build")
			} else {
				assert.Empty(t, errBuf.String())
			}
		})
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		code ledger.ErrorCode
		want int
	}{
		{ledger.ErrCodeInvalidInput, ExitCommandError},
		{ledger.ErrCodeNotFound, ExitCommandError},
		{ledger.ErrCodeDuplicateHash, ExitFailure},
		{ledger.ErrCodeStorageUnavailable, ExitFailure},
		{ledger.ErrCodeProofSystemUnavailable, ExitFailure},
		{ledger.ErrCodeInternal, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.code))
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "inner", errors.New("cause")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}
