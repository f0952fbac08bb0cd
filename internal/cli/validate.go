package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/earshot/internal/manifest"
)

// ManifestCheck is the validation outcome of one manifest.
type ManifestCheck struct {
	Path   string `json:"path"`
	Valid  bool   `json:"valid"`
	Name   string `json:"name,omitempty"`
	Banks  int    `json:"banks,omitempty"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool            `json:"valid"`
	Manifests []ManifestCheck `json:"manifests"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest>...",
		Short: "Validate session manifests",
		Long: `Validate session manifests without bringing up a session.

Each manifest (CUE, YAML, or TOML) is checked against the manifest schema,
EARSHOT_* environment overrides are applied, and the result is converted
to engine configuration.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	result := ValidationResult{Valid: true, Manifests: make([]ManifestCheck, 0, len(paths))}
	for _, path := range paths {
		check := checkManifest(path)
		formatter.VerboseLog("Checked %s: valid=%t", path, check.Valid)
		if !check.Valid {
			result.Valid = false
		}
		result.Manifests = append(result.Manifests, check)
	}

	if !result.Valid {
		if opts.Format == "json" {
			_ = formatter.Error(result.Manifests[firstInvalid(result)].Code, "manifest validation failed", result)
		} else {
			fmt.Fprint(cmd.OutOrStdout(), validationText(result))
		}
		return NewExitError(ExitFailure, "manifest validation failed")
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprint(cmd.OutOrStdout(), validationText(result))
	return nil
}

func checkManifest(path string) ManifestCheck {
	check := ManifestCheck{Path: path}

	m, err := manifest.LoadWithEnv(path)
	if err == nil {
		_, err = m.Config()
	}
	if err != nil {
		check.Error = err.Error()
		check.Code = ErrCodeManifest
		var le *manifest.LoadError
		if errors.As(err, &le) {
			check.Code = le.Code
			check.Error = le.Message
			if le.Pos.IsValid() {
				check.Line = le.Pos.Line()
				check.Column = le.Pos.Column()
			}
		}
		return check
	}

	check.Valid = true
	check.Name = m.Name
	check.Banks = len(m.Banks)
	return check
}

func firstInvalid(result ValidationResult) int {
	for i, m := range result.Manifests {
		if !m.Valid {
			return i
		}
	}
	return 0
}

func validationText(result ValidationResult) string {
	var b strings.Builder
	for _, m := range result.Manifests {
		if m.Valid {
			fmt.Fprintf(&b, "✓ %s (%d bank(s))\n", m.Path, m.Banks)
			continue
		}
		if m.Line > 0 {
			fmt.Fprintf(&b, "✗ %s:%d:%d [%s] %s\n", m.Path, m.Line, m.Column, m.Code, m.Error)
		} else {
			fmt.Fprintf(&b, "✗ %s [%s] %s\n", m.Path, m.Code, m.Error)
		}
	}
	return b.String()
}
