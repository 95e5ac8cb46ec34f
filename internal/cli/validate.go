package cli

import (
	"fmt"
	"os"

	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/cobra"

	"github.com/roach88/specular/internal/compiler"
)

// Error codes for CLI responses.
const (
	ErrCodeSpecNotFound  = "E001"
	ErrCodeSpecInvalid   = "E002"
	ErrCodeScenarioError = "E003"
	ErrCodeJournalError  = "E004"
	ErrCodeGeneric       = "E999"
)

// ContainerSummary describes one compiled container declaration.
type ContainerSummary struct {
	Name          string `json:"name"`
	IdentityField string `json:"identity_field"`
	FieldCount    int    `json:"field_count"`
}

// ValidationResult holds validation results for a spec file.
type ValidationResult struct {
	Valid      bool               `json:"valid"`
	Containers []ContainerSummary `json:"containers,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <spec-file>",
		Short: "Validate CUE container declarations",
		Long: `Validate a CUE file of container declarations.

Compiles every declaration and checks field types and identity fields,
without starting any peer.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	src, err := os.ReadFile(specPath)
	if err != nil {
		formatter.Error(ErrCodeSpecNotFound, fmt.Sprintf("cannot read spec: %v", err), nil)
		return NewExitError(ExitCommandError, "spec not readable")
	}

	v := cuecontext.New().CompileString(string(src))
	specs, err := compiler.CompileContainers(v)
	if err != nil {
		formatter.Error(ErrCodeSpecInvalid, err.Error(), nil)
		return WrapExitError(ExitFailure, "spec invalid", err)
	}

	result := ValidationResult{Valid: true}
	for _, spec := range specs {
		formatter.VerboseLog("compiled container: %s", spec.Name)
		result.Containers = append(result.Containers, ContainerSummary{
			Name:          spec.Name,
			IdentityField: spec.IdentityField,
			FieldCount:    len(spec.Fields),
		})
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "%s: %d container(s) valid\n", specPath, len(specs))
	for _, c := range result.Containers {
		fmt.Fprintf(formatter.Writer, "  %s (identity %s, %d fields)\n", c.Name, c.IdentityField, c.FieldCount)
	}
	return nil
}
