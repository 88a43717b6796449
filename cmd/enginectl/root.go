package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"enginehost/internal/catalog"
	"enginehost/internal/manager"
	"enginehost/internal/registry"
	"enginehost/internal/scope"
	"enginehost/pkg/types"
)

// buildRootCmd constructs the enginectl command tree. Every subcommand works
// directly against an installation root; no daemon needed.
func buildRootCmd(log zerolog.Logger) *cobra.Command {
	var enginesDir string

	root := &cobra.Command{
		Use:           "enginectl",
		Short:         "Inspect engine installations and try resolutions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defaultDir := "~/engines"
	if v := os.Getenv("ENGINEHOSTD_ENGINES_DIR"); v != "" {
		defaultDir = v
	}
	root.PersistentFlags().StringVar(&enginesDir, "engines-dir", defaultDir, "Directory containing engine installations")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List installed engines",
		RunE: func(cmd *cobra.Command, args []string) error {
			engines, err := registry.Scan(enginesDir)
			if err != nil {
				return err
			}
			for _, e := range engines {
				line := fmt.Sprintf("%s %s (adapter %s, %s", e.Family, e.TrainingVersion, e.AdapterVersion, e.OS)
				if e.Arch != "" {
					line += "-" + e.Arch
				}
				line += capSuffix(e.CPU, e.GPU) + ")"
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			if len(engines) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no engines installed")
			}
			return nil
		},
	}

	versionsCmd := &cobra.Command{
		Use:   "versions <family>",
		Short: "Show the known versions and adapter mapping of a family",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vv, err := catalog.SupportedVersions(args[0])
			if err != nil {
				return err
			}
			for _, v := range vv {
				adapter, err := catalog.AdapterVersion(args[0], v)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> adapter %s\n", v, adapter)
			}
			return nil
		},
	}

	var gpu bool
	var exact bool
	resolveCmd := &cobra.Command{
		Use:   "resolve <family> <version>",
		Short: "Resolve a (family, version) request against the installed engines",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			family, version := args[0], args[1]
			desc, err := resolveOne(family, version, gpu, exact, enginesDir)
			if err != nil {
				return err
			}
			if desc.Fallback() {
				log.Warn().
					Str("requested", desc.RequestedVersion).
					Str("resolved", desc.ResolvedVersion).
					Msg("fallback version substituted")
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(desc)
		},
	}
	resolveCmd.Flags().BoolVar(&gpu, "gpu", false, "Require GPU capability (exact mode only)")
	resolveCmd.Flags().BoolVar(&exact, "exact", false, "Require an exact version match instead of the fallback ranking")

	checkCmd := &cobra.Command{
		Use:   "check <family> <version>",
		Short: "Verify that the resolved installation has all required files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := resolveOne(args[0], args[1], false, false, enginesDir)
			if err != nil {
				return err
			}
			missing, err := scope.MissingFiles(desc.Dir)
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				return fmt.Errorf("%s %s at %s is incomplete, missing: %v",
					desc.Family, desc.ResolvedVersion, desc.Dir, missing)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s at %s is complete\n", desc.Family, desc.ResolvedVersion, desc.Dir)
			return nil
		},
	}

	root.AddCommand(listCmd, versionsCmd, resolveCmd, checkCmd)
	return root
}

func resolveOne(family, version string, gpu, exact bool, enginesDir string) (types.EngineDescriptor, error) {
	if exact {
		return manager.Resolve(family, version, true, gpu, enginesDir)
	}
	return manager.ResolveCompatible(family, version, enginesDir)
}

func capSuffix(cpu, gpu bool) string {
	s := ""
	if cpu {
		s += ", cpu"
	}
	if gpu {
		s += ", gpu"
	}
	return s
}
