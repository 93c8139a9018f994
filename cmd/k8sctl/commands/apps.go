package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/fabriziosalmi/k8s/cmd/k8sctl/handlers"
	"github.com/fabriziosalmi/k8s/internal/apps"
)

// Apps returns the apps command group.
func Apps() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apps",
		Short: "Install or uninstall catalogue applications",
		Long: `Apps manages the application catalogue: ` + strings.Join(apps.Names(), ", ") + `.

Applications are installed via Helm into namespaces labelled as managed
by this tool. Uninstall keeps persistent data unless --delete-data is
given.`,
	}

	cmd.AddCommand(appsInstall())
	cmd.AddCommand(appsUninstall())

	return cmd
}

func appsInstall() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "install <app>...",
		Short: "Install applications from the catalogue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.InstallApps(cmd.Context(), configPath, yes, args)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (optional)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompts")

	return cmd
}

func appsUninstall() *cobra.Command {
	var (
		configPath string
		yes        bool
		deleteData bool
	)

	cmd := &cobra.Command{
		Use:   "uninstall <app>...",
		Short: "Uninstall applications",
		Long: `Uninstall removes applications installed by this tool.

Persistent volume claims and volumes are kept by default so data
survives a reinstall. With --delete-data they are removed after a typed
confirmation per application.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.UninstallApps(cmd.Context(), configPath, yes, deleteData, args)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (optional)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompts")
	cmd.Flags().BoolVar(&deleteData, "delete-data", false, "Also delete the application's persistent data")

	return cmd
}
