package main

import (
	"context"
	"os"

	"homestyle_sync/internal/processing"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	setupEnvironment()

	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "homestyle-sync",
		Short:         "Batch jobs for the homestyle project management sheet",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newAddressCommand(),
		newFoldersCommand(),
		newContactsCommand(),
		newDBCommand(),
		newDriveCheckCommand(),
		newCalendarCommand(),
		newFoldCommand(),
		newDiagnoseCommand(),
		newMasterCommand(),
	)
	return root
}

func newAddressCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Geocode base addresses and write standardized addresses and map links",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, processing.OpAddress, func(ctx context.Context, r *processing.Runner) (processing.Result, error) {
				return r.UpdateAddresses(ctx)
			})
		},
	}
}

func newFoldersCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "Create project folders and copy the template document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, processing.OpFolders, func(ctx context.Context, r *processing.Runner) (processing.Result, error) {
				return r.CreateFolders(ctx, force)
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "recreate folders and template copies that are already linked")
	return cmd
}

func newContactsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Register customer phone numbers in the address book",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, processing.OpContacts, func(ctx context.Context, r *processing.Runner) (processing.Result, error) {
				return r.SyncContacts(ctx)
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "audit",
		Short: "Verify that logged contacts still exist in the address book",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, processing.OpContactsAudit, func(ctx context.Context, r *processing.Runner) (processing.Result, error) {
				return r.AuditContacts(ctx)
			})
		},
	})
	return cmd
}

func newDBCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Flatten project blocks into the DB sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, processing.OpDB, func(ctx context.Context, r *processing.Runner) (processing.Result, error) {
				return r.SyncDB(ctx, all)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include closed and inactive projects")
	return cmd
}

func newDriveCheckCommand() *cobra.Command {
	var all, force bool
	cmd := &cobra.Command{
		Use:   "drive-check",
		Short: "Colour folder links by whether the folder holds real files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, processing.OpDriveCheck, func(ctx context.Context, r *processing.Runner) (processing.Result, error) {
				return r.CheckDriveFiles(ctx, all, force)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include closed projects")
	cmd.Flags().BoolVar(&force, "force", false, "ignore cached results")
	return cmd
}

func newCalendarCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "calendar",
		Short: "Rebuild the weekly schedule sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, processing.OpCalendar, func(ctx context.Context, r *processing.Runner) (processing.Result, error) {
				return r.GenerateWeeklyCalendar(ctx)
			})
		},
	}
}

func newFoldCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fold",
		Short: "Fold finished blocks, or expand everything when something is folded",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, processing.OpFold, func(ctx context.Context, r *processing.Runner) (processing.Result, error) {
				return r.ToggleFolding(ctx)
			})
		},
	}
}

func newDiagnoseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Report block detection and configuration health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, processing.OpDiagnose, func(ctx context.Context, r *processing.Runner) (processing.Result, error) {
				return r.Diagnose(ctx)
			})
		},
	}
}

func newMasterCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "master",
		Short: "Run addresses, folders and contacts, then the drive check",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, processing.OpMaster, func(ctx context.Context, r *processing.Runner) (processing.Result, error) {
				return r.MasterSync(ctx)
			})
		},
	}
}
