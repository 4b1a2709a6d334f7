package main

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/context"
	"github.com/pkp/pln/health"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/onix"
	"github.com/pkp/pln/util"
	"github.com/pkp/pln/util/storage"
	"github.com/pkp/pln/workers"
	"github.com/spf13/cobra"
)

var (
	days    int
	comment string

	allocateCmd = &cobra.Command{
		Use:   "allocate",
		Short: "Assign validated deposits to archival unit containers",
		Args:  cobra.NoArgs,
		RunE: withContext(func(_context *context.Context, args []string) error {
			runStats, err := workers.NewAuContainerAllocator(_context).Run(dryRun)
			report(_context, runStats)
			return err
		}),
	}

	auCmd = &cobra.Command{
		Use:   "au",
		Short: "Manage archival unit containers",
	}

	auListCmd = &cobra.Command{
		Use:   "show",
		Short: "List the containers",
		Args:  cobra.NoArgs,
		RunE: withContext(func(_context *context.Context, args []string) error {
			containers, err := _context.Store.Containers()
			if err != nil {
				return err
			}
			for _, container := range containers {
				fmt.Printf("%d\topen=%t\t%d deposits\t%d bytes\n", container.Id, container.IsOpen(),
					container.CountDeposits(), container.Size())
			}
			return nil
		}),
	}

	auSealCmd = &cobra.Command{
		Use:   "seal <container id>",
		Short: "Close a container to new deposits",
		Args:  cobra.ExactArgs(1),
		RunE: withContext(func(_context *context.Context, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return errors.Wrapf(err, "Bad container id %s", args[0])
			}
			container, err := workers.NewAuContainerAllocator(_context).Seal(id)
			if err != nil {
				return err
			}
			fmt.Printf("Sealed container %d with %d deposits\n", container.Id, container.CountDeposits())
			return nil
		}),
	}

	pingCmd = &cobra.Command{
		Use:   "ping [provider uuid...]",
		Short: "Ping providers and record what they report",
		RunE: withContext(func(_context *context.Context, args []string) error {
			providers, err := providersNamed(_context.Store, args)
			if err != nil {
				return err
			}
			answered, err := health.NewPinger(_context).PingAll(providers)
			fmt.Printf("%d of %d providers answered\n", answered, len(providers))
			return err
		}),
	}

	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Find providers that have gone silent and check on them",
		Args:  cobra.NoArgs,
		RunE: withContext(func(_context *context.Context, args []string) error {
			healthReport, err := health.NewChecker(_context).Run(days, dryRun)
			if healthReport != nil {
				fmt.Printf("Silent for %d days: %d. Healthy: %d. Unhealthy: %d.\n", healthReport.Days,
					len(healthReport.Silent), len(healthReport.Healthy), len(healthReport.Unhealthy))
			}
			return err
		}),
	}

	onixCmd = &cobra.Command{
		Use:   "onix <file...>",
		Short: "Write the ONIX-PH holdings feed to .xml or .csv files",
		Args:  cobra.MinimumNArgs(1),
		RunE: withContext(func(_context *context.Context, args []string) error {
			return onix.WriteFile(_context.Store, _context.MessageLog, args...)
		}),
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Manage the whitelist and blacklist",
	}
)

func init() {
	allocateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report assignments but save nothing")
	healthCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only report silent providers")
	healthCmd.Flags().IntVar(&days, "days", 0, "Days of silence before a provider is checked")
	auCmd.AddCommand(auListCmd, auSealCmd)
	for _, name := range []string{constants.Whitelist, constants.Blacklist} {
		listCmd.AddCommand(listCommand(name))
	}
}

// providersNamed returns the named providers, or all providers due
// a ping when none are named.
func providersNamed(store *storage.BoltDB, uuids []string) ([]*models.Provider, error) {
	if len(uuids) == 0 {
		return health.ProvidersToPing(store)
	}
	providers := make([]*models.Provider, 0, len(uuids))
	for _, uuid := range uuids {
		provider, err := store.GetProvider(util.NormalizeUuid(uuid))
		if err != nil {
			return nil, err
		}
		if provider == nil {
			return nil, fmt.Errorf("Provider %s not found", uuid)
		}
		providers = append(providers, provider)
	}
	return providers, nil
}

func listCommand(list string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   list,
		Short: fmt.Sprintf("Manage the %s", list),
	}
	add := &cobra.Command{
		Use:   "add <provider uuid...>",
		Short: fmt.Sprintf("Add providers to the %s", list),
		Args:  cobra.MinimumNArgs(1),
		RunE: withContext(func(_context *context.Context, args []string) error {
			for _, uuid := range args {
				if !util.LooksLikeUUID(uuid) {
					return fmt.Errorf("%s is not a uuid", uuid)
				}
				entry := models.NewListEntry(uuid, comment)
				if err := _context.Store.AddListEntry(list, entry); err != nil {
					return err
				}
				_context.MessageLog.Info("Added %s to the %s", entry.Uuid, list)
			}
			return nil
		}),
	}
	add.Flags().StringVar(&comment, "comment", "", "Why the providers are listed")
	remove := &cobra.Command{
		Use:   "remove <provider uuid...>",
		Short: fmt.Sprintf("Remove providers from the %s", list),
		Args:  cobra.MinimumNArgs(1),
		RunE: withContext(func(_context *context.Context, args []string) error {
			for _, uuid := range args {
				removed, err := _context.Store.RemoveListEntry(list, util.NormalizeUuid(uuid))
				if err != nil {
					return err
				}
				if !removed {
					fmt.Printf("%s is not on the %s\n", uuid, list)
					continue
				}
				_context.MessageLog.Info("Removed %s from the %s", uuid, list)
			}
			return nil
		}),
	}
	show := &cobra.Command{
		Use:   "show",
		Short: fmt.Sprintf("Print the %s", list),
		Args:  cobra.NoArgs,
		RunE: withContext(func(_context *context.Context, args []string) error {
			entries, err := _context.Store.ListEntries(list)
			if err != nil {
				return err
			}
			for _, entry := range entries {
				fmt.Printf("%s\t%s\t%s\n", entry.Uuid, entry.CreatedAt.Format("2006-01-02"), entry.Comment)
			}
			return nil
		}),
	}
	cmd.AddCommand(add, remove, show)
	return cmd
}
