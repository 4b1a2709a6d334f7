package main

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/pkp/pln/context"
	"github.com/pkp/pln/terms"
	"github.com/spf13/cobra"
)

var (
	termUser  string
	termInput = terms.Input{}

	termsCmd = &cobra.Command{
		Use:   "terms",
		Short: "Manage the terms of use",
	}

	termsListCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the terms of use in order",
		Args:  cobra.NoArgs,
		RunE: withContext(func(_context *context.Context, args []string) error {
			list, err := terms.NewService(_context).List()
			if err != nil {
				return err
			}
			for _, term := range list {
				fmt.Printf("%d\t%d\t%s\t%s\t%s\n", term.Id, term.Weight, term.KeyCode, term.LangCode, term.Content)
			}
			return nil
		}),
	}

	termsAddCmd = &cobra.Command{
		Use:   "add",
		Short: "Add a term of use",
		Args:  cobra.NoArgs,
		RunE: withContext(func(_context *context.Context, args []string) error {
			term, err := terms.NewService(_context).Add(&termInput, termUser)
			if err != nil {
				return err
			}
			fmt.Printf("Created term %d\n", term.Id)
			return nil
		}),
	}

	termsUpdateCmd = &cobra.Command{
		Use:   "update <term id>",
		Short: "Replace the values of a term of use",
		Args:  cobra.ExactArgs(1),
		RunE: withContext(func(_context *context.Context, args []string) error {
			id, err := parseTermId(args[0])
			if err != nil {
				return err
			}
			_, err = terms.NewService(_context).Update(id, &termInput, termUser)
			return err
		}),
	}

	termsDeleteCmd = &cobra.Command{
		Use:   "delete <term id>",
		Short: "Delete a term of use",
		Args:  cobra.ExactArgs(1),
		RunE: withContext(func(_context *context.Context, args []string) error {
			id, err := parseTermId(args[0])
			if err != nil {
				return err
			}
			return terms.NewService(_context).Delete(id, termUser)
		}),
	}

	termsReorderCmd = &cobra.Command{
		Use:   "reorder <term id...>",
		Short: "Order the terms of use as given",
		Args:  cobra.MinimumNArgs(1),
		RunE: withContext(func(_context *context.Context, args []string) error {
			ids := make([]uint64, len(args))
			for i, arg := range args {
				id, err := parseTermId(arg)
				if err != nil {
					return err
				}
				ids[i] = id
			}
			return terms.NewService(_context).Reorder(ids, termUser)
		}),
	}

	termsHistoryCmd = &cobra.Command{
		Use:   "history <term id>",
		Short: "Print the changes made to a term of use",
		Args:  cobra.ExactArgs(1),
		RunE: withContext(func(_context *context.Context, args []string) error {
			id, err := parseTermId(args[0])
			if err != nil {
				return err
			}
			history, err := terms.NewService(_context).History(id)
			if err != nil {
				return err
			}
			for _, entry := range history {
				fmt.Printf("%s\t%s\t%s\n", entry.Created.Format("2006-01-02 15:04:05"), entry.Action, entry.User)
				for field, change := range entry.ChangeSet {
					fmt.Printf("\t%s: %s -> %s\n", field, valueOf(change.Old), valueOf(change.New))
				}
			}
			return nil
		}),
	}
)

func init() {
	for _, cmd := range []*cobra.Command{termsAddCmd, termsUpdateCmd} {
		cmd.Flags().IntVar(&termInput.Weight, "weight", 0, "Position of the term; lower comes first")
		cmd.Flags().StringVar(&termInput.KeyCode, "key", "", "Key code, e.g. plugins.generic.pln.terms_of_use.jurisdiction")
		cmd.Flags().StringVar(&termInput.LangCode, "lang", "en_US", "Language code")
		cmd.Flags().StringVar(&termInput.Content, "content", "", "Text of the term")
	}
	termsCmd.PersistentFlags().StringVar(&termUser, "user", "", "Who is making the change")
	termsCmd.AddCommand(termsListCmd, termsAddCmd, termsUpdateCmd, termsDeleteCmd, termsReorderCmd, termsHistoryCmd)
}

func parseTermId(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "Bad term id %s", arg)
	}
	return id, nil
}

func valueOf(value *string) string {
	if value == nil {
		return "-"
	}
	return *value
}
