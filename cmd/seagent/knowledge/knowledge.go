// Package knowledgecmder provides the knowledge command for managing the
// knowledge base collections replies can draw on.
package knowledgecmder

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/seagent/cmd/seagent/cmdutil"
	"github.com/papercomputeco/seagent/pkg/api"
	"github.com/papercomputeco/seagent/pkg/cliui"
	"github.com/papercomputeco/seagent/pkg/config"
	"github.com/papercomputeco/seagent/pkg/upload"
)

const knowledgeLongDesc string = `Manage knowledge base collections.

Documents uploaded to a collection are indexed by the backend. Chat with
--collection NAME (or set chat.collection) to have replies retrieve from it.

Supported file types: txt, pdf, csv.

Examples:
  seagent knowledge list
  seagent knowledge upload -c handbook policies.pdf faq.txt
  seagent knowledge upload -c handbook -j 8 docs/*.pdf
  seagent knowledge delete handbook`

const knowledgeShortDesc string = "Manage knowledge base collections"

func NewKnowledgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "knowledge",
		Aliases: []string{"kb"},
		Short:   knowledgeShortDesc,
		Long:    knowledgeLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newDeleteCmd())

	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdutil.Load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			collections, err := env.Client.ListCollections(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing collections: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(collections) == 0 {
				fmt.Fprintf(out, "\n  %s No collections yet. Upload a document with 'seagent knowledge upload'.\n\n",
					cliui.DimStyle.Render("●"))
				return nil
			}

			fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Collections"))
			for _, name := range collections {
				marker := " "
				if name == env.Config.Chat.Collection {
					marker = cliui.SuccessMark
				}
				fmt.Fprintf(out, "  %s %s\n", marker, cliui.NameStyle.Render(name))
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

func newUploadCmd() *cobra.Command {
	var (
		collection string
		parallel   uint
	)

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload documents to a collection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if !api.IsUploadable(path) {
					return fmt.Errorf("unsupported file type: %s (supported: %s)",
						filepath.Base(path), strings.Join(api.UploadExtensions, ", "))
				}
			}

			env, err := cmdutil.Load(cmd, config.FlagCollection)
			if err != nil {
				return err
			}
			defer env.Close()

			name := env.Config.Chat.Collection
			if name == "" {
				return errors.New("a collection is required: pass --collection or set chat.collection")
			}

			pool, err := upload.NewPool(cmd.Context(), &upload.Config{
				Uploader:   env.Client,
				NumWorkers: parallel,
				QueueSize:  uint(len(args)),
				Logger:     env.Logger,
			})
			if err != nil {
				return err
			}
			for _, path := range args {
				pool.Enqueue(upload.Job{Path: path, Collection: name})
			}
			pool.Close()

			var errs []error
			out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
			for res := range pool.Results() {
				elapsed := cliui.StepStyle.Render("(" + cliui.FormatDuration(res.Elapsed) + ")")
				if res.Err != nil {
					fmt.Fprintf(errOut, "  %s %s %s %v\n", cliui.FailMark, filepath.Base(res.Job.Path), elapsed, res.Err)
					errs = append(errs, fmt.Errorf("uploading %s: %w", res.Job.Path, res.Err))
					continue
				}
				fmt.Fprintf(out, "  %s %s %s %s\n", cliui.SuccessMark, filepath.Base(res.Job.Path), elapsed, cliui.DimStyle.Render(res.Message))
			}

			return errors.Join(errs...)
		},
	}

	cmd.Flags().UintVarP(&parallel, "parallel", "j", 3, "Number of files to upload at once")
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagCollection, &collection)

	return cmd
}

func newDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <collection>",
		Short: "Delete a collection and its documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if !yes {
				answer, err := cmdutil.NewPrompter(cmd).Line(fmt.Sprintf("Delete collection %q and all its documents? [y/N] ", name))
				if err != nil && !errors.Is(err, cmdutil.ErrNoInput) {
					return err
				}
				if a := strings.ToLower(answer); a != "y" && a != "yes" {
					fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Aborted.\n\n", cliui.DimStyle.Render("●"))
					return nil
				}
			}

			env, err := cmdutil.Load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			msg, err := env.Client.DeleteCollection(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("deleting collection %s: %w", name, err)
			}
			if msg == "" {
				msg = "Deleted collection " + name
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n  %s %s\n\n", cliui.SuccessMark, msg)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}
