package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	ghclient "github.com/bull/docintel/internal/github"
	"github.com/bull/docintel/internal/indexer"
)

var (
	bold    = color.New(color.Bold).SprintFunc()
	dim     = color.New(color.Faint).SprintFunc()
	success = color.New(color.FgGreen).SprintFunc()
	warn    = color.New(color.FgYellow).SprintFunc()
)

var ingestOpts struct {
	fileID string
	userID string
	exts   []string
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Extract, summarize, tag and index a file or every file in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, _, cleanup, err := openService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		path := args[0]
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return runBatch(cmd, svc, indexer.NewDirSource(path, ingestOpts.exts), "Ingesting "+path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		fileID := ingestOpts.fileID
		if fileID == "" {
			fileID = filepath.Base(path)
		}

		res, err := svc.Ingest(ctx, indexer.IngestRequest{
			FileID:   fileID,
			UserID:   ingestOpts.userID,
			Filename: filepath.Base(path),
			Data:     data,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s (%s)\n", success("Indexed"), bold(res.FileID), res.MimeType)
		fmt.Fprintf(out, "  %s %s\n", dim("summary:"), res.Summary)
		fmt.Fprintf(out, "  %s %s\n", dim("tags:   "), strings.Join(res.Tags, ", "))
		fmt.Fprintf(out, "  %s %d\n", dim("dims:   "), len(res.Embedding))
		return nil
	},
}

var searchTopK int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find the files most similar to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, cleanup, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		matches, err := svc.Search(cmd.Context(), strings.Join(args, " "), searchTopK)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(matches) == 0 {
			fmt.Fprintln(out, warn("No matching files."))
			return nil
		}
		for i, m := range matches {
			fmt.Fprintf(out, "%d. %s %s\n", i+1, bold(m.FileID), dim(fmt.Sprintf("(score %.3f)", m.Score)))
			if name := m.Metadata["filename"]; name != "" && name != m.FileID {
				fmt.Fprintf(out, "   %s\n", name)
			}
		}
		return nil
	},
}

var chatTopK int

var chatCmd = &cobra.Command{
	Use:   "chat <question>",
	Short: "Answer a question from the indexed files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, cleanup, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		ans, err := svc.Chat(cmd.Context(), strings.Join(args, " "), chatTopK)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ans.Answer)
		if len(ans.References) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, dim("References:"))
			for _, r := range ans.References {
				fmt.Fprintf(out, "  - %s %s\n", r.FileID, dim(fmt.Sprintf("(%.3f)", r.Score)))
			}
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <file_id>",
	Short: "Remove a file's embedding from the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, cleanup, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		svc.DeleteVector(cmd.Context(), args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", success("Deleted"), args[0])
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend, index driver and file count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, cfg, cleanup, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		st, err := svc.Status(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		health := success("healthy")
		if !st.Healthy {
			health = warn("unhealthy: " + st.HealthNote)
		}
		fmt.Fprintf(out, "%s %s\n", dim("backend:"), st.Backend)
		fmt.Fprintf(out, "%s %s (%s)\n", dim("index:  "), st.Driver, cfg.Index.Path)
		fmt.Fprintf(out, "%s %d\n", dim("files:  "), st.Files)
		fmt.Fprintf(out, "%s %s\n", dim("health: "), health)
		return nil
	},
}

var ghOpts struct {
	owner string
	repo  string
	path  string
	ref   string
	exts  []string
	user  string
}

var importGitHubCmd = &cobra.Command{
	Use:   "import-github",
	Short: "Ingest files from a GitHub repository directory",
	Long: `Fetches every matching file below --path in owner/repo and ingests it.
File ids have the form github:owner/repo:path.

Environment variables:
  GITHUB_TOKEN   GitHub token for higher rate limits (optional)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, _, cleanup, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		client, err := ghclient.NewClient(os.Getenv("GITHUB_TOKEN"))
		if err != nil {
			return fmt.Errorf("create GitHub client: %w", err)
		}
		fetcher := ghclient.NewFetcher(client, ghOpts.owner, ghOpts.repo, ghOpts.path, ghOpts.ref, ghOpts.exts)
		ingestOpts.userID = ghOpts.user
		return runBatch(cmd, svc, fetcher, fmt.Sprintf("Importing %s/%s", ghOpts.owner, ghOpts.repo))
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestOpts.fileID, "file-id", "", "file id to store under (default: file name)")
	ingestCmd.Flags().StringVar(&ingestOpts.userID, "user-id", "", "owner recorded in metadata")
	ingestCmd.Flags().StringSliceVar(&ingestOpts.exts, "ext", nil, "only ingest these extensions when <path> is a directory")

	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 5, "number of results")
	chatCmd.Flags().IntVarP(&chatTopK, "top-k", "k", indexer.DefaultTopK, "number of files used as context")

	importGitHubCmd.Flags().StringVar(&ghOpts.owner, "owner", "", "repository owner")
	importGitHubCmd.Flags().StringVar(&ghOpts.repo, "repo", "", "repository name")
	importGitHubCmd.Flags().StringVar(&ghOpts.path, "path", "", "directory within the repository")
	importGitHubCmd.Flags().StringVar(&ghOpts.ref, "ref", "", "branch, tag or commit (default: default branch)")
	importGitHubCmd.Flags().StringSliceVar(&ghOpts.exts, "ext", nil, "extensions to import (default: common document types)")
	importGitHubCmd.Flags().StringVar(&ghOpts.user, "user-id", "", "owner recorded in metadata")
	_ = importGitHubCmd.MarkFlagRequired("owner")
	_ = importGitHubCmd.MarkFlagRequired("repo")
}

func runBatch(cmd *cobra.Command, svc *indexer.Service, src indexer.Source, description string) error {
	start := time.Now()
	bar := newSpinner(description)

	result, err := svc.IngestAll(cmd.Context(), src, ingestOpts.userID, func(path string, err error) {
		bar.Describe(color.CyanString(description) + " " + dim(path))
		_ = bar.Add(1)
	})
	_ = bar.Finish()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, success("Ingestion complete!"))
	fmt.Fprintf(out, "  Documents: %d/%d\n", result.SuccessfulDocs, result.TotalDocs)
	fmt.Fprintf(out, "  Revision:  %s\n", result.Revision)
	fmt.Fprintf(out, "  Duration:  %s\n", time.Since(start).Round(time.Millisecond))

	if len(result.FailedDocs) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, warn("Failed documents:"))
		for _, failed := range result.FailedDocs {
			fmt.Fprintf(out, "  - %s: %s\n", failed.Path, failed.Reason)
		}
	}
	return nil
}

func newSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetRenderBlankState(true),
	)
}
