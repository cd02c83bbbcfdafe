package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/careerpath/internal/api"
	"github.com/kalambet/careerpath/internal/catalog"
	"github.com/kalambet/careerpath/internal/config"
	"github.com/kalambet/careerpath/internal/matching"
	"github.com/kalambet/careerpath/internal/profile"
	"github.com/kalambet/careerpath/internal/roadmap"
	"github.com/kalambet/careerpath/internal/session"
	"github.com/kalambet/careerpath/internal/storage"
)

// loadProfile reads a profile JSON file ("-" for stdin) and validates it.
func loadProfile(path string, stdin io.Reader) (profile.Profile, error) {
	if path == "" {
		return profile.Profile{}, errors.New("--profile is required")
	}

	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return profile.Profile{}, fmt.Errorf("reading profile: %w", err)
		}
		defer f.Close()
		r = f
	}

	var p profile.Profile
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return profile.Profile{}, fmt.Errorf("parsing profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return profile.Profile{}, fmt.Errorf("invalid profile: %w", err)
	}
	return p, nil
}

// --- options ---

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List the accepted questionnaire answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		opts := profile.Options()
		w := cmd.OutOrStdout()
		if asJSON {
			return printJSON(w, opts)
		}

		for _, group := range []struct {
			label  string
			values []string
		}{
			{"interests", opts.Interests},
			{"educationLevel", opts.EducationLevels},
			{"currentClass", opts.Classes},
			{"stream", opts.Streams},
			{"subjects", opts.Subjects},
			{"skills", opts.Skills},
			{"workStyle", opts.WorkStyles},
			{"location", opts.Locations},
		} {
			fmt.Fprintf(w, "%s\n", colorize(colorBold, group.label))
			for _, v := range group.values {
				fmt.Fprintf(w, "  %s\n", v)
			}
		}
		return nil
	},
}

func init() {
	optionsCmd.Flags().Bool("json", false, "print as JSON")
}

// --- recommend ---

type recommendOutput struct {
	Summary         profile.Summary         `json:"summary"`
	Recommendations []matching.ScoredCareer `json:"recommendations"`
	Roadmaps        []roadmap.Result        `json:"roadmaps,omitempty"`
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank careers for a profile (runs locally)",
	Long: `Rank careers for a profile without a running server.

Examples:
  careerpath recommend --profile answers.json
  careerpath recommend --profile answers.json --roadmaps
  cat answers.json | careerpath recommend --profile -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("profile")
		withRoadmaps, _ := cmd.Flags().GetBool("roadmaps")
		asJSON, _ := cmd.Flags().GetBool("json")

		p, err := loadProfile(path, cmd.InOrStdin())
		if err != nil {
			return err
		}

		out := recommendOutput{
			Summary:         p.Summarize(),
			Recommendations: matching.Score(p, catalog.Default()),
		}

		if withRoadmaps {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			setupLogging(cfg.Log.Level)
			printStep("Generating %d roadmaps...", len(out.Recommendations))
			out.Roadmaps, err = fetchRoadmaps(cmd.Context(), newFetcher(cfg), p, out.Recommendations, cfg.Roadmap.MaxConcurrent)
			if err != nil {
				return err
			}
		}

		w := cmd.OutOrStdout()
		if asJSON {
			return printJSON(w, out)
		}
		printSummary(w, out.Summary)
		printRecommendations(w, out.Recommendations)
		for _, res := range out.Roadmaps {
			printRoadmap(w, res.Roadmap, nil)
			if res.Source == roadmap.SourceFallback {
				fmt.Fprintf(w, "  %s\n", colorize(colorYellow, "(template roadmap: "+res.Reason+")"))
			}
		}
		return nil
	},
}

// fetchRoadmaps generates a roadmap per recommendation, at most limit at a
// time. Results keep recommendation order.
func fetchRoadmaps(ctx context.Context, f api.RoadmapFetcher, p profile.Profile, recs []matching.ScoredCareer, limit int) ([]roadmap.Result, error) {
	results := make([]roadmap.Result, len(recs))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, rec := range recs {
		g.Go(func() error {
			results[i] = f.Fetch(ctx, rec.ID, rec.Title, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func init() {
	recommendCmd.Flags().String("profile", "", "profile JSON file, or - for stdin")
	recommendCmd.Flags().Bool("roadmaps", false, "also generate a roadmap for each recommendation")
	recommendCmd.Flags().Bool("json", false, "print as JSON")
}

// --- roadmap ---

var roadmapCmd = &cobra.Command{
	Use:   "roadmap <career-id>",
	Short: "Generate a roadmap for one career (runs locally)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("profile")
		title, _ := cmd.Flags().GetString("title")
		asJSON, _ := cmd.Flags().GetBool("json")

		p, err := loadProfile(path, cmd.InOrStdin())
		if err != nil {
			return err
		}
		careerID := args[0]
		if title == "" {
			c, ok := catalog.Default().Get(careerID)
			if !ok {
				return fmt.Errorf("career %q is not in the catalog; pass --title", careerID)
			}
			title = c.Title
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)

		res := newFetcher(cfg).Fetch(cmd.Context(), careerID, title, p)

		w := cmd.OutOrStdout()
		if asJSON {
			return printJSON(w, res)
		}
		printRoadmap(w, res.Roadmap, nil)
		if res.Source == roadmap.SourceFallback {
			printWarning("template roadmap (%s)", res.Reason)
		}
		return nil
	},
}

func init() {
	roadmapCmd.Flags().String("profile", "", "profile JSON file, or - for stdin")
	roadmapCmd.Flags().String("title", "", "career title, required for careers outside the catalog")
	roadmapCmd.Flags().Bool("json", false, "print as JSON")
}

// --- session ---

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions on the running server",
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Start a session: score the profile and generate roadmaps",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("profile")
		wait, _ := cmd.Flags().GetDuration("wait")

		p, err := loadProfile(path, cmd.InOrStdin())
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		resp, err := client.post(ctx, "/sessions", p)
		if err != nil {
			return err
		}
		var sess session.Session
		if err := decodeJSON(resp, &sess); err != nil {
			return err
		}

		if wait > 0 {
			sess, err = waitForRoadmaps(ctx, client, sess.ID, wait, 500*time.Millisecond)
			if err != nil {
				return err
			}
		}

		printSuccess("Session %s", sess.ID)
		printSession(cmd.OutOrStdout(), sess)
		return nil
	},
}

// waitForRoadmaps polls the session until no slot is generating or timeout
// passes. It returns the last state seen.
func waitForRoadmaps(ctx context.Context, client *apiClient, id string, timeout, interval time.Duration) (session.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		resp, err := client.get(ctx, "/sessions/"+url.PathEscape(id))
		if err != nil {
			return session.Session{}, err
		}
		var sess session.Session
		if err := decodeJSON(resp, &sess); err != nil {
			return session.Session{}, err
		}
		if !generating(sess) {
			return sess, nil
		}

		select {
		case <-ctx.Done():
			printWarning("roadmaps still generating after %s", timeout)
			return sess, nil
		case <-time.After(interval):
		}
	}
}

func generating(sess session.Session) bool {
	for _, slot := range sess.Roadmaps {
		if slot.Status == session.StatusGenerating {
			return true
		}
	}
	return false
}

func printSession(w io.Writer, sess session.Session) {
	printSummary(w, sess.Summary)
	printRecommendations(w, sess.Recommendations)
	fmt.Fprintf(w, "\n%s\n", colorize(colorBold, "Roadmaps"))
	for _, slot := range sess.Roadmaps {
		status := slot.Status
		if slot.Source != "" {
			status += " (" + slot.Source + ")"
		}
		fmt.Fprintf(w, "  %-20s %s\n", slot.CareerID, status)
	}
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session and the state of its roadmaps",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/sessions/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var sess session.Session
		if err := decodeJSON(resp, &sess); err != nil {
			return err
		}

		if asJSON {
			return printJSON(cmd.OutOrStdout(), sess)
		}
		printSession(cmd.OutOrStdout(), sess)
		return nil
	},
}

var sessionRoadmapCmd = &cobra.Command{
	Use:   "roadmap <session-id> <career-id>",
	Short: "Show a session roadmap, optionally starting its generation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		generate, _ := cmd.Flags().GetBool("generate")
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := roadmapPath(args[0], args[1])
		var resp *http.Response
		if generate {
			resp, err = client.post(cmd.Context(), path, nil)
		} else {
			resp, err = client.get(cmd.Context(), path)
		}
		if err != nil {
			return err
		}
		var view session.RoadmapView
		if err := decodeJSON(resp, &view); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if asJSON {
			return printJSON(w, view)
		}
		if view.Roadmap == nil {
			fmt.Fprintf(w, "%s: %s\n", view.Title, view.Status)
			if view.Status == session.StatusIdle {
				fmt.Fprintln(w, "run again with --generate to start it")
			}
			return nil
		}
		printRoadmap(w, *view.Roadmap, view.Progress)
		return nil
	},
}

var sessionDoneCmd = &cobra.Command{
	Use:   "done <session-id> <career-id> <item-id>",
	Short: "Mark a roadmap item as done",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		undo, _ := cmd.Flags().GetBool("undo")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := roadmapPath(args[0], args[1]) + "/items/" + url.PathEscape(args[2])
		done := !undo
		resp, err := client.put(cmd.Context(), path, api.ItemRequest{Done: &done})
		if err != nil {
			return err
		}
		var progress api.ProgressResponse
		if err := decodeJSON(resp, &progress); err != nil {
			return err
		}

		for _, stage := range []string{roadmap.StageEntry, roadmap.StageGrowth, roadmap.StageLeadership} {
			if pct, ok := progress.Progress[stage]; ok {
				printStatus(stage, "%d%%", pct)
			}
		}
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and start over",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/sessions/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}
		printSuccess("Deleted session %s", args[0])
		return nil
	},
}

func roadmapPath(sessionID, careerID string) string {
	return "/sessions/" + url.PathEscape(sessionID) + "/roadmaps/" + url.PathEscape(careerID)
}

func init() {
	sessionCreateCmd.Flags().String("profile", "", "profile JSON file, or - for stdin")
	sessionCreateCmd.Flags().Duration("wait", 0, "wait up to this long for roadmaps to finish")
	sessionShowCmd.Flags().Bool("json", false, "print as JSON")
	sessionRoadmapCmd.Flags().Bool("generate", false, "start generation if the roadmap is idle")
	sessionRoadmapCmd.Flags().Bool("json", false, "print as JSON")
	sessionDoneCmd.Flags().Bool("undo", false, "mark the item as not done")

	sessionCmd.AddCommand(sessionCreateCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionRoadmapCmd)
	sessionCmd.AddCommand(sessionDoneCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
}

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve careerpath tools over MCP (stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fetcher := newFetcher(cfg)
		// MCP calls are stateless, so sessions stay in memory.
		mgr, cleanup, err := openSessions(cfg, storage.MemoryDir, fetcher)
		if err != nil {
			return err
		}
		defer cleanup()

		mcpSrv := api.NewMCPServer(api.MCPDeps{Sessions: mgr, Fetcher: fetcher}, version)
		stdioSrv := server.NewStdioServer(mcpSrv)
		slog.Info("MCP server started (stdio transport)")
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP stdio server: %w", err)
		}
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(w, "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		fmt.Fprintf(w, "\nSettings stored in %s\n", config.Location())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a stored configuration value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store the Gemini API key in the platform secret store (reads stdin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading key: %w", err)
		}
		if err := config.SetAPIKey(strings.TrimSpace(line)); err != nil {
			return err
		}
		printSuccess("Gemini API key stored")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configSetKeyCmd)
}
