package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"chapterqa/internal/config"
	"chapterqa/internal/server"
	"chapterqa/internal/service"
	"chapterqa/internal/tui"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log, logLevel)
			if err != nil {
				return err
			}
			a, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = cfg.Server.Addr
			}
			srv := server.New(server.Config{
				Addr:         addr,
				Mode:         cfg.Server.Mode,
				ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
				WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
			}, a.svc, logger.With("component", "http"))
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func submitCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "submit <location>",
		Short: "Chunk and cache a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			submit := a.svc.SubmitDocument
			if refresh {
				submit = a.svc.RefreshDocument
			}
			res, err := submit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d chunks (%s)\n", res.Identity, res.ChunkCount, res.Status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "fetch and chunk the document again")
	return cmd
}

func askCmd() *cobra.Command {
	var showSources bool
	cmd := &cobra.Command{
		Use:   "ask <location> <question...>",
		Short: "Answer one question about a document",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ans, err := a.svc.Ask(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ans.Text)
			if showSources {
				for _, sc := range ans.Sources {
					fmt.Fprintf(out, "\n[chunk %d, score %.3f]\n%s\n", sc.Chunk.Index, sc.Score, sc.Chunk.Text)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showSources, "sources", false, "print the chunks the answer was built from")
	return cmd
}

func quizCmd() *cobra.Command {
	var (
		topic      string
		difficulty string
		count      int
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "quiz <location>",
		Short: "Generate a multiple-choice quiz from a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			questions, err := a.svc.GenerateQuiz(cmd.Context(), service.QuizRequest{
				Location:   args[0],
				Topic:      topic,
				Difficulty: difficulty,
				Count:      count,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(questions)
			}
			for i, q := range questions {
				fmt.Fprintf(out, "%d. %s\n", i+1, q.Question)
				for j, opt := range q.Options {
					fmt.Fprintf(out, "   %c) %s\n", 'a'+j, opt)
				}
				fmt.Fprintf(out, "   answer: %c (%s)\n   %s\n\n", 'a'+q.Answer, q.Topic, q.Explanation)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "topic to focus the questions on")
	cmd.Flags().StringVar(&difficulty, "difficulty", "medium", "easy, medium or hard")
	cmd.Flags().IntVar(&count, "count", 5, "number of questions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print questions as JSON")
	return cmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <location>",
		Short: "Ask questions about a document interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, _, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.svc.SubmitDocument(ctx, args[0])
			if err != nil {
				return err
			}
			m := tui.New(ctx, a.svc, args[0], res.ChunkCount)
			_, err = tea.NewProgram(m, tea.WithContext(ctx)).Run()
			return err
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				p, err := config.DefaultUserConfigPath()
				if err != nil {
					return err
				}
				path = p
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}
