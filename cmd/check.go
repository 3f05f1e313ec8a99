package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/beatguard/internal/config"
	"github.com/beatguard/internal/logging"
	"github.com/beatguard/pkg/models"
)

// CheckCommand returns the CLI command for one-shot moderation of a string.
// Useful for tuning pattern rules without running the server.
func CheckCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Run a piece of content through the moderation pipeline once",
		ArgsUsage: "CONTENT",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Content kind: post, comment, meme_prompt, or bio",
				Value: "post",
			},
			&cli.StringFlag{
				Name:  "author",
				Usage: "Author display name used for personalization",
				Value: "operator",
			},
		},
		Action: runCheck,
	}
}

func runCheck(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: check [--kind KIND] CONTENT")
	}

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	// The one-shot path never touches the database.
	cfg.Database.URL = ""

	logging.Setup(cfg.Logging.Level, true)

	ctx := context.Background()
	p, _, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}

	req := models.ModerationRequest{
		Content:           c.Args().First(),
		Kind:              models.ContentKind(c.String("kind")),
		AuthorID:          "cli",
		AuthorDisplayName: c.String("author"),
	}

	result, err := p.Process(ctx, req)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
