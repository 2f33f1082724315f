package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"file-upload-api/config"
	"file-upload-api/internal"
	"file-upload-api/internal/infrastructure/jwt"
)

var rootCMD = &cobra.Command{
	Use:   "fileupload",
	Short: "file upload api",
	Long:  `attaches uploaded files to owner entities and serves originals and derived assets`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

var tokenArgs struct {
	subject string
	aliases []string
	ttl     time.Duration
}

// tokenCMD mints the bearer tokens the owning application sends to the
// upload and delete routes.
var tokenCMD = &cobra.Command{
	Use:   "token",
	Short: "mint a bearer token signed with SERVICE_JWT_SECRET",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		cfg := config.Load()
		if cfg.App.JWTSecret == "" {
			return errors.New("SERVICE_JWT_SECRET is empty")
		}

		tok, err := jwt.New(cfg.App.JWTSecret).GenerateJWT(tokenArgs.subject, tokenArgs.aliases, tokenArgs.ttl)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
		return err
	},
}

func init() {
	tokenCMD.Flags().StringVar(&tokenArgs.subject, "subject", "app", "token subject")
	tokenCMD.Flags().StringSliceVar(&tokenArgs.aliases, "alias", nil, "aliases the token grants, all when empty")
	tokenCMD.Flags().DurationVar(&tokenArgs.ttl, "ttl", 24*time.Hour, "token lifetime")
	rootCMD.AddCommand(tokenCMD)
}

func serve(ctx context.Context) error {
	app, err := internal.NewApp(ctx)
	if err != nil {
		return fmt.Errorf("init app failed: %w", err)
	}
	defer app.Close()

	app.InitControllers()

	if err = app.Run(ctx); err != nil {
		app.Logger().Sugar().Errorf("fileuploadapi stopped with error: %v", err)
		return err
	}
	return nil
}

func main() {
	rootCMD.SilenceUsage = true
	if err := rootCMD.ExecuteContext(context.Background()); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
