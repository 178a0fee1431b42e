package serve

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/haritpath/pestwatch/internal/conf"
	"github.com/haritpath/pestwatch/internal/server"
)

// Command creates the serve command which runs the HTTP API server.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the detection API server",
		Long:  "Start the HTTP server exposing the detect and history endpoints.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.Run(context.Background(), settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Classifier.Endpoint, "classifier", viper.GetString("classifier.endpoint"), "URL of the pest classification service")
	cmd.Flags().IntVar(&settings.Classifier.Timeout, "classifier-timeout", viper.GetInt("classifier.timeout"), "Classification request timeout in seconds")
	cmd.Flags().StringVar(&settings.Advisory.Model, "advisory-model", viper.GetString("advisory.model"), "Generative model used for advisories")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
