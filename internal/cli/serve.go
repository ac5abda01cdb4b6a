package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/weeklyad/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored weekly ads over HTTP",
	Long: `Starts the read API:

- GET /weekly-ad?storename=&week=  rows from the sqlite mirror
- GET /weekly-ad-from-file?storename=&week=  the stored JSON document
- GET /image-bytes?storename=&week=&image_filename=  one image, base64
- GET /health, GET /stores`,
	Example: `  weeklyad serve --addr :8000`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp(cmd)
		log.Info().
			Str("addr", a.Config.ListenAddr).
			Str("data_root", a.Config.DataRoot).
			Str("db_path", a.Config.DBPath).
			Msg("Starting read API")
		return a.Serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", config.DefaultListenAddr, "Listen address")
}
