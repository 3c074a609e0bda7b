package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShivaTri14/nagar-seva-ai/internal/prompts"
)

var letterLocation string

var letterCmd = &cobra.Command{
	Use:   "letter <issue description>",
	Short: "Draft a formal complaint letter to the municipal commissioner",
	Long: `Fills the complaint letter template for the described issue. The location
is taken from --location, or from the description ("near the market", "बाजार के पास").`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLetter,
}

func init() {
	letterCmd.Flags().StringVar(&letterLocation, "location", "", "Location of the issue")
}

func runLetter(cmd *cobra.Command, args []string) error {
	_, logger, lang, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	issue := strings.Join(args, " ")
	location := strings.TrimSpace(letterLocation)
	if location == "" {
		location, _ = prompts.ExtractLocation(issue)
	}

	fmt.Fprintln(cmd.OutOrStdout(), prompts.NewGenerator(nil).Letter(lang, issue, location))
	return nil
}
