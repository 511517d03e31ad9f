// verify.go implements "cardtool verify" and "cardtool parse".
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"metacards/internal/deck"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Report image files whose names are not clean",
	Long: `Report image files whose names contain anything outside [A-Za-z0-9._]
or keep an upper-case extension, and manifest cards whose image is missing.
Exits non-zero when anything is reported.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

var parseCmd = &cobra.Command{
	Use:   "parse <descriptions.txt>",
	Short: "Build a card manifest from a numbered description file",
	Long: `Build a card manifest from a text file of numbered entries: an id line,
the card name on the next line, then description lines up to the next id.
Cards with ids up to --resource-max are resource cards, the rest are blocks.
Each card gets an image locator of {id}_{type}.png under --image-prefix.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

var (
	resourceMax int
	imagePrefix string
)

func init() {
	parseCmd.Flags().IntVar(&resourceMax, "resource-max", deck.DefaultResourceMax, "Highest id of a resource card")
	parseCmd.Flags().StringVar(&imagePrefix, "image-prefix", "", "Prefix for generated image locators")
}

func runVerify(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	dirty, err := deck.Verify(cardsDir)
	if err != nil {
		return err
	}
	for _, name := range dirty {
		fmt.Fprintf(out, "  unclean name: %q\n", name)
	}

	var missing int
	cards, err := deck.ReadCards(manifestPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading manifest: %w", err)
	}
	for _, card := range cards {
		_, last := filepath.Split(card.ImageURL)
		if last == "" {
			continue
		}
		if decoded, err := url.PathUnescape(last); err == nil {
			last = decoded
		}
		if _, err := os.Stat(filepath.Join(cardsDir, last)); err != nil {
			fmt.Fprintf(out, "  card %d: image %q not in %s\n", card.ID, last, cardsDir)
			missing++
		}
	}

	if len(dirty) > 0 || missing > 0 {
		return fmt.Errorf("%d unclean name(s), %d missing image(s)", len(dirty), missing)
	}
	fmt.Fprintln(out, "All card files look clean.")
	return nil
}

func runParse(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening descriptions: %w", err)
	}
	defer f.Close()

	cards, err := deck.ParseDescriptions(f, resourceMax)
	if err != nil {
		return err
	}
	for i := range cards {
		cards[i].ImageURL = imagePrefix + deck.NumberedName(cards[i].ID, cards[i].Type)
	}

	if dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "Would write %d card(s) to %s.\n", len(cards), manifestPath)
		return nil
	}
	if err := deck.WriteCards(manifestPath, cards); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d card(s) to %s.\n", len(cards), manifestPath)
	return nil
}
