// rename.go implements the file renaming commands.
package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"metacards/internal/deck"
	"metacards/internal/models"
)

// renameSpec describes one renaming command. rule receives the manifest cards,
// which are nil when the manifest is optional and absent.
type renameSpec struct {
	use           string
	short         string
	needsManifest bool
	renumber      bool
	rule          func(cards []models.Card) deck.Rule
}

func fixed(rule deck.Rule) func([]models.Card) deck.Rule {
	return func([]models.Card) deck.Rule { return rule }
}

var renameSpecs = []renameSpec{
	{
		use:   "strip-invisible",
		short: "Remove U+2800 and other invisible characters from file names",
		rule:  fixed(deck.StripInvisible),
	},
	{
		use:   "fix-ext",
		short: "Rename .PNG extensions to .png",
		rule:  fixed(deck.FixExtension),
	},
	{
		use:   "translit",
		short: "Transliterate Cyrillic file names to Latin, spaces to underscores",
		rule:  fixed(deck.Transliterate),
	},
	{
		use:   "clean",
		short: "Transliterate, then drop everything outside [A-Za-z0-9._]",
		rule:  fixed(deck.Clean),
	},
	{
		use:           "standardize",
		short:         "Rename files to {id}_{name}_{type}.png using the manifest",
		needsManifest: true,
		rule:          deck.StandardizeRule,
	},
	{
		use:           "renumber",
		short:         "Rename files to {id}_{type}.png and rewrite every manifest locator",
		needsManifest: true,
		renumber:      true,
		rule:          deck.RenumberRule,
	},
}

var renameCmds = buildRenameCmds()

func buildRenameCmds() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(renameSpecs))
	for _, spec := range renameSpecs {
		cmds = append(cmds, &cobra.Command{
			Use:   spec.use,
			Short: spec.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runRename(cmd, spec)
			},
		})
	}
	return cmds
}

func runRename(cmd *cobra.Command, spec renameSpec) error {
	out := cmd.OutOrStdout()

	cards, err := deck.ReadCards(manifestPath)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !spec.needsManifest:
		fmt.Fprintf(out, "Manifest %s not found, locators will not be updated.\n", manifestPath)
		cards = nil
	default:
		return fmt.Errorf("reading manifest: %w", err)
	}

	plan, err := deck.Plan(cardsDir, spec.rule(cards))
	if err != nil {
		return fmt.Errorf("planning %s: %w", spec.use, err)
	}

	verb := "Renamed"
	if dryRun {
		verb = "Would rename"
	}
	for _, r := range plan {
		fmt.Fprintf(out, "  %s %s -> %s\n", verb, r.From, r.To)
	}
	fmt.Fprintf(out, "%s %d file(s).\n", verb, len(plan))

	var updated int
	if spec.renumber {
		updated = deck.RenumberManifest(cards)
	} else {
		updated = deck.SyncManifest(cards, plan)
	}

	if dryRun {
		if cards != nil {
			fmt.Fprintf(out, "Would update %d manifest locator(s).\n", updated)
		}
		return nil
	}

	if err := deck.Apply(cardsDir, plan); err != nil {
		return err
	}
	if updated == 0 {
		return nil
	}
	if err := deck.WriteCards(manifestPath, cards); err != nil {
		return err
	}
	fmt.Fprintf(out, "Updated %d manifest locator(s) in %s.\n", updated, manifestPath)
	return nil
}
