package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openscrape/facedex/internal/config"
	"github.com/openscrape/facedex/internal/identity"
	"github.com/openscrape/facedex/internal/storage"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "Inspect and manage learned identities",
}

var identitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all identities",
	RunE:  runIdentitiesList,
}

var identitiesRenameCmd = &cobra.Command{
	Use:   "rename [identity-id] [name...]",
	Short: "Assign a name to an identity",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runIdentitiesRename,
}

var identitiesMergeCmd = &cobra.Command{
	Use:   "merge [source-id] [destination-id]",
	Short: "Merge one identity into another",
	Long: `Merge the source identity into the destination. The source's
samples are re-absorbed by the destination, its faces are reassigned
in storage, and the source is deleted.`,
	Args: cobra.ExactArgs(2),
	RunE: runIdentitiesMerge,
}

var identitiesSuggestCmd = &cobra.Command{
	Use:   "suggest-name [identity-id]",
	Short: "Ask a vision model for a descriptive label",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdentitiesSuggest,
}

func init() {
	rootCmd.AddCommand(identitiesCmd)
	identitiesCmd.AddCommand(identitiesListCmd)
	identitiesCmd.AddCommand(identitiesRenameCmd)
	identitiesCmd.AddCommand(identitiesMergeCmd)
	identitiesCmd.AddCommand(identitiesSuggestCmd)

	identitiesSuggestCmd.Flags().String("provider", "", "Vision provider: openai, gemini (default: whichever has credentials)")
}

// loadRegistry restores the registry from storage for a CLI operation.
func loadRegistry(ctx context.Context, cfg *config.Config, store storage.Store) (*identity.Registry, error) {
	registry := identity.NewRegistry(cfg.Matching)
	identities, err := store.LoadIdentities(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading identities: %w", err)
	}
	registry.Load(identities)
	return registry, nil
}

func runIdentitiesList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	store, pool, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := context.Background()
	registry, err := loadRegistry(ctx, cfg, store)
	if err != nil {
		return err
	}

	identities := registry.List()
	if len(identities) == 0 {
		fmt.Println("No identities yet")
		return nil
	}

	fmt.Printf("%-36s  %-7s  %-11s  %s\n", "ID", "SAMPLES", "TOTAL FACES", "NAME")
	for _, id := range identities {
		name := id.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("%-36s  %-7d  %-11d  %s\n", id.ID, len(id.Samples), id.SampleCount, name)
	}
	fmt.Printf("\n%d identities\n", len(identities))
	return nil
}

func runIdentitiesRename(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	store, pool, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := context.Background()
	registry, err := loadRegistry(ctx, cfg, store)
	if err != nil {
		return err
	}

	identityID := args[0]
	name := strings.Join(args[1:], " ")
	if err := registry.Rename(identityID, name); err != nil {
		return fmt.Errorf("renaming identity: %w", err)
	}
	if err := store.SaveIdentities(ctx, registry.Snapshot()); err != nil {
		return fmt.Errorf("saving identity snapshot: %w", err)
	}

	id, _ := registry.Get(identityID)
	fmt.Printf("Renamed %s to %q\n", id.ID, id.Name)
	return nil
}

func runIdentitiesMerge(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	store, pool, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := context.Background()
	registry, err := loadRegistry(ctx, cfg, store)
	if err != nil {
		return err
	}

	srcID, dstID := args[0], args[1]
	if err := registry.Merge(srcID, dstID); err != nil {
		return fmt.Errorf("merging identities: %w", err)
	}

	moved, err := store.ReassignFaces(ctx, srcID, dstID)
	if err != nil {
		return fmt.Errorf("reassigning faces: %w", err)
	}
	if err := store.SaveIdentities(ctx, registry.Snapshot()); err != nil {
		return fmt.Errorf("saving identity snapshot: %w", err)
	}

	fmt.Printf("Merged %s into %s, moved %d faces\n", srcID, dstID, moved)
	return nil
}

func runIdentitiesSuggest(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	namer, err := newNamer(ctx, cfg, mustGetString(cmd, "provider"))
	if err != nil {
		return err
	}
	if namer == nil {
		return errors.New("no vision provider configured; set OPENAI_TOKEN or GEMINI_API_KEY")
	}

	objects, err := newObjectSink(ctx, cfg)
	if err != nil {
		return err
	}
	if objects == nil {
		return errors.New("OBJECT_STORE_ENDPOINT is required; cover crops live in the object store")
	}

	store, pool, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	registry, err := loadRegistry(ctx, cfg, store)
	if err != nil {
		return err
	}

	identityID := args[0]
	id, err := registry.Get(identityID)
	if err != nil {
		return fmt.Errorf("looking up identity: %w", err)
	}

	cover, err := objects.GetCover(ctx, identityID)
	if err != nil {
		return fmt.Errorf("fetching cover crop: %w", err)
	}

	suggestion, err := namer.SuggestLabel(ctx, cover, int(id.SampleCount))
	if err != nil {
		return fmt.Errorf("suggesting label: %w", err)
	}

	fmt.Printf("Provider:    %s\n", namer.Name())
	fmt.Printf("Label:       %s\n", suggestion.Label)
	fmt.Printf("Description: %s\n", suggestion.Description)
	fmt.Printf("Confidence:  %.0f%%\n", suggestion.Confidence*100)
	return nil
}
