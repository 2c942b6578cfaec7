package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tether-pm/tether/internal/fetch"
	"github.com/tether-pm/tether/internal/lockfile"
	"github.com/tether-pm/tether/internal/manifest"
	"github.com/tether-pm/tether/internal/override"
	"github.com/tether-pm/tether/internal/registry"
	"github.com/tether-pm/tether/internal/resolve"
	"github.com/tether-pm/tether/internal/workspace"
)

var (
	installFrozen      bool
	installForce       bool
	installRegistry    string
	installConcurrency int
)

var installCmd = &cobra.Command{
	Use:   "install [directory]",
	Short: "Resolve dependencies and write the lockfile",
	Long: `Resolve the manifest's dependency graph, applying the root override
table at every depth, and write the canonical tether.lock.yaml.

With --frozen-lockfile the resolution is recomputed and compared
against the stored lockfile instead; any divergence fails the run
without touching the lockfile or installed packages.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		return runInstall(cmd, dir, installFrozen)
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
	installCmd.Flags().BoolVar(&installFrozen, "frozen-lockfile", false, "verify the lockfile instead of writing it")
	installCmd.Flags().BoolVar(&installForce, "force", false, "bypass cached registry metadata")
	installCmd.Flags().StringVar(&installRegistry, "registry", "", "registry base URL (default $TETHER_REGISTRY or the public registry)")
	installCmd.Flags().IntVar(&installConcurrency, "concurrency", resolve.DefaultConcurrency, "maximum concurrent fetches")
}

func runInstall(cmd *cobra.Command, dir string, frozen bool) error {
	logger := newLogger(cmd.ErrOrStderr())

	root, err := manifest.Load(dir)
	if err != nil {
		return err
	}

	members, err := manifest.Members(root)
	if err != nil {
		return err
	}

	overrides, err := override.Build(root)
	if err != nil {
		return err
	}

	regURL := installRegistry
	if regURL == "" {
		regURL = os.Getenv("TETHER_REGISTRY")
	}
	reg, err := registry.NewClient(regURL, registry.WithForce(installForce))
	if err != nil {
		return err
	}

	fetcher, err := fetch.NewFetcher(root.Dir)
	if err != nil {
		return err
	}

	index := workspace.BuildIndex(members)
	engine := resolve.New(resolve.Config{
		Root:        root,
		Members:     members,
		Overrides:   overrides,
		Index:       index,
		Registry:    reg,
		Fetcher:     fetcher,
		Logger:      logger,
		Concurrency: installConcurrency,
	})

	graph, err := engine.Resolve(cmd.Context())
	if err != nil {
		return err
	}
	logger.Debug("resolution complete",
		"packages", graph.Len(), "members", index.Len(), "overrides", overrides.Len())

	recomputed := lockfile.FromGraph(graph, overrides)

	if frozen {
		_, stored, err := lockfile.Load(root.Dir)
		if stored == nil {
			if err != nil {
				return err
			}
			return fmt.Errorf("frozen lockfile: no %s to verify against", lockfile.DefaultLockfile)
		}
		if err := lockfile.ValidateFrozen(stored, recomputed); err != nil {
			logger.Error("frozen lockfile", "err", err)
			return err
		}
		logger.Debug("frozen lockfile verified", "fingerprint", fmt.Sprintf("%016x", lockfile.Fingerprint(stored)))
		return nil
	}

	encoded, err := lockfile.Encode(recomputed)
	if err != nil {
		return err
	}

	_, stored, err := lockfile.Load(root.Dir)
	if err != nil {
		// Corrupt lockfile in normal mode: the fresh resolution simply
		// replaces it.
		logger.Warn("existing lockfile unreadable, rewriting", "err", err)
	}
	if bytes.Equal(stored, encoded) {
		logger.Debug("lockfile unchanged")
		return nil
	}

	if err := lockfile.Write(root.Dir, encoded); err != nil {
		return err
	}
	logger.Info("lockfile saved",
		"packages", graph.Len(),
		"fingerprint", fmt.Sprintf("%016x", lockfile.Fingerprint(encoded)))
	return nil
}
