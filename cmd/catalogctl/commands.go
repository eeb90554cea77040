package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-catalog/internal/catalog"
	"github.com/angelmondragon/storefront-catalog/internal/items"
	"github.com/angelmondragon/storefront-catalog/internal/wizard"
	pkgAuth "github.com/angelmondragon/storefront-catalog/pkg/auth"
	"github.com/angelmondragon/storefront-catalog/pkg/config"
	"github.com/angelmondragon/storefront-catalog/pkg/db"
	"github.com/angelmondragon/storefront-catalog/pkg/enums"
	"github.com/angelmondragon/storefront-catalog/pkg/env"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
	"github.com/angelmondragon/storefront-catalog/pkg/migrate"
)

type rootOptions struct {
	catalogPath string
	format      string
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Inspect and seed storefront catalogs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&opts.catalogPath, "catalog", "f", "", "YAML catalog fixture")
	root.PersistentFlags().StringVarP(&opts.format, "output", "o", "json", "output format: json|yaml")

	root.AddCommand(
		newValidateCmd(opts),
		newDictionaryCmd(opts),
		newGroupsCmd(opts),
		newFacetsCmd(opts),
		newSuggestCmd(opts),
		newWizardCmd(opts),
		newSeedCmd(opts),
		newDLQCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

func (o *rootOptions) print(cmd *cobra.Command, v any) error {
	w := cmd.OutOrStdout()
	switch strings.ToLower(o.format) {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", o.format)
	}
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a fixture against the save-time item rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := loadCatalog(opts.catalogPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d items ok\n", len(list))
			return nil
		},
	}
}

func newDictionaryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dictionary",
		Short: "Print the attribute dictionary and the global lead category",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := loadCatalog(opts.catalogPath)
			if err != nil {
				return err
			}
			dict := catalog.BuildDictionary(list)
			out := map[string]any{"attributes": dict.Entries()}
			if lead, ok := dict.GlobalLeadCategory(); ok {
				out["leadCategory"] = lead
			}
			return opts.print(cmd, out)
		},
	}
}

func newGroupsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "Print the storefront display groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := loadCatalog(opts.catalogPath)
			if err != nil {
				return err
			}
			return opts.print(cmd, catalog.Group(list))
		},
	}
}

func newFacetsCmd(opts *rootOptions) *cobra.Command {
	var rootOnly bool
	cmd := &cobra.Command{
		Use:   "facets",
		Short: "Print the facet drill-down tree over purchasable items",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := loadCatalog(opts.catalogPath)
			if err != nil {
				return err
			}
			return opts.print(cmd, catalog.BuildTree(catalog.Purchasable(list), rootOnly))
		},
	}
	cmd.Flags().BoolVar(&rootOnly, "root-only", true, "only position-0 attributes at the root")
	return cmd
}

func newSuggestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest NAME",
		Short: "Suggest the closest known attribute name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := loadCatalog(opts.catalogPath)
			if err != nil {
				return err
			}
			suggestion, ok := catalog.Suggest(args[0], catalog.BuildDictionary(list).Vocabulary())
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no suggestion")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "did you mean %q?\n", suggestion)
			return nil
		},
	}
}

// newWizardCmd replays a list of picks against a fresh wizard and prints
// the final state. A pick of "<" steps back.
func newWizardCmd(opts *rootOptions) *cobra.Command {
	var (
		query    string
		model    string
		mode     string
		picks    []string
		rootOnly bool
	)
	cmd := &cobra.Command{
		Use:   "wizard",
		Short: "Run a scripted variant resolution",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := loadCatalog(opts.catalogPath)
			if err != nil {
				return err
			}
			wizardMode, err := enums.ParseWizardMode(mode)
			if err != nil {
				return err
			}
			var wiz *wizard.Wizard
			if model != "" {
				wiz, err = wizard.StartModel(list, model, wizardMode, rootOnly)
			} else {
				wiz, err = wizard.Start(list, query, wizardMode, rootOnly)
			}
			if err != nil {
				return err
			}
			for _, pick := range picks {
				if pick == "<" {
					err = wiz.Back()
				} else {
					err = wiz.Select(pick)
				}
				if err != nil {
					return fmt.Errorf("pick %q at %s: %w", pick, wiz.Step(), err)
				}
			}
			return opts.print(cmd, wiz.State())
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "name filter the wizard starts from")
	cmd.Flags().StringVarP(&model, "model", "m", "", "exact item name, skips the model step")
	cmd.Flags().StringVar(&mode, "mode", string(enums.WizardModeFixed), "fixed|facet")
	cmd.Flags().StringSliceVarP(&picks, "pick", "p", nil, "values to select in order")
	cmd.Flags().BoolVar(&rootOnly, "root-only", true, "root-only facet scan in facet mode")
	return cmd
}

// newSeedCmd writes the fixture into the configured database in one
// transaction. It uses the same STOREFRONT_ environment as the api.
func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the fixture items into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := loadCatalog(opts.catalogPath)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			client, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			err = client.WithTx(ctx, func(tx *gorm.DB) error {
				repo := items.NewRepository(tx)
				for _, it := range list {
					if _, err := repo.Create(ctx, it); err != nil {
						return fmt.Errorf("create %s: %w", it.Name, err)
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d items\n", len(list))
			return nil
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openDB connects with the same STOREFRONT_ environment the services use.
func openDB(ctx context.Context) (*db.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := migrate.UseDriver(cfg.DB.Driver); err != nil {
		return nil, err
	}
	logg := logger.New(logger.Options{ServiceName: "catalogctl", Level: logger.ParseLevel(cfg.App.LogLevel)})
	return db.New(ctx, cfg.DB, logg)
}

func newTokenCmd(_ *rootOptions) *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			memberRole, err := enums.ParseMemberRole(role)
			if err != nil {
				return err
			}
			id := uuid.New()
			if userID != "" {
				if id, err = uuid.Parse(userID); err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
			}
			jwtCfg := config.JWTConfig{
				Secret:            env.Get("STOREFRONT_JWT_SECRET", ""),
				Issuer:            env.Get("STOREFRONT_JWT_ISSUER", "storefront"),
				ExpirationMinutes: int(ttl.Minutes()),
			}
			if jwtCfg.Secret == "" {
				return fmt.Errorf("STOREFRONT_JWT_SECRET is required")
			}
			token, err := pkgAuth.MintAccessToken(jwtCfg, time.Now(), pkgAuth.AccessTokenPayload{
				UserID: id,
				Role:   memberRole,
				JTI:    uuid.NewString(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (random when empty)")
	cmd.Flags().StringVar(&role, "role", string(enums.MemberRoleOwner), "owner|staff")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
