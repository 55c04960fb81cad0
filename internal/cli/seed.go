package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/models"
)

type seedFile struct {
	Products []models.Product `yaml:"products"`
}

func NewSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <products.yaml>",
		Short: "Load catalog products from a YAML file",
		Long: `Write every product in the file to the products collection. Products with an
existing id are replaced.

Example:
  storefront seed ./products.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, config.AppEnv)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			n, err := seedProducts(ctx, catalog.New(store), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products\n", n)
			return nil
		},
	}
}

func loadSeedFile(path string) ([]models.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return file.Products, nil
}

func seedProducts(ctx context.Context, cat *catalog.Catalog, path string) (int, error) {
	products, err := loadSeedFile(path)
	if err != nil {
		return 0, err
	}
	if err := cat.Seed(ctx, products); err != nil {
		return 0, err
	}
	return len(products), nil
}
