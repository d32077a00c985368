package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/figureboard/figureboard/internal/catalog"
	"github.com/figureboard/figureboard/internal/config"
)

// mapClient is the part of the catalog client the one-shot commands use.
type mapClient interface {
	ListMaps(ctx context.Context) ([]string, error)
	Upload(ctx context.Context, filePath string) (string, error)
}

func newMapClient() mapClient {
	return catalog.NewClient(config.GetClientConfig().ServerURL, afero.NewOsFs())
}

func runMaps(ctx context.Context, out io.Writer) error {
	return listMaps(ctx, newMapClient(), out)
}

func runUpload(ctx context.Context, out io.Writer, filePath string) error {
	return uploadMap(ctx, newMapClient(), out, filePath)
}

func listMaps(ctx context.Context, c mapClient, out io.Writer) error {
	maps, err := c.ListMaps(ctx)
	if err != nil {
		return err
	}
	for _, m := range maps {
		fmt.Fprintln(out, m)
	}
	return nil
}

func uploadMap(ctx context.Context, c mapClient, out io.Writer, filePath string) error {
	mapID, err := c.Upload(ctx, filePath)
	if err != nil {
		return fmt.Errorf("%w: %w", catalog.ErrUploadFailed, err)
	}
	fmt.Fprintf(out, "map set to %s\n", mapID)
	return nil
}
