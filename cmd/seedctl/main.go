// Command seedctl forces redistribution of a single row (C10) from a maintenance shell, without
// going through the HTTP surface. It connects to the same database the server uses, so it must
// be run with an identically configured environment.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mywaytech/dentstage-sync/common"
	"github.com/mywaytech/dentstage-sync/internal/bootstrap"
	"github.com/mywaytech/dentstage-sync/internal/domain/catalog"
	"github.com/mywaytech/dentstage-sync/internal/domain/changelog"
	"github.com/mywaytech/dentstage-sync/internal/domain/photostore"
	"github.com/mywaytech/dentstage-sync/internal/domain/seed"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var tableName, recordId, action, storeId, storeType string

	cmd := &cobra.Command{
		Use:   "seedctl",
		Short: "Force redistribution of a row by rebuilding its change-log entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), tableName, recordId, action, storeId, storeType)
		},
	}

	cmd.Flags().StringVar(&tableName, "table", "", "table name of the row to reseed (required)")
	cmd.Flags().StringVar(&recordId, "record", "", "record id of the row to reseed (required)")
	cmd.Flags().StringVar(&action, "action", "UPDATE", "change-log action to record")
	cmd.Flags().StringVar(&storeId, "store-id", "central", "store id recorded as the entry's source")
	cmd.Flags().StringVar(&storeType, "store-type", "central", "store type recorded on the entry")

	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("record")

	return cmd
}

func runSeed(ctx context.Context, tableName, recordId, action, storeId, storeType string) error {
	common.InitLocalEnvConfig()

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	pg := bootstrap.NewPostgresConnection(cfg)

	db, err := pg.GetDB(ctx)
	if err != nil {
		return err
	}

	cat := catalog.New(db, catalog.DefaultSchemas()...)
	changeLog := changelog.NewPostgresRepository(pg)

	photoFiles := photostore.New(cfg.PhotoStorageRootPath)
	photoRows := photostore.NewRowRepository(db)
	photoApplier := photostore.NewPhotoApplier(photoRows, photoFiles)

	seeder := seed.New(cat, photoApplier, changeLog)

	result, err := seeder.Seed(ctx, seed.Request{
		TableName: tableName,
		RecordId:  recordId,
		Action:    action,
		StoreId:   storeId,
		StoreType: storeType,
	})
	if err != nil {
		return err
	}

	fmt.Printf("seeded %s/%s as logId=%s syncedAt=%s\n", tableName, recordId, result.LogId, result.SyncedAt)

	return nil
}
