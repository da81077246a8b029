package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"commerce-pricing/internal/config"
	"commerce-pricing/internal/db"
	"commerce-pricing/internal/importer"
	goodsrepo "commerce-pricing/internal/repository/goods"
	promorepo "commerce-pricing/internal/repository/promo"
	"go.uber.org/zap"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to a goods or promo rules CSV file")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	base, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer base.Sync()
	logger := base.Named("importer")

	cfg := config.FromEnv()
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal("open file", zap.Error(err))
	}
	defer f.Close()

	kind, err := importer.DetectKind(f)
	if err != nil {
		logger.Fatal("detect file kind", zap.Error(err))
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		logger.Fatal("rewind file", zap.Error(err))
	}

	imp := importer.NewCSVImporter(f, goodsrepo.NewPostgres(pool, logger), promorepo.NewPostgres(pool, logger))

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal("import failed", zap.Stringer("kind", kind), zap.Int("imported", count), zap.Error(err))
	}

	fmt.Printf("Imported %d %s in %s\n", count, kind, time.Since(start).Truncate(time.Millisecond))
}
