// Package storage wraps the MinIO client used for ledger and inventory
// archives.
//
// Client is the subset of minio.Client the archive and integrity features
// call; mocks.Client stands in for it in tests.
//
//	client, err := storage.NewClient(cfg.Storage)
//	created, err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region)
package storage
