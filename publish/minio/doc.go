// Package minio provides a publish.Store implementation for MinIO and other
// S3-compatible object storage (Ceph, SeaweedFS, Garage).
//
// # Usage
//
//	client, err := minio.Connect("localhost:9000", "minioadmin", "minioadmin", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minio.NewStore(client, "mariabench", "runs/")
//	key, err := publish.Archive(ctx, store, runID, artifacts)
//
// Air-gap friendly: no AWS account or SDK credentials required.
package minio
