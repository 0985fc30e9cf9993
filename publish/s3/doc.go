// Package s3 provides the S3 implementation of publish.Store and a
// DynamoDB-backed registry of completed benchmark runs.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("mariabench/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	key, err := publish.Archive(ctx, store, runID, artifacts)
//
// # Features
//
//   - Streaming multipart uploads for large archives
//   - Automatic pagination for listing
//   - Configurable prefix for shared buckets
//   - Conditional run registration — a run ID is never silently overwritten
package s3
