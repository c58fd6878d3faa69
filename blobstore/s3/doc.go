// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("segments/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
// Segments are uploaded with the SDK's upload manager (multipart above
// UploadConfig.PartSize) and read back with ranged GETs.
package s3
