// Package storage archives uploaded audio in object storage.
//
// Backends register themselves with the factory on import:
//
//   - storage/s3: Amazon S3 and S3-compatible services (MinIO, R2)
//   - storage/local: local filesystem for development and tests
//
// Audio is stored under AudioKey(userID, requestID), which is
// "audio/<user_id>/<request_id>".
//
//	storage:
//	  enabled: true
//	  provider: "s3"
//	  bucket: "scribegate-audio"
//	  region: "eu-central-1"
package storage
