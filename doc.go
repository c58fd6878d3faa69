// Package vexec wires segment execution engines to their shared process
// collaborators.
//
// The engine package implements the per-segment operations (add, merge,
// build, search, serialize, load). A Runtime assembles what engines share
// from a configuration file: the blob store backend (local disk, memory, S3
// or MinIO), the persistence gateway with its segment compression, the index
// cache, the resource controller and the metrics sink.
//
// # Quick Start
//
//	cfg, _ := config.Load("vexec.yaml")
//	rt, _ := vexec.NewRuntime(ctx, cfg)
//
//	e, _ := rt.NewEngine(128, "segments/0001", index.IVFFlatCPU)
//	_ = e.AddWithIDs(n, vectors, ids)
//	_ = e.Serialize(ctx)
//
//	built, _ := rt.Build(ctx, "segments/0001", "segments/0001.ivf", index.IVFFlatCPU)
//	_ = built.Search(1, query, 10, distances, labels)
//
// # Storage Backends
//
//	storage:
//	  backend: s3        # local | memory | s3 | minio
//	  bucket: my-bucket
//	  prefix: vectors/
//	  compression: zstd  # none | lz4 | zstd
//
// Every setting can be overridden from the environment with the VEXEC_
// prefix, e.g. VEXEC_ENGINE_CONFIG_NPROBE=64.
package vexec
