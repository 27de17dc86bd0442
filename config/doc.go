// Package config loads the pageindex command configuration.
//
// Settings come from an optional YAML file, then PAGEINDEX_* environment
// variables, then command-line flags applied by the caller. File turns the
// result into the functional options each pipeline component accepts; any
// value left at zero keeps that component's default.
//
// Example file:
//
//	index_dir: ./index
//	db_path: ./pageindex.db
//	ai:
//	  backend: ollama
//	  host: http://localhost:11434
//	  reasoning_model: qwen2.5:7b
//	  writing_model: qwen2.5:14b
//	  call_timeout: 90s
//	research:
//	  concurrency: 4
//	  sufficiency_check: true
//	  max_iterations: 3
//	citations:
//	  verify_threshold: 85
//	  fix_threshold: 80
//	  unverified_marker: " [UNVERIFIED]"
//	logging:
//	  level: debug
//	  file: /tmp/pageindex.log
package config
