// Package config loads runtime configuration for the recordkeeper client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. A .env file in the working directory and RK_* environment variables
//     (see parseEnv). LLM credentials normally come from here.
//  3. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the backend gRPC endpoint
//	-i int      folder refresh interval (seconds)
//	-f string   path of the local sqlite cache
//	-k string   database id shared by devices of one database
//	-o int      folder id
//	-s string   address of the local status HTTP API ("" disables it)
//	-p string   ocr provider (llm, llm-paged, tesseract)
//	-l string   llm backend (gemini, chatgpt)
//	-m string   model name
//	-g string   target translation language
//	-w int      operation lock staleness window (minutes)
//
// # JSON schema
//
// Durations accept strings like "5m" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "refresh_interval": "10s",
//	  "stale_after": "5m",
//	  "auto_parse": true,
//	  "auto_translate": false,
//	  "ocr_language": "eng+deu",
//	  "target_language": "English"
//	}
package config
