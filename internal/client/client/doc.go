// Package client contains the client-side building blocks that talk to the
// recordkeeper server and own the local cache database.
//
// # Overview
//
//  1. Client is the transport-agnostic contract the pipeline needs from the
//     server: records, operation locks, last-update polling and presigned
//     attachment URLs.
//  2. GRPCClient implements it over the wire package's JSON-coded gRPC
//     service. Every call carries the session id and user agent as
//     metadata, and gRPC status codes are mapped back to package errors.
//  3. InitDatabase opens the local sqlite cache (modernc.org/sqlite) and runs
//     the embedded goose migrations.
package client
