// Package fakeapi is an in-process fake of the Swarms orchestration
// service. It serves every route the client calls, checks the x-api-key
// header, echoes X-Request-ID, counts requests per path and replays
// scripted faults (status codes and latency) in order.
package fakeapi
