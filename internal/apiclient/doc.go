// Package apiclient is the HTTP client the CLI uses to talk to a running
// daemon. Responses decode into the shared api DTOs; non-2xx replies become
// *Error values carrying the status code and the server's message.
package apiclient
