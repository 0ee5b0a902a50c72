// Package clientip resolves the address of the caller behind reverse
// proxies.
//
// A Resolver walks a list of trusted forwarding headers in order and falls
// back to the TCP peer address. The first header value that parses as an IP
// wins; X-Forwarded-For style lists are scanned left to right.
//
//	r := chi.NewRouter()
//	r.Use(clientip.Default().Middleware)
//
// Handlers read the resolved address with FromContext. LoggerExtractor adds
// it to log records as client_ip.
package clientip
