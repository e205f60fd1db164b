// Package server provides the HTTP server for the keyvault API.
//
// The Server holds the gorilla/mux router together with the relational
// stores, the authorization engine, the secret manager, the activity
// recorder and the session issuer. Endpoints are registered by the
// endpoints subpackage:
//
//	srv := server.NewServer(deps, "0.0.0.0", "8000")
//	endpoints.RegisterAll(srv)
//	log.Fatal(srv.Start())
//
// Routes that need a caller are wrapped with Protected, which resolves the
// session token and stores the caller's identity in the request context.
package server
