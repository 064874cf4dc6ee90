package endpoints

import (
	"github.com/saltinventory/minion-inventory/pkg/server"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterInventoryEndpoints(srv)
	RegisterStatusEndpoints(srv)
}
