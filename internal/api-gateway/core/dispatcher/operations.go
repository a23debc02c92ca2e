package dispatcher

import "github.com/jcmexdev/disqueria/internal/pkg/commands"

const (
	ServiceCatalog = "catalog"
	ServiceUsers   = "users"
	ServiceOrders  = "orders"
)

// Operation is one edge-facing action. It maps to exactly one command on the
// service that owns it.
type Operation struct {
	Name      string
	Service   string
	Command   string
	Protected bool

	// Cacheable replies are served from the read cache when one is set.
	Cacheable bool
	// Evicts names the cacheable operations a successful call invalidates.
	Evicts []string
}

// Catalog listings embed each other (artists carry albums, albums carry
// their artist and stock), so every catalog write and every order evicts
// both.
var catalogReads = []string{"list_artists", "list_albums"}

var (
	ListArtists = Operation{Name: "list_artists", Service: ServiceCatalog, Command: commands.GetArtists.Name, Cacheable: true}
	ListAlbums  = Operation{Name: "list_albums", Service: ServiceCatalog, Command: commands.GetAlbums.Name, Cacheable: true}

	CreateArtist = Operation{Name: "create_artist", Service: ServiceCatalog, Command: commands.CreateArtist.Name, Protected: true, Evicts: catalogReads}
	UpdateArtist = Operation{Name: "update_artist", Service: ServiceCatalog, Command: commands.UpdateArtist.Name, Protected: true, Evicts: catalogReads}
	DeleteArtist = Operation{Name: "delete_artist", Service: ServiceCatalog, Command: commands.DeleteArtist.Name, Protected: true, Evicts: catalogReads}
	CreateAlbum  = Operation{Name: "create_album", Service: ServiceCatalog, Command: commands.CreateAlbum.Name, Protected: true, Evicts: catalogReads}
	UpdateAlbum  = Operation{Name: "update_album", Service: ServiceCatalog, Command: commands.UpdateAlbum.Name, Protected: true, Evicts: catalogReads}
	DeleteAlbum  = Operation{Name: "delete_album", Service: ServiceCatalog, Command: commands.DeleteAlbum.Name, Protected: true, Evicts: catalogReads}

	RegisterUser = Operation{Name: "register_user", Service: ServiceUsers, Command: commands.CreateUser.Name}
	FindUser     = Operation{Name: "find_user", Service: ServiceUsers, Command: commands.FindUser.Name, Protected: true}

	CreateOrder = Operation{Name: "create_order", Service: ServiceOrders, Command: commands.CreateOrder.Name, Protected: true, Evicts: catalogReads}
	UserOrders  = Operation{Name: "user_orders", Service: ServiceOrders, Command: commands.GetUserOrders.Name, Protected: true}
)

// Operations lists every operation the gateway exposes.
func Operations() []Operation {
	return []Operation{
		ListArtists, ListAlbums,
		CreateArtist, UpdateArtist, DeleteArtist,
		CreateAlbum, UpdateAlbum, DeleteAlbum,
		RegisterUser, FindUser,
		CreateOrder, UserOrders,
	}
}
