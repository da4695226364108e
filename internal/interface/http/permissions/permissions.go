package permissions

import "net/http"

const (
	EntityRelayer = "relayer"
	EntityGuest   = "guest"
	EntityAdmin   = "admin"
	EntityHealth  = "health"

	ActionRead  = "read"
	ActionWrite = "write"
)

// Op is an action on an entity required to serve a route.
type Op struct {
	Entity string
	Action string
}

// Route identifies an endpoint by method and mux path template.
type Route struct {
	Method string
	Path   string
}

func (r Route) String() string {
	return r.Method + " " + r.Path
}

var (
	Hello            = Route{http.MethodGet, "/"}
	Info             = Route{http.MethodGet, "/info"}
	Metrics          = Route{http.MethodGet, "/metrics"}
	HasAccessKey     = Route{http.MethodPost, "/has-access-key"}
	StorageDeposit   = Route{http.MethodPost, "/storage-deposit"}
	AddKey           = Route{http.MethodPost, "/add-key"}
	DeleteAccessKeys = Route{http.MethodGet, "/delete-access-keys"}
	AddGuest         = Route{http.MethodPost, "/add-guest"}
	GetGuest         = Route{http.MethodGet, "/guests/{account_id}"}
)

// Whitelist returns the routes anyone can call, with the relative entity
// and action. Signed routes are listed here too: the signature is checked
// by the handler itself.
func Whitelist() map[string][]Op {
	return map[string][]Op{
		Hello.String():          {{Entity: EntityHealth, Action: ActionRead}},
		Info.String():           {{Entity: EntityRelayer, Action: ActionRead}},
		Metrics.String():        {{Entity: EntityHealth, Action: ActionRead}},
		HasAccessKey.String():   {{Entity: EntityGuest, Action: ActionRead}},
		StorageDeposit.String(): {{Entity: EntityGuest, Action: ActionWrite}},
		AddGuest.String():       {{Entity: EntityGuest, Action: ActionWrite}},
		GetGuest.String():       {{Entity: EntityGuest, Action: ActionRead}},
	}
}

// AllPermissionsByRoute returns a mapping of the restricted routes to the
// permissions they require. These are open when no admin token is set.
func AllPermissionsByRoute() map[string][]Op {
	return map[string][]Op{
		AddKey.String(): {{
			Entity: EntityAdmin,
			Action: ActionWrite,
		}},
		DeleteAccessKeys.String(): {{
			Entity: EntityAdmin,
			Action: ActionWrite,
		}},
	}
}

// SignedRoutes lists the routes whose body must carry a signed block number.
func SignedRoutes() []Route {
	return []Route{HasAccessKey, StorageDeposit}
}

func AllRoutes() []Route {
	return []Route{
		Hello, Info, Metrics, HasAccessKey, StorageDeposit,
		AddKey, DeleteAccessKeys, AddGuest, GetGuest,
	}
}
