package session

import (
	"errors"
	"fmt"
)

type Access int

const (
	Public Access = iota
	Protected
	GuestOnly
)

const (
	RouteHome           = "/"
	RouteExplore        = "/explore"
	RouteAbout          = "/about"
	RouteFavourites     = "/favourites"
	RouteLogin          = "/login"
	RouteRegister       = "/register"
	RouteAccountDetails = "/accountdetails"
)

// Routes is the client's page table.
var Routes = map[string]Access{
	RouteHome:           Public,
	RouteExplore:        Public,
	RouteAbout:          Public,
	RouteFavourites:     Public,
	RouteLogin:          GuestOnly,
	RouteRegister:       GuestOnly,
	RouteAccountDetails: Protected,
}

var ErrUnknownRoute = errors.New("unknown route")

type Authenticated interface {
	IsAuthenticated() bool
}

// Guard decides route entry from the cached session alone. It never talks
// to the server.
type Guard struct {
	session Authenticated
}

func NewGuard(session Authenticated) *Guard {
	return &Guard{session: session}
}

func (g *Guard) IsAuthenticated() bool {
	return g.session.IsAuthenticated()
}

// GuardProtected returns route when signed in, the login page otherwise.
func (g *Guard) GuardProtected(route string) string {
	if !g.IsAuthenticated() {
		return RouteLogin
	}

	return route
}

// GuardGuestOnly returns route when signed out, the home page otherwise.
func (g *Guard) GuardGuestOnly(route string) string {
	if g.IsAuthenticated() {
		return RouteHome
	}

	return route
}

// Navigate resolves where a request for route actually lands.
func (g *Guard) Navigate(route string) (string, error) {
	access, ok := Routes[route]
	if !ok {
		return "", fmt.Errorf("session.Navigate: %w: %s", ErrUnknownRoute, route)
	}

	switch access {
	case Protected:
		return g.GuardProtected(route), nil
	case GuestOnly:
		return g.GuardGuestOnly(route), nil
	default:
		return route, nil
	}
}
