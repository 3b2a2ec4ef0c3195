package services

import "github.com/mreyes/latch/core"

// Identity assertion: the three ways a request proves who it is (a verified
// local credential, a federated provider profile, decoded bearer claims)
// all normalize to the same core.Principal value. Local and federated
// assertions pass through here; the token path is normalized inside
// BearerIssuer.Resolve since it never touches the user store.

func localPrincipal(u *core.User) core.Principal {
	return core.Principal{ID: u.ID, Name: u.Username, Method: core.MethodLocal}
}

func federatedPrincipal(u *core.User) core.Principal {
	return core.Principal{ID: u.ID, Name: u.Username, Method: core.MethodFederated}
}
