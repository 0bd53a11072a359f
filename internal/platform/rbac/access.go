// Package rbac decides whether a resolved identity may perform a request.
package rbac

import (
	"net/http"

	userdomain "github.com/kodacci/o-monitor-rest/internal/user/domain"
)

// Allowed reports whether identity may issue a request with the given HTTP method.
// Anonymous callers are never allowed. Reads need any authenticated user; every other
// method needs ADMIN. The decision does not depend on the path.
func Allowed(method string, identity *userdomain.Identity) bool {
	if identity == nil {
		return false
	}
	switch method {
	case http.MethodGet, http.MethodHead:
		return true
	}
	return identity.Privilege == userdomain.PrivilegeAdmin
}
