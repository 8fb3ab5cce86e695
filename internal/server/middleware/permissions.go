package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

const (
	PermStoreCreate     = "store.create"
	PermStoreDelete     = "store.delete"
	PermStoreView       = "store.view"
	PermStoreCompile    = "store.compile"
	PermStoreAddFile    = "store.add:file"
	PermStoreSynthesize = "store.synthesize"
)

// allPermissions is granted to the master API key.
var allPermissions = []string{
	PermStoreCreate,
	PermStoreDelete,
	PermStoreView,
	PermStoreCompile,
	PermStoreAddFile,
	PermStoreSynthesize,
}

func IsAdmin(user *AppUser) bool {
	return user != nil && user.Role == "admin"
}

// HasPermission reports whether user holds permission. Admins hold all.
func HasPermission(user *AppUser, permission string) bool {
	switch {
	case user == nil:
		return false
	case IsAdmin(user):
		return true
	}
	return slices.Contains(user.Permissions, permission)
}

// RequirePermission rejects requests without a user (401) or whose user
// lacks permission (403).
func RequirePermission(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch user := c.(*AppContext).User; {
			case user == nil:
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			case !HasPermission(user, permission):
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden: missing permission " + permission})
			}
			return next(c)
		}
	}
}
