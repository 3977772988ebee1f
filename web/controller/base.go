// Package controller provides the HTTP handlers of the portal API.
package controller

import (
	"slices"

	"github.com/gin-gonic/gin"
)

// Access holds the middleware chains shared by every controller: Token only
// authenticates the caller, Admin also requires the admin role and audits
// successful mutations.
type Access struct {
	Token []gin.HandlerFunc
	Admin []gin.HandlerFunc
}

func (a Access) token(h gin.HandlerFunc) []gin.HandlerFunc {
	return append(slices.Clone(a.Token), h)
}

func (a Access) admin(h gin.HandlerFunc) []gin.HandlerFunc {
	return append(slices.Clone(a.Admin), h)
}
