// Package models contains GORM persistence models. Domain types stay free of
// ORM tags; each model converts to and from its domain counterpart.
package models
