// Package models contains the GORM persistence models. Domain types stay free
// of ORM tags; repositories convert with the ToDomain/FromDomain helpers.
//
// Structure:
// - base.go: the aggregate header columns (TenantAggregateModel)
// - connection_profile.go: connection profiles and their field mappings
// - integration.go: item links plus the ERP item, price and bin rows used by sync
package models
