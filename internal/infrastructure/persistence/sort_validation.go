package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// ProfileSortFields are the connection profile columns a list may sort by
var ProfileSortFields = map[string]bool{
	"created_at":  true,
	"updated_at":  true,
	"name":        true,
	"server_url":  true,
	"enable_sync": true,
}

// ItemLinkSortFields are the item link columns a list may sort by
var ItemLinkSortFields = map[string]bool{
	"created_at":            true,
	"updated_at":            true,
	"item_code":             true,
	"storefront_product_id": true,
	"last_sync_at":          true,
	"last_sync_status":      true,
}
